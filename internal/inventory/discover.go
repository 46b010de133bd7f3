package inventory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Christophertabanag/Inventory-System/internal/records"
)

// ErrNoInventoryFiles indicates the inventory directory holds no candidate file.
var ErrNoInventoryFiles = errors.New("inventory: no inventory files found")

// DiscoverInventoryFiles lists .xlsx and .csv files in dir that can serve as
// the active inventory. Files named in exclude (archive and logs) and backup
// or lock files are skipped. The result is sorted.
func DiscoverInventoryFiles(dir string, exclude ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &records.NotFoundError{Path: dir}
		}
		return nil, fmt.Errorf("inventory: read dir: %w", err)
	}
	skip := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		skip[strings.ToLower(filepath.Base(name))] = struct{}{}
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		lower := strings.ToLower(name)
		if _, ok := skip[lower]; ok {
			continue
		}
		if strings.HasPrefix(lower, "~$") || strings.HasPrefix(lower, ".") || strings.Contains(lower, "backup") {
			continue
		}
		format, err := records.FormatOf(name)
		if err != nil {
			continue
		}
		if format == records.FormatXLSX || format == records.FormatCSV {
			files = append(files, name)
		}
	}
	slices.Sort(files)
	return files, nil
}

// ResolveInventoryFile picks the configured file, or the first discovered one.
func ResolveInventoryFile(dir, configured string, exclude ...string) (string, error) {
	if configured != "" {
		if filepath.IsAbs(configured) {
			return configured, nil
		}
		return filepath.Join(dir, configured), nil
	}
	files, err := DiscoverInventoryFiles(dir, exclude...)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoInventoryFiles, dir)
	}
	return filepath.Join(dir, files[0]), nil
}
