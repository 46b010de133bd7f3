package labels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/Christophertabanag/Inventory-System/internal/records"
)

var (
	// ErrTemplateNotFound indicates no template is saved under the name.
	ErrTemplateNotFound = errors.New("labels: template not found")
	// ErrTemplateName indicates an empty template name.
	ErrTemplateName = errors.New("labels: template name required")
)

// TemplateStore keeps named templates in one JSON file.
type TemplateStore struct {
	path string
	mu   sync.Mutex
}

// NewTemplateStore constructs a store backed by path.
func NewTemplateStore(path string) *TemplateStore {
	return &TemplateStore{path: path}
}

// List returns the saved template names in order.
func (s *TemplateStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// Get returns the named template.
func (s *TemplateStore) Get(ctx context.Context, name string) (Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.read(ctx)
	if err != nil {
		return Template{}, err
	}
	t, ok := all[strings.TrimSpace(name)]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return t.Normalize(), nil
}

// Save validates and stores t under name, replacing any previous version.
func (s *TemplateStore) Save(ctx context.Context, name string, t Template) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrTemplateName
	}
	t = t.Normalize()
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.read(ctx)
	if err != nil {
		return err
	}
	all[name] = t
	return s.write(all)
}

// Delete removes the named template.
func (s *TemplateStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.read(ctx)
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if _, ok := all[name]; !ok {
		return fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	delete(all, name)
	return s.write(all)
}

func (s *TemplateStore) read(ctx context.Context) (map[string]Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]Template{}, nil
		}
		return nil, fmt.Errorf("labels: read templates: %w", err)
	}
	all := map[string]Template{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("labels: decode templates: %w", err)
	}
	return all, nil
}

func (s *TemplateStore) write(all map[string]Template) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("labels: encode templates: %w", err)
	}
	return records.WriteFileAtomic(s.path, data)
}
