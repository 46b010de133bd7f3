package app

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/Christophertabanag/Inventory-System/internal/inventory"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	InventoryDir      string `envconfig:"INVENTORY_DIR" default:"./Inventory"`
	InventoryFile     string `envconfig:"INVENTORY_FILE"`
	ArchiveFile       string `envconfig:"ARCHIVE_FILE" default:"archive_inventory.xlsx"`
	SalesFile         string `envconfig:"SALES_FILE" default:"sales.xlsx"`
	AuditFile         string `envconfig:"AUDIT_FILE" default:"auditlog.xlsx"`
	LabelTemplateFile string `envconfig:"LABEL_TEMPLATE_FILE" default:"templates.json"`

	LabelStorageDir     string `envconfig:"LABEL_STORAGE_DIR" default:"./var/labels"`
	LabelAsyncThreshold int    `envconfig:"LABEL_ASYNC_THRESHOLD" default:"50"`
	SnapshotDir         string `envconfig:"SNAPSHOT_DIR" default:"./var/snapshots"`
	WorkerConcurrency   int    `envconfig:"WORKER_CONCURRENCY" default:"2"`

	BarcodeMin         int `envconfig:"BARCODE_MIN" default:"1"`
	BarcodeMax         int `envconfig:"BARCODE_MAX" default:"11000"`
	BarcodeMaxAttempts int `envconfig:"BARCODE_MAX_ATTEMPTS" default:"1000"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	GotenbergURL string `envconfig:"GOTENBERG_URL" default:"http://127.0.0.1:3000"`

	// PGDSN enables the Postgres audit mirror when set.
	PGDSN string `envconfig:"PG_DSN"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret must be provided")
	}
	if cfg.CSRFSecret == "" {
		return nil, errors.New("csrf secret must be provided")
	}
	if cfg.BarcodeMin < 0 || cfg.BarcodeMax < cfg.BarcodeMin {
		return nil, errors.New("barcode range is invalid")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// TablePaths resolves the four ledger files. Relative names live inside
// InventoryDir; the inventory file is discovered when not configured.
func (c *Config) TablePaths() (inventory.FilePaths, error) {
	paths := inventory.FilePaths{
		Archive: c.resolve(c.ArchiveFile),
		Sales:   c.resolve(c.SalesFile),
		Audit:   c.resolve(c.AuditFile),
	}
	inv, err := inventory.ResolveInventoryFile(c.InventoryDir, c.InventoryFile, c.ArchiveFile, c.SalesFile, c.AuditFile)
	if err != nil {
		return inventory.FilePaths{}, err
	}
	paths.Inventory = inv
	return paths, nil
}

// LabelTemplatePath resolves the label template store.
func (c *Config) LabelTemplatePath() string {
	return c.resolve(c.LabelTemplateFile)
}

func (c *Config) resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.InventoryDir, name)
}
