package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/pdf2jpk/constants"
	"github.com/joseph-ayodele/pdf2jpk/internal/entity"
)

// Config holds all application configuration
type Config struct {
	Store  StoreConfig  `yaml:"store"`
	OCR    OCRConfig    `yaml:"ocr"`
	Filer  FilerConfig  `yaml:"filer"`
	Server ServerConfig `yaml:"server"`
	Worker WorkerConfig `yaml:"worker"`
	Log    LogConfig    `yaml:"log"`
}

// StoreConfig holds job store configuration
type StoreConfig struct {
	JobsDir   string        `yaml:"jobs_dir"`
	LeaseDB   string        `yaml:"lease_db"`
	LeaseTTL  time.Duration `yaml:"lease_ttl"`
	DedupeSHA bool          `yaml:"dedupe_sha"`
}

// OCRConfig holds text acquisition configuration
type OCRConfig struct {
	PdfToText   string   `yaml:"pdftotext"`
	PdfToPPM    string   `yaml:"pdftoppm"`
	Tesseract   string   `yaml:"tesseract"`
	Languages   string   `yaml:"languages"`
	DPI         int      `yaml:"dpi"`
	TessdataDir string   `yaml:"tessdata_dir"`
	Rasterizer  string   `yaml:"rasterizer"` // pdftoppm | fitz
	Backends    []string `yaml:"backends"`   // structural backends, in order
	ScratchDir  string   `yaml:"scratch_dir"`
}

// FilerConfig holds default filer metadata for submissions that omit it
type FilerConfig struct {
	CompanyName string `yaml:"company_name"`
	CompanyNIP  string `yaml:"company_nip"`
	OfficeCode  string `yaml:"office_code"`
	Purpose     int    `yaml:"purpose"`
	FirstName   string `yaml:"first_name"`
	LastName    string `yaml:"last_name"`
	BirthDate   string `yaml:"birth_date"`
	Email       string `yaml:"email"`
	Phone       string `yaml:"phone"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	InlineSweep    bool   `yaml:"inline_sweep"`
}

// WorkerConfig holds sweep scheduling configuration
type WorkerConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	SweepTimeout time.Duration `yaml:"sweep_timeout"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

func defaults() Config {
	return Config{
		Store: StoreConfig{
			JobsDir:   "./jobs",
			LeaseDB:   "./jobs/leases.db",
			LeaseTTL:  10 * time.Minute,
			DedupeSHA: true,
		},
		OCR: OCRConfig{
			PdfToText:  "pdftotext",
			PdfToPPM:   "pdftoppm",
			Tesseract:  "tesseract",
			Languages:  "pol+eng",
			DPI:        300,
			Rasterizer: "pdftoppm",
			Backends:   []string{"ledongthuc", "pdfcpu"},
		},
		Filer: FilerConfig{
			OfficeCode: constants.DefaultOfficeCode,
			Purpose:    constants.PurposeFiling,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			MaxUploadBytes: 64 << 20,
			InlineSweep:    true,
		},
		Worker: WorkerConfig{
			PollInterval: 30 * time.Second,
			SweepTimeout: 30 * time.Minute,
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig loads configuration from an optional .env file, an optional YAML
// file named by PDF2JPK_CONFIG, and environment variables, in increasing priority.
func LoadConfig() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := defaults()
	if path := os.Getenv("PDF2JPK_CONFIG"); path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return nil, NewAppError("CONFIG_ERROR", "read config file", err)
		}
	}
	applyEnv(&cfg)
	return &cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(c *Config) {
	c.Store.JobsDir = getEnv("JOBS_DIR", c.Store.JobsDir)
	c.Store.LeaseDB = getEnv("LEASE_DB", c.Store.LeaseDB)
	c.Store.LeaseTTL = getEnvAsDuration("LEASE_TTL", c.Store.LeaseTTL)
	c.Store.DedupeSHA = getEnvAsBool("DEDUPE_SHA", c.Store.DedupeSHA)

	c.OCR.PdfToText = getEnv("PDFTOTEXT_BIN", c.OCR.PdfToText)
	c.OCR.PdfToPPM = getEnv("PDFTOPPM_BIN", c.OCR.PdfToPPM)
	c.OCR.Tesseract = getEnv("TESSERACT_BIN", c.OCR.Tesseract)
	c.OCR.Languages = getEnv("OCR_LANGUAGES", c.OCR.Languages)
	c.OCR.DPI = getEnvAsInt("OCR_DPI", c.OCR.DPI)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.Rasterizer = getEnv("OCR_RASTERIZER", c.OCR.Rasterizer)
	c.OCR.Backends = getEnvAsList("OCR_BACKENDS", c.OCR.Backends)
	c.OCR.ScratchDir = getEnv("OCR_SCRATCH_DIR", c.OCR.ScratchDir)

	c.Filer.CompanyName = getEnv("FILER_COMPANY_NAME", c.Filer.CompanyName)
	c.Filer.CompanyNIP = getEnv("FILER_NIP", c.Filer.CompanyNIP)
	c.Filer.OfficeCode = getEnv("FILER_OFFICE_CODE", c.Filer.OfficeCode)
	c.Filer.Purpose = getEnvAsInt("FILER_PURPOSE", c.Filer.Purpose)
	c.Filer.FirstName = getEnv("FILER_FIRST_NAME", c.Filer.FirstName)
	c.Filer.LastName = getEnv("FILER_LAST_NAME", c.Filer.LastName)
	c.Filer.BirthDate = getEnv("FILER_BIRTH_DATE", c.Filer.BirthDate)
	c.Filer.Email = getEnv("FILER_EMAIL", c.Filer.Email)
	c.Filer.Phone = getEnv("FILER_PHONE", c.Filer.Phone)

	c.Server.Addr = getEnv("HTTP_ADDR", c.Server.Addr)
	c.Server.MaxUploadBytes = getEnvAsInt64("MAX_UPLOAD_BYTES", c.Server.MaxUploadBytes)
	c.Server.InlineSweep = getEnvAsBool("INLINE_SWEEP", c.Server.InlineSweep)

	c.Worker.PollInterval = getEnvAsDuration("WORKER_POLL_INTERVAL", c.Worker.PollInterval)
	c.Worker.SweepTimeout = getEnvAsDuration("WORKER_SWEEP_TIMEOUT", c.Worker.SweepTimeout)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Store.JobsDir == "" {
		return NewAppError("CONFIG_ERROR", "JOBS_DIR is required", ErrInvalidInput)
	}
	if c.Store.LeaseTTL <= 0 {
		return NewAppError("CONFIG_ERROR", "LEASE_TTL must be positive", ErrInvalidInput)
	}
	switch c.OCR.Rasterizer {
	case "pdftoppm", "fitz":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown OCR_RASTERIZER %q", c.OCR.Rasterizer), ErrInvalidInput)
	}
	for _, b := range c.OCR.Backends {
		switch b {
		case "ledongthuc", "pdfcpu", "pdftotext":
		default:
			return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown structural backend %q", b), ErrInvalidInput)
		}
	}
	if c.OCR.DPI <= 0 {
		return NewAppError("CONFIG_ERROR", "OCR_DPI must be positive", ErrInvalidInput)
	}
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return NewAppError("CONFIG_ERROR", "LOG_LEVEL", err)
	}
	return nil
}

// Apply fills the blank fields of meta from the configured filer defaults.
func (f FilerConfig) Apply(meta entity.JobMeta) entity.JobMeta {
	fill := func(dst *string, def string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = def
		}
	}
	fill(&meta.CompanyName, f.CompanyName)
	fill(&meta.CompanyNIP, f.CompanyNIP)
	fill(&meta.OfficeCode, f.OfficeCode)
	fill(&meta.FirstName, f.FirstName)
	fill(&meta.LastName, f.LastName)
	fill(&meta.BirthDate, f.BirthDate)
	fill(&meta.Email, f.Email)
	fill(&meta.Phone, f.Phone)
	if meta.Purpose == 0 {
		meta.Purpose = f.Purpose
	}
	meta.CompanyNIP = NormalizeNIP(meta.CompanyNIP)
	return meta
}
