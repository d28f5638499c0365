// Package config loads and validates scanner configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/pris-scanner/internal/storage/local"
)

// Store failure policies.
const (
	// PolicyAbort stops the run on the first store whose catalog cannot be fetched.
	PolicyAbort = "abort"
	// PolicySkip logs the failed store and moves on to the next one.
	PolicySkip = "skip"
)

// Config captures all scanner configuration knobs loaded via Viper.
type Config struct {
	Stores  []string      `mapstructure:"stores"`
	Search  SearchConfig  `mapstructure:"search"`
	Run     RunConfig     `mapstructure:"run"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Browser BrowserConfig `mapstructure:"browser"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Storage StorageConfig `mapstructure:"storage"`
	OCR     OCRConfig     `mapstructure:"ocr"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SearchConfig controls keyword matching.
type SearchConfig struct {
	// Terms are matched in order; the first one to clear Threshold wins.
	Terms []string `mapstructure:"terms"`
	// Threshold is the minimum partial-ratio score (0-100) for a hit.
	Threshold int `mapstructure:"threshold"`
}

// RunConfig governs the orchestrator.
type RunConfig struct {
	// Workers bounds how many images of one store are processed at once.
	Workers int `mapstructure:"workers"`
	// OnStoreError is PolicyAbort or PolicySkip.
	OnStoreError string `mapstructure:"on_store_error"`
}

// CatalogConfig describes where catalog pages live and how images are found.
type CatalogConfig struct {
	// URLTemplate contains a single %s that is replaced by the store ID.
	URLTemplate string        `mapstructure:"url_template"`
	Selector    string        `mapstructure:"selector"`
	Attribute   string        `mapstructure:"attribute"`
	WaitTimeout time.Duration `mapstructure:"wait_timeout"`
}

// BrowserConfig configures the headless browser.
type BrowserConfig struct {
	Headless  bool   `mapstructure:"headless"`
	UserAgent string `mapstructure:"user_agent"`
	NoSandbox bool   `mapstructure:"no_sandbox"`
}

// HTTPConfig configures image downloads.
type HTTPConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	UserAgent    string        `mapstructure:"user_agent"`
	MaxBodyBytes int           `mapstructure:"max_body_bytes"`
}

// StorageConfig names the working and hits directories.
type StorageConfig struct {
	WorkDir string `mapstructure:"work_dir"`
	HitsDir string `mapstructure:"hits_dir"`
}

// OCRConfig configures Tesseract.
type OCRConfig struct {
	Language   string `mapstructure:"language"`
	Preprocess bool   `mapstructure:"preprocess"`
}

// MetricsConfig toggles the optional metrics endpoint and textfile export.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	Textfile   string `mapstructure:"textfile"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// DefaultStores is the store list scanned when none is configured.
var DefaultStores = []string{
	"bunnpris", "coop-extra", "coop-mega", "coop-prix",
	"joker", "kiwi", "meny", "rema-1000", "spar", "europris",
	"gigaboks", "matkroken",
}

// DefaultTerms is the search-term list used when none is configured.
var DefaultTerms = []string{
	"battery", "red bull", "monster", "powerking", "burn", "powerade", "redbull", "trst",
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PRIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("stores", DefaultStores)
	v.SetDefault("search.terms", DefaultTerms)
	v.SetDefault("search.threshold", 80)
	v.SetDefault("run.workers", 5)
	v.SetDefault("run.on_store_error", PolicyAbort)
	v.SetDefault("catalog.url_template", "https://mattilbud.no/kundeaviser/%s-no")
	v.SetDefault("catalog.selector", "img")
	v.SetDefault("catalog.attribute", "src")
	v.SetDefault("catalog.wait_timeout", 10*time.Second)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.no_sandbox", false)
	v.SetDefault("http.timeout", 15*time.Second)
	v.SetDefault("http.user_agent", "pris-scanner/0.1")
	v.SetDefault("http.max_body_bytes", 20*1024*1024)
	v.SetDefault("storage.work_dir", "catalog_images")
	v.SetDefault("storage.hits_dir", "hits")
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.preprocess", false)
	v.SetDefault("metrics.listen_addr", "")
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if len(nonEmpty(c.Stores)) == 0 {
		return errors.New("stores must include at least one store")
	}
	seen := make(map[string]struct{}, len(c.Stores))
	for _, store := range nonEmpty(c.Stores) {
		if _, dup := seen[store]; dup {
			return fmt.Errorf("stores lists %q more than once", store)
		}
		seen[store] = struct{}{}
	}
	if len(nonEmpty(c.Search.Terms)) == 0 {
		return errors.New("search.terms must include at least one term")
	}
	if c.Search.Threshold < 0 || c.Search.Threshold > 100 {
		return fmt.Errorf("search.threshold must be within 0-100, got %d", c.Search.Threshold)
	}
	if c.Run.Workers <= 0 {
		return fmt.Errorf("run.workers must be > 0")
	}
	switch c.Run.OnStoreError {
	case PolicyAbort, PolicySkip:
	default:
		return fmt.Errorf("run.on_store_error must be %q or %q, got %q", PolicyAbort, PolicySkip, c.Run.OnStoreError)
	}
	if strings.Count(c.Catalog.URLTemplate, "%") != 1 || !strings.Contains(c.Catalog.URLTemplate, "%s") {
		return fmt.Errorf("catalog.url_template must contain exactly one %%s verb")
	}
	if strings.TrimSpace(c.Catalog.Selector) == "" || strings.TrimSpace(c.Catalog.Attribute) == "" {
		return errors.New("catalog.selector and catalog.attribute must be set")
	}
	if c.Catalog.WaitTimeout <= 0 {
		return fmt.Errorf("catalog.wait_timeout must be > 0")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	if c.HTTP.MaxBodyBytes < 0 {
		return fmt.Errorf("http.max_body_bytes must be >= 0")
	}
	if strings.TrimSpace(c.Storage.WorkDir) == "" || strings.TrimSpace(c.Storage.HitsDir) == "" {
		return errors.New("storage.work_dir and storage.hits_dir must be set")
	}
	if local.Overlap(c.Storage.WorkDir, c.Storage.HitsDir) {
		return errors.New("storage.work_dir and storage.hits_dir must not be the same or nested")
	}
	if strings.TrimSpace(c.OCR.Language) == "" {
		return errors.New("ocr.language must be set")
	}
	return nil
}

// StoreList returns the trimmed, non-empty store IDs in configured order.
func (c Config) StoreList() []string {
	return nonEmpty(c.Stores)
}

// TermList returns the trimmed, non-empty search terms in configured order.
func (c Config) TermList() []string {
	return nonEmpty(c.Search.Terms)
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
