package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when no --config flag is given
const DefaultPath = "config.yaml"

// Config holds the full application configuration
type Config struct {
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Scrape   ScrapeConfig   `yaml:"scrape" mapstructure:"scrape"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Sheets   SheetsConfig   `yaml:"sheets" mapstructure:"sheets"`
	Telegram TelegramConfig `yaml:"telegram" mapstructure:"telegram"`
	Filters  []FilterRule   `yaml:"filters" mapstructure:"filters"`
	Sites    SitesConfig    `yaml:"sites" mapstructure:"sites"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// FetchConfig configures page downloads
type FetchConfig struct {
	Engine    string        `yaml:"engine" mapstructure:"engine"` // http or colly
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent string        `yaml:"user_agent" mapstructure:"user_agent"`
}

// ScrapeConfig configures the page loop
type ScrapeConfig struct {
	Delay time.Duration `yaml:"delay" mapstructure:"delay"`
	Every time.Duration `yaml:"every" mapstructure:"every"` // repeat interval, 0 runs once
}

// OutputConfig configures the tabular file sink
type OutputConfig struct {
	Format string `yaml:"format" mapstructure:"format"` // csv or xlsx
	Dir    string `yaml:"dir" mapstructure:"dir"`
}

// DatabaseConfig enables the SQL sink when Driver is set
type DatabaseConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // postgres or sqlite
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// SheetsConfig enables the Google Sheets sink when SpreadsheetURL is set
type SheetsConfig struct {
	SpreadsheetURL  string `yaml:"spreadsheet_url" mapstructure:"spreadsheet_url"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
	Mode            string `yaml:"mode" mapstructure:"mode"` // new, overwrite or append
}

// TelegramConfig enables run summaries when Token and ChatID are set
type TelegramConfig struct {
	Token    string `yaml:"token" mapstructure:"token"`
	ChatID   int64  `yaml:"chat_id" mapstructure:"chat_id"`
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
}

// FilterRule keeps records whose numeric Field lies within [Min, Max].
// A nil bound is open.
type FilterRule struct {
	Field string   `yaml:"field" mapstructure:"field"`
	Min   *float64 `yaml:"min,omitempty" mapstructure:"min"`
	Max   *float64 `yaml:"max,omitempty" mapstructure:"max"`
}

// SitesConfig holds the per-site settings
type SitesConfig struct {
	Books  BooksConfig  `yaml:"books" mapstructure:"books"`
	Quotes QuotesConfig `yaml:"quotes" mapstructure:"quotes"`
	Custom CustomConfig `yaml:"custom" mapstructure:"custom"`
}

// BooksConfig configures the book catalogue scraper
type BooksConfig struct {
	FirstPage    string `yaml:"first_page" mapstructure:"first_page"`
	PageTemplate string `yaml:"page_template" mapstructure:"page_template"`
	MaxPages     int    `yaml:"max_pages" mapstructure:"max_pages"`
	Output       string `yaml:"output" mapstructure:"output"`
}

// QuotesConfig configures the quotes scraper
type QuotesConfig struct {
	PageTemplate string `yaml:"page_template" mapstructure:"page_template"`
	MaxPages     int    `yaml:"max_pages" mapstructure:"max_pages"`
	Output       string `yaml:"output" mapstructure:"output"`
	SampleSize   int    `yaml:"sample_size" mapstructure:"sample_size"`
}

// CustomConfig describes an arbitrary site by selectors
type CustomConfig struct {
	BaseURL      string        `yaml:"base_url" mapstructure:"base_url"`
	PageTemplate string        `yaml:"page_template" mapstructure:"page_template"`
	PageParam    string        `yaml:"page_param" mapstructure:"page_param"`
	MaxPages     int           `yaml:"max_pages" mapstructure:"max_pages"`
	Output       string        `yaml:"output" mapstructure:"output"`
	DisplayRows  int           `yaml:"display_rows" mapstructure:"display_rows"`
	Item         SelectorRule  `yaml:"item" mapstructure:"item"`
	Fields       []FieldConfig `yaml:"fields" mapstructure:"fields"`
}

// SelectorRule locates an element by tag name and class list
type SelectorRule struct {
	Tag   string `yaml:"tag" mapstructure:"tag"`
	Class string `yaml:"class" mapstructure:"class"`
}

// FieldConfig extracts one record field from inside an item.
// Attr reads an attribute instead of the element text.
type FieldConfig struct {
	Name     string `yaml:"name" mapstructure:"name"`
	Tag      string `yaml:"tag" mapstructure:"tag"`
	Class    string `yaml:"class" mapstructure:"class"`
	Attr     string `yaml:"attr,omitempty" mapstructure:"attr"`
	Optional bool   `yaml:"optional,omitempty" mapstructure:"optional"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("fetch.engine", "http")
	v.SetDefault("fetch.timeout", 10*time.Second)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	v.SetDefault("scrape.delay", time.Second)
	v.SetDefault("scrape.every", time.Duration(0))
	v.SetDefault("output.format", "csv")
	v.SetDefault("output.dir", ".")
	// empty defaults register the keys so SCRAPER_* env vars reach Unmarshal
	v.SetDefault("database.driver", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("sheets.spreadsheet_url", "")
	v.SetDefault("sheets.credentials_file", "")
	v.SetDefault("sheets.mode", "new")
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", 0)
	v.SetDefault("telegram.endpoint", "https://api.telegram.org/bot%s/%s")
	v.SetDefault("sites.books.first_page", "http://books.toscrape.com/index.html")
	v.SetDefault("sites.books.page_template", "http://books.toscrape.com/catalogue/page-{page}.html")
	v.SetDefault("sites.books.max_pages", 5)
	v.SetDefault("sites.books.output", "books_data.csv")
	v.SetDefault("sites.quotes.page_template", "http://quotes.toscrape.com/page/{page}/")
	v.SetDefault("sites.quotes.max_pages", 10)
	v.SetDefault("sites.quotes.output", "quotes_data.csv")
	v.SetDefault("sites.quotes.sample_size", 5)
	v.SetDefault("sites.custom.base_url", "https://example.com")
	v.SetDefault("sites.custom.max_pages", 1)
	v.SetDefault("sites.custom.output", "scraped_data.csv")
	v.SetDefault("sites.custom.display_rows", 10)
	v.SetDefault("sites.custom.item.tag", "div")
	v.SetDefault("sites.custom.item.class", "item")
}

// Load reads configuration from path (optional) and the environment.
// A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path == "" {
		path = DefaultPath
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Environment
	v.SetEnvPrefix("SCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
		return nil, eris.Wrap(err, "config: read file")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Default returns the built-in configuration without touching disk or env
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// defaults always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// isNotFound reports a missing config file. SetConfigFile surfaces it as a
// filesystem error rather than viper.ConfigFileNotFoundError.
func isNotFound(err error) bool {
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return true
	}
	return errors.Is(err, fs.ErrNotExist)
}

// YAML renders the configuration for display
func (c *Config) YAML() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", eris.Wrap(err, "config: marshal yaml")
	}
	return string(out), nil
}

// InitLogger initializes the global zap logger
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
