package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Anthropic    AnthropicConfig    `yaml:"anthropic" mapstructure:"anthropic"`
	Tools        ToolsConfig        `yaml:"tools" mapstructure:"tools"`
	GitHub       GitHubConfig       `yaml:"github" mapstructure:"github"`
	Numverify    NumverifyConfig    `yaml:"numverify" mapstructure:"numverify"`
	SerpAPI      SerpAPIConfig      `yaml:"serpapi" mapstructure:"serpapi"`
	ScrapingDog  ScrapingDogConfig  `yaml:"scrapingdog" mapstructure:"scrapingdog"`
	ESPY         ESPYConfig         `yaml:"espy" mapstructure:"espy"`
	Hyperbrowser HyperbrowserConfig `yaml:"hyperbrowser" mapstructure:"hyperbrowser"`
	OpenCage     OpenCageConfig     `yaml:"opencage" mapstructure:"opencage"`
	Scrape       ScrapeConfig       `yaml:"scrape" mapstructure:"scrape"`
	LinkCache    LinkCacheConfig    `yaml:"link_cache" mapstructure:"link_cache"`
	Services     ServicesConfig     `yaml:"services" mapstructure:"services"`
	Holehe       CLIConfig          `yaml:"holehe" mapstructure:"holehe"`
	Ignorant     CLIConfig          `yaml:"ignorant" mapstructure:"ignorant"`
	Region       RegionConfig       `yaml:"region" mapstructure:"region"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StoreConfig configures the run log backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings. Each collaborator has its
// own model so cheap calls (extract, hint) can use a smaller model.
type AnthropicConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	ExtractModel   string `yaml:"extract_model" mapstructure:"extract_model"`
	SynthesisModel string `yaml:"synthesis_model" mapstructure:"synthesis_model"`
	JudgeModel     string `yaml:"judge_model" mapstructure:"judge_model"`
	PlanModel      string `yaml:"plan_model" mapstructure:"plan_model"`
}

// ToolToggle is the enable flag and timeout shared by optional tools.
type ToolToggle struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// FinderConfig configures the search-engine profile finders.
type FinderConfig struct {
	Enabled       bool          `yaml:"enabled" mapstructure:"enabled"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxQueries    int           `yaml:"max_queries" mapstructure:"max_queries"`
	MaxResults    int           `yaml:"max_results" mapstructure:"max_results"`
	DefaultMarket string        `yaml:"default_market" mapstructure:"default_market"`
}

// ToolsConfig holds per-tool enable flags and timeouts.
type ToolsConfig struct {
	GitHub         ToolToggle   `yaml:"github" mapstructure:"github"`
	GitHubExtras   ToolToggle   `yaml:"github_extras" mapstructure:"github_extras"`
	Numverify      ToolToggle   `yaml:"numverify" mapstructure:"numverify"`
	GHunt          ToolToggle   `yaml:"ghunt" mapstructure:"ghunt"`
	LinkedInFinder FinderConfig `yaml:"linkedin_finder" mapstructure:"linkedin_finder"`
	XFinder        FinderConfig `yaml:"x_finder" mapstructure:"x_finder"`
	LinkedInVerify ToolToggle   `yaml:"linkedin_verify" mapstructure:"linkedin_verify"`
	XVerify        ToolToggle   `yaml:"x_verify" mapstructure:"x_verify"`
}

// GitHubConfig configures profile page fetches.
type GitHubConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// NumverifyConfig holds Numverify credentials.
type NumverifyConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// SerpAPIConfig holds SerpAPI credentials.
type SerpAPIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ScrapingDogConfig holds ScrapingDog credentials.
type ScrapingDogConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	DefaultCountry string `yaml:"default_country" mapstructure:"default_country"`
}

// ESPYConfig configures the ESPY start-then-poll client.
type ESPYConfig struct {
	Key          string        `yaml:"key" mapstructure:"key"`
	BaseURL      string        `yaml:"base_url" mapstructure:"base_url"`
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	PollAttempts int           `yaml:"poll_attempts" mapstructure:"poll_attempts"`
	MinInterval  time.Duration `yaml:"min_interval" mapstructure:"min_interval"`
}

// HyperbrowserConfig configures browser scrape/extract/crawl jobs.
type HyperbrowserConfig struct {
	Key            string        `yaml:"key" mapstructure:"key"`
	BaseURL        string        `yaml:"base_url" mapstructure:"base_url"`
	Concurrency    int           `yaml:"concurrency" mapstructure:"concurrency"`
	EnableScrape   bool          `yaml:"enable_scrape" mapstructure:"enable_scrape"`
	EnableExtract  bool          `yaml:"enable_extract" mapstructure:"enable_extract"`
	EnableCrawl    bool          `yaml:"enable_crawl" mapstructure:"enable_crawl"`
	ScrapeTimeout  time.Duration `yaml:"scrape_timeout" mapstructure:"scrape_timeout"`
	ExtractTimeout time.Duration `yaml:"extract_timeout" mapstructure:"extract_timeout"`
	CrawlTimeout   time.Duration `yaml:"crawl_timeout" mapstructure:"crawl_timeout"`
}

// OpenCageConfig holds OpenCage credentials.
type OpenCageConfig struct {
	Key      string `yaml:"key" mapstructure:"key"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	Language string `yaml:"language" mapstructure:"language"`
}

// ScrapeConfig constrains plan execution.
type ScrapeConfig struct {
	Enabled           bool     `yaml:"enabled" mapstructure:"enabled"`
	AllowlistHosts    []string `yaml:"allowlist_hosts" mapstructure:"allowlist_hosts"`
	MaxURLsPerRequest int      `yaml:"max_urls_per_request" mapstructure:"max_urls_per_request"`
	MaxSteps          int      `yaml:"max_steps" mapstructure:"max_steps"`
}

// LinkCacheConfig configures discovery URL memoization.
type LinkCacheConfig struct {
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// ServicesConfig points at the service alias table. Empty uses the
// embedded table.
type ServicesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// CLIConfig configures an external account-enumeration command.
type CLIConfig struct {
	Binary  string        `yaml:"binary" mapstructure:"binary"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// RegionConfig configures region inference.
type RegionConfig struct {
	DefaultCountry string `yaml:"default_country" mapstructure:"default_country"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OSINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "osint.db")

	// Secrets have no default but must be known to viper so that
	// AutomaticEnv picks them up during Unmarshal.
	for _, k := range []string{"anthropic.key", "numverify.key", "serpapi.key", "scrapingdog.key", "espy.key", "hyperbrowser.key", "opencage.key", "services.path"} {
		v.SetDefault(k, "")
	}

	v.SetDefault("anthropic.extract_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.synthesis_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.judge_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.plan_model", "claude-haiku-4-5-20251001")

	v.SetDefault("tools.github.enabled", true)
	v.SetDefault("tools.github.timeout", 10*time.Second)
	v.SetDefault("tools.github_extras.enabled", false)
	v.SetDefault("tools.github_extras.timeout", 10*time.Second)
	v.SetDefault("tools.numverify.enabled", true)
	v.SetDefault("tools.numverify.timeout", 10*time.Second)
	v.SetDefault("tools.ghunt.enabled", true)
	v.SetDefault("tools.ghunt.timeout", 10*time.Second)
	for _, f := range []string{"linkedin_finder", "x_finder"} {
		v.SetDefault("tools."+f+".enabled", false)
		v.SetDefault("tools."+f+".timeout", 10*time.Second)
		v.SetDefault("tools."+f+".max_queries", 4)
		v.SetDefault("tools."+f+".max_results", 3)
		v.SetDefault("tools."+f+".default_market", "en-US")
	}
	v.SetDefault("tools.linkedin_verify.enabled", false)
	v.SetDefault("tools.linkedin_verify.timeout", 30*time.Second)
	v.SetDefault("tools.x_verify.enabled", false)
	v.SetDefault("tools.x_verify.timeout", 20*time.Second)

	v.SetDefault("github.base_url", "https://github.com")
	v.SetDefault("numverify.base_url", "http://apilayer.net/api")
	v.SetDefault("serpapi.base_url", "https://serpapi.com")
	v.SetDefault("scrapingdog.base_url", "https://api.scrapingdog.com")
	v.SetDefault("scrapingdog.default_country", "US")
	v.SetDefault("opencage.base_url", "https://api.opencagedata.com/geocode/v1")
	v.SetDefault("opencage.language", "en")

	v.SetDefault("espy.base_url", "https://irbis.espysys.com/api")
	v.SetDefault("espy.poll_interval", 3*time.Second)
	v.SetDefault("espy.poll_attempts", 10)
	v.SetDefault("espy.min_interval", time.Second)

	v.SetDefault("hyperbrowser.base_url", "https://app.hyperbrowser.ai/api")
	v.SetDefault("hyperbrowser.concurrency", 2)
	v.SetDefault("hyperbrowser.enable_scrape", true)
	v.SetDefault("hyperbrowser.enable_extract", true)
	v.SetDefault("hyperbrowser.enable_crawl", true)
	v.SetDefault("hyperbrowser.scrape_timeout", 30*time.Second)
	v.SetDefault("hyperbrowser.extract_timeout", 90*time.Second)
	v.SetDefault("hyperbrowser.crawl_timeout", 90*time.Second)

	v.SetDefault("scrape.enabled", true)
	v.SetDefault("scrape.allowlist_hosts", []string{"github.com", "x.com", "medium.com", "dev.to"})
	v.SetDefault("scrape.max_urls_per_request", 5)
	v.SetDefault("scrape.max_steps", 5)

	v.SetDefault("link_cache.ttl", 900*time.Second)

	v.SetDefault("holehe.binary", "holehe")
	v.SetDefault("holehe.timeout", 60*time.Second)
	v.SetDefault("ignorant.binary", "ignorant")
	v.SetDefault("ignorant.timeout", 60*time.Second)

	v.SetDefault("region.default_country", "US")
}

// InitLogger initializes the global zap logger.
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
