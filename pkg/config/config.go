package config

import (
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

type Config struct {
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count" default:"5"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay" default:"2s"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseFilePath          string        `koanf:"database_file_path" default:"./narou.sqlite" validate:"required"`
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout" default:"5s"`

	SiteBaseURL    string `koanf:"site_base_url" default:"http://ncode.syosetu.com" validate:"required,url"`
	MetadataAPIURL string `koanf:"metadata_api_url" default:"http://api.syosetu.com/novelapi/api/" validate:"required,url"`
	RankingURL     string `koanf:"ranking_url" default:"http://yomou.syosetu.com/rank/list/type/total_total/" validate:"required,url"`
	UserAgent      string `koanf:"user_agent" default:"Mozilla/5.0"`

	// RetryDelay is the pause before retrying a metadata or index page
	// request that failed without a rate-limit signal.
	RetryDelay time.Duration `koanf:"retry_delay" default:"1s"`

	// Metadata precheck.
	MetadataBatchSize int `koanf:"metadata_batch_size" default:"20" validate:"min=1,max=100"`

	// Chapter fetching.
	BatchSize         int           `koanf:"batch_size" default:"25" validate:"min=1"`
	ConnectionLimit   int           `koanf:"connection_limit" default:"25" validate:"min=1"`
	ChaptersPerSecond float64       `koanf:"chapters_per_second" default:"10" validate:"gt=0"`
	RateLimitWait     time.Duration `koanf:"rate_limit_wait" default:"10s"`
	ChapterTimeout    time.Duration `koanf:"chapter_timeout" default:"8s" validate:"gt=0"`
	// MaxAttempts caps how many times one chapter is tried. Zero retries forever.
	MaxAttempts        int    `koanf:"max_attempts" validate:"min=0"`
	WorkTimestampCheck bool   `koanf:"work_timestamp_check" default:"true"`
	ChapterCheck       string `koanf:"chapter_check" default:"strict" validate:"oneof=strict seen off"`
	WorkConcurrency    int    `koanf:"work_concurrency" default:"1" validate:"min=1"`
	RateLimitStatus    int    `koanf:"rate_limit_status" default:"503"`
	RateLimitMarker    string `koanf:"rate_limit_marker" default:"Too many access!"`
	ContentSelector    string `koanf:"content_selector" default:".novel_view" validate:"required"`

	SyncIntervalMinutes int    `koanf:"sync_interval_minutes" validate:"min=0"`
	WorkerProcesses     int    `koanf:"worker_processes" default:"1" validate:"min=1"`
	// JobLease is how long a running job may go without a heartbeat before
	// another process takes it over.
	JobLease time.Duration `koanf:"job_lease" default:"2m" validate:"gt=0"`

	ServerHost string `koanf:"server_host" default:"127.0.0.1"`
	ServerPort int    `koanf:"server_port" default:"3690"`

	ExportDir string `koanf:"export_dir" default:"."`
	DumpDir   string `koanf:"dump_dir" default:"scripts"`
}

const configFileENV = "CONFIG_FILE"

func New() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	k := koanf.New(".")

	configFile := os.Getenv(configFileENV)
	if configFile == "" {
		configFile = "./config.yaml"
	}
	if _, err := os.Stat(configFile); err == nil {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", configFile)
		}
	}

	known := knownKeys()
	err := k.Load(env.Provider("", ".", func(s string) string {
		key := strings.ToLower(s)
		if _, ok := known[key]; !ok {
			return ""
		}
		return key
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	err = k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewForTest returns a config with an in-memory database and timings short
// enough for tests that exercise sleeps and backoff.
func NewForTest() *Config {
	cfg := &Config{}
	_ = defaults.Set(cfg)
	cfg.DatabaseFilePath = ":memory:"
	cfg.DatabaseConnectRetryCount = 1
	cfg.DatabaseConnectRetryDelay = 0
	cfg.RetryDelay = time.Millisecond
	cfg.RateLimitWait = 5 * time.Millisecond
	cfg.ChapterTimeout = 2 * time.Second
	cfg.ChaptersPerSecond = 10000
	return cfg
}

func validate(cfg *Config) error {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("koanf")
	})
	err := v.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errors.WithStack(err)
	}

	fe := verrs[0]
	key := fe.Field()
	if fe.Tag() == "required" {
		return errors.Errorf("missing required config: %s (%s)", strings.ToUpper(key), key)
	}
	return errors.Errorf("invalid config %s: failed %q check (value %v)", key, fe.Tag(), fe.Value())
}

func knownKeys() map[string]struct{} {
	keys := map[string]struct{}{}
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("koanf"); tag != "" {
			keys[tag] = struct{}{}
		}
	}
	return keys
}
