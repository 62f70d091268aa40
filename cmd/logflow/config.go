package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/notmyname/logflow/internal/aggregate"
	"github.com/notmyname/logflow/internal/classify"
	"github.com/notmyname/logflow/internal/duckdb"
	"github.com/notmyname/logflow/internal/extract"
	"github.com/notmyname/logflow/internal/graph"
	"github.com/notmyname/logflow/internal/httpserver"
	"github.com/notmyname/logflow/internal/ingest"
	"github.com/notmyname/logflow/internal/model"
	"github.com/notmyname/logflow/internal/objstore"
	"github.com/notmyname/logflow/internal/pipeline"
	"github.com/notmyname/logflow/internal/report"
	"github.com/notmyname/logflow/internal/timestamp"
)

const (
	envPrefix         = "LOGFLOW"
	defaultOutDir     = "."
	defaultFormat     = string(report.FormatJSON)
	defaultWorkers    = 1
	defaultLogLevel   = "info"
	defaultChartWidth = 80
)

// appConfig is the merged result of flags, environment and config file.
type appConfig struct {
	Resolution     float64  `mapstructure:"resolution"`
	Lookback       int      `mapstructure:"lookback"`
	PrefixWidth    int      `mapstructure:"prefix-width"`
	StatusMode     string   `mapstructure:"status-mode"`
	MergePIDs      bool     `mapstructure:"merge-pids"`
	Graph          bool     `mapstructure:"graph"`
	PerDrive       bool     `mapstructure:"per-drive"`
	StorageGrammar string   `mapstructure:"storage-grammar"`
	MaxThickness   float64  `mapstructure:"max-thickness"`
	MaxLatency     float64  `mapstructure:"max-latency"`
	LatencyMethods []string `mapstructure:"latency-methods"`

	Workers       int   `mapstructure:"workers"`
	BatchSize     int   `mapstructure:"batch-size"`
	MaxLines      int64 `mapstructure:"max-lines"`
	ProgressEvery int64 `mapstructure:"progress-every"`
	ReadBuffer    int   `mapstructure:"read-buffer"`

	SyslogYear int    `mapstructure:"syslog-year"`
	Timezone   string `mapstructure:"timezone"`

	OutDir      string `mapstructure:"out-dir"`
	Format      string `mapstructure:"format"`
	RejectsFile string `mapstructure:"rejects-file"`
	Verbose     bool   `mapstructure:"verbose"`

	DuckDB         string        `mapstructure:"duckdb"`
	DuckDBKeepRuns int           `mapstructure:"duckdb-keep-runs"`
	QueryTimeout   time.Duration `mapstructure:"query-timeout"`

	Serve   bool   `mapstructure:"serve"`
	APIAddr string `mapstructure:"api-addr"`

	UploadURL      string `mapstructure:"upload-url"`
	S3Endpoint     string `mapstructure:"s3-endpoint"`
	S3Region       string `mapstructure:"s3-region"`
	S3AccessKey    string `mapstructure:"s3-access-key"`
	S3SecretKey    string `mapstructure:"s3-secret-key"`
	S3SessionToken string `mapstructure:"s3-session-token"`
	S3UseSSL       bool   `mapstructure:"s3-use-ssl"`
	CreateBucket   bool   `mapstructure:"create-bucket"`

	LogLevel   string `mapstructure:"log-level"`
	LogConsole bool   `mapstructure:"log-console"`

	Inputs     []string `mapstructure:"-"`
	ConfigPath string   `mapstructure:"-"`
}

// newFlagSet declares every command line flag. Flag defaults double as
// viper defaults once the set is bound.
func newFlagSet(stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("logflow", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SortFlags = false
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: logflow [flags] <file|-|s3://bucket/key>...\n\n")
		fs.PrintDefaults()
	}

	fs.Float64("resolution", model.DefaultResolution, "bucket width in seconds")
	fs.Int("lookback", model.DefaultLookback, "rolling latency window in seconds")
	fs.Int("prefix-width", 0, "strip exactly this many leading characters (0 auto-detects the syslog timestamp)")
	fs.String("status-mode", string(graph.StatusFull), "edge status granularity: full, class or none")
	fs.Bool("merge-pids", false, "collapse worker pids into one graph node per daemon")
	fs.Bool("graph", false, "build the request flow graph")
	fs.Bool("per-drive", false, "track concurrency per object-server drive")
	fs.String("storage-grammar", string(extract.GrammarFields), "storage line grammar: fields or regex")
	fs.Float64("max-thickness", model.DefaultMaxThickness, "thickness of the heaviest graph edge")
	fs.Float64("max-latency", model.DefaultMaxLatency, "drop client latency samples at or above this many seconds")
	fs.StringSlice("latency-methods", nil, "only sample client latency for these methods (default all)")

	fs.Int("workers", defaultWorkers, "parallel workers (1 runs sequentially)")
	fs.Int("batch-size", model.DefaultBatchSize, "lines handed to a worker at a time")
	fs.Int64("max-lines", 0, "stop after this many lines (0 reads everything)")
	fs.Int64("progress-every", model.DefaultProgressEvery, "log progress every N lines at debug level")
	fs.Int("read-buffer", model.DefaultReadBuffer, "input read buffer in bytes")

	fs.Int("syslog-year", 0, "year assumed for syslog timestamps (0 is the current year)")
	fs.String("timezone", "", "zone assumed for syslog timestamps (default local)")

	fs.StringP("out-dir", "o", defaultOutDir, "directory for output files")
	fs.String("format", defaultFormat, "full report format: json or yaml")
	fs.String("rejects-file", "", "journal every rejected line with its reason to this file")
	fs.BoolP("verbose", "v", false, "print skip counts by reason")

	fs.String("duckdb", "", "export the report into this DuckDB database")
	fs.Int("duckdb-keep-runs", 0, "keep only the newest N runs in the database (0 keeps all)")
	fs.Duration("query-timeout", duckdb.DefaultQueryTimeout, "timeout for database queries")

	fs.Bool("serve", false, "serve the report over HTTP until interrupted")
	fs.String("api-addr", httpserver.DefaultAddr, "HTTP listen address")

	fs.String("upload-url", "", "upload artifacts to s3://bucket/prefix")
	fs.String("s3-endpoint", "", "S3-compatible endpoint")
	fs.String("s3-region", "", "S3 region")
	fs.String("s3-access-key", "", "S3 access key")
	fs.String("s3-secret-key", "", "S3 secret key")
	fs.String("s3-session-token", "", "S3 session token")
	fs.Bool("s3-use-ssl", true, "use TLS for the S3 endpoint")
	fs.Bool("create-bucket", false, "create the upload bucket if missing")

	fs.String("log-level", defaultLogLevel, "log level")
	fs.Bool("log-console", true, "human-readable logs instead of JSON")

	fs.String("config", "", "config file (default is $HOME/.config/logflow/config.yml)")
	fs.Bool("version", false, "print version information")
	return fs
}

// loadConfig merges an already parsed flag set with LOGFLOW_* variables and
// the config file. Explicit flags win, then environment, then file.
func loadConfig(fs *pflag.FlagSet) (appConfig, error) {
	var cfg appConfig

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if err := v.BindPFlags(fs); err != nil {
		return cfg, fmt.Errorf("binding flags: %w", err)
	}

	configPath, _ := fs.GetString("config")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.SetConfigFile(filepath.Join(home, ".config", "logflow", "config.yml"))
	}

	configLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
		configLoaded = false
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	if configLoaded {
		cfg.ConfigPath = v.ConfigFileUsed()
	}
	cfg.Inputs = fs.Args()

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *appConfig) validate() error {
	if c.Resolution <= 0 {
		return fmt.Errorf("invalid resolution: %v", c.Resolution)
	}
	if c.Lookback < 1 {
		return fmt.Errorf("invalid lookback: %d", c.Lookback)
	}
	if c.PrefixWidth < 0 {
		return fmt.Errorf("invalid prefix-width: %d", c.PrefixWidth)
	}
	if c.Workers < 1 {
		return fmt.Errorf("invalid workers: %d", c.Workers)
	}
	if c.MaxLines < 0 {
		return fmt.Errorf("invalid max-lines: %d", c.MaxLines)
	}
	if c.MaxThickness <= 0 {
		return fmt.Errorf("invalid max-thickness: %v", c.MaxThickness)
	}
	if c.DuckDBKeepRuns < 0 {
		return fmt.Errorf("invalid duckdb-keep-runs: %d", c.DuckDBKeepRuns)
	}
	if _, err := graph.ParseStatusMode(c.StatusMode); err != nil {
		return err
	}
	if _, err := extract.ParseGrammar(c.StorageGrammar); err != nil {
		return err
	}
	if _, err := report.ParseFormat(c.Format); err != nil {
		return err
	}
	if _, err := c.location(); err != nil {
		return err
	}

	if home, err := os.UserHomeDir(); err == nil {
		c.OutDir = expandHome(c.OutDir, home)
		c.DuckDB = expandHome(c.DuckDB, home)
		c.RejectsFile = expandHome(c.RejectsFile, home)
	}
	return nil
}

func expandHome(path, home string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

func (c *appConfig) location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// pipelineConfig builds the run configuration. Logger and Rejects are left
// for the caller.
func (c *appConfig) pipelineConfig() (pipeline.Config, error) {
	status, err := graph.ParseStatusMode(c.StatusMode)
	if err != nil {
		return pipeline.Config{}, err
	}
	grammar, err := extract.ParseGrammar(c.StorageGrammar)
	if err != nil {
		return pipeline.Config{}, err
	}
	loc, err := c.location()
	if err != nil {
		return pipeline.Config{}, err
	}

	an := aggregate.DefaultConfig()
	an.Resolution = c.Resolution
	an.Lookback = c.Lookback
	an.PerDrive = c.PerDrive
	an.Edges = c.Graph
	an.Graph = graph.Options{StatusMode: status, MergePIDs: c.MergePIDs}
	an.MaxThickness = c.MaxThickness
	an.Latency.MaxLatency = c.MaxLatency
	an.Latency.Methods = c.LatencyMethods

	// The flow graph folds the generic "swift" tag into the reconciler.
	canon := classify.DefaultCanon
	if c.Graph {
		canon = classify.GraphCanon
	}

	return pipeline.Config{
		Analysis: an,
		Ingest: ingest.Options{
			Classify: classify.Options{PrefixWidth: c.PrefixWidth, Canon: canon},
			Extract: extract.Options{
				Parser:         timestamp.NewParser(timestamp.WithYear(c.SyslogYear), timestamp.WithLocation(loc)),
				StorageGrammar: grammar,
			},
		},
		Workers:       c.Workers,
		BatchSize:     c.BatchSize,
		MaxLines:      c.MaxLines,
		ProgressEvery: c.ProgressEvery,
	}, nil
}

func (c *appConfig) s3Config() objstore.S3Config {
	return objstore.S3Config{
		Endpoint:     c.S3Endpoint,
		Region:       c.S3Region,
		AccessKey:    c.S3AccessKey,
		SecretKey:    c.S3SecretKey,
		SessionToken: c.S3SessionToken,
		UseSSL:       c.S3UseSSL,
	}
}

func (c *appConfig) format() report.Format {
	f, _ := report.ParseFormat(c.Format)
	return f
}
