package config

import "time"

// Config is the root deckgen configuration.
type Config struct {
	Input    InputConfig    `yaml:"input"`
	Output   OutputConfig   `yaml:"output"`
	Filter   FilterConfig   `yaml:"filter"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
}

// InputConfig holds source file settings.
type InputConfig struct {
	WiktionaryPath string `yaml:"wiktionary_path" env:"DECKGEN_WIKTIONARY_PATH"`
	FrequencyPath  string `yaml:"frequency_path"  env:"DECKGEN_FREQUENCY_PATH"`
	FrequencyMode  string `yaml:"frequency_mode"  env:"DECKGEN_FREQUENCY_MODE"  env-default:"position"`
	Language       string `yaml:"language"        env:"DECKGEN_LANGUAGE"        env-default:"English"`
}

// OutputConfig holds output settings.
type OutputConfig struct {
	CSVPath string `yaml:"csv_path" env:"DECKGEN_OUTPUT" env-default:"english.csv"`
}

// FilterConfig holds sense filter settings.
type FilterConfig struct {
	MinDefinitionLength int      `yaml:"min_definition_length" env:"DECKGEN_MIN_DEF_LENGTH" env-default:"10"`
	ExcludedTags        []string `yaml:"excluded_tags"         env:"DECKGEN_EXCLUDED_TAGS"  env-default:"no-gloss" env-separator:","`
}

// PipelineConfig holds processing settings. Input lines longer than
// MaxLineBytes are skipped and counted as malformed.
type PipelineConfig struct {
	// Limit caps the number of input records read (0 = all).
	Limit         int `yaml:"limit"          env:"DECKGEN_LIMIT"`
	Workers       int `yaml:"workers"        env:"DECKGEN_WORKERS"`
	Shards        int `yaml:"shards"         env:"DECKGEN_SHARDS"`
	BatchLines    int `yaml:"batch_lines"    env:"DECKGEN_BATCH_LINES"    env-default:"512"`
	MaxRank       int `yaml:"max_rank"       env:"DECKGEN_MAX_RANK"       env-default:"100000"`
	ProgressEvery int `yaml:"progress_every" env:"DECKGEN_PROGRESS_EVERY" env-default:"10000"`
	MaxLineBytes  int `yaml:"max_line_bytes" env:"DECKGEN_MAX_LINE_BYTES" env-default:"16777216"`
}

// DatabaseConfig holds PostgreSQL settings for the optional catalog export.
// An empty DSN disables the export.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"4"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	BatchSize       int           `yaml:"batch_size"         env:"DATABASE_BATCH_SIZE"         env-default:"1000"`
}

// Enabled reports whether the catalog export is configured.
func (c DatabaseConfig) Enabled() bool { return c.DSN != "" }

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}
