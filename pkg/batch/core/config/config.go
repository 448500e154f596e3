// Package config defines the configuration tree of the import batch and its loader.
package config

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
type EmbeddedConfig []byte

// LogLevel defines the logging level for the application.
type LogLevel string

const (
	LogLevelDebug  LogLevel = "DEBUG"
	LogLevelInfo   LogLevel = "INFO"
	LogLevelWarn   LogLevel = "WARN"
	LogLevelError  LogLevel = "ERROR"
	LogLevelFatal  LogLevel = "FATAL"
	LogLevelSilent LogLevel = "SILENT"
)

// BatchConfig holds the job parameters of the chunked import step.
type BatchConfig struct {
	// JobName is used in logs and metric labels.
	JobName string `yaml:"job_name"`
	// StepName is used in logs and metric labels.
	StepName string `yaml:"step_name"`
	// ChunkSize is the number of records accumulated before each flush.
	ChunkSize int `yaml:"chunk_size"`
	// SkipLimit is the number of skippable failures tolerated. The failure that makes the
	// count exceed this value terminates the run.
	SkipLimit int `yaml:"skip_limit"`
	// SkippableExceptions lists registered error kind names treated as skippable.
	SkippableExceptions []string `yaml:"skippable_exceptions"`
	// InputResource is a local path or a file://, gs:// or s3:// URI.
	InputResource string `yaml:"input_resource"`
	// InputStorageRef names the storage connection used for gs:// and s3:// inputs.
	InputStorageRef string `yaml:"input_storage_ref"`
	// DataSource names an entry of the database map.
	DataSource string `yaml:"data_source"`
	// TableName is the target table.
	TableName string `yaml:"table_name"`
	// Delimiter separates fields in the input. Must be a single character.
	Delimiter string `yaml:"delimiter"`
	// LinesToSkip is the number of leading lines ignored (e.g. a header).
	LinesToSkip int `yaml:"lines_to_skip"`
	// MaxRowsPerStatement splits a chunk's INSERT into several statements when positive.
	MaxRowsPerStatement int `yaml:"max_rows_per_statement"`
	// MetricsAsyncBufferSize is the buffer size for asynchronous metric recording.
	MetricsAsyncBufferSize int `yaml:"metrics_async_buffer_size"`
	// AutoMigrate applies the embedded migrations before the import step.
	AutoMigrate bool `yaml:"auto_migrate"`
	// DryRun reads and transforms the input but discards every chunk instead of inserting it.
	DryRun bool `yaml:"dry_run"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g. "INFO", "DEBUG").
	Level string `yaml:"level"`
	// SQL is the GORM log level ("SILENT", "ERROR", "WARN", "INFO").
	SQL string `yaml:"sql"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the application timezone (e.g. "UTC", "Asia/Tokyo").
	Timezone string `yaml:"timezone"`
	// Logging is the logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// MetricsConfig selects and configures the metric backend.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	// Backend is "prometheus" or "otel".
	Backend string `yaml:"backend"`
	// PushgatewayURL receives the Prometheus registry at the end of a run when set.
	PushgatewayURL string `yaml:"pushgateway_url"`
	// OTLPEndpoint is the collector endpoint for the otel backend.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	// OTLPProtocol is "grpc" or "http".
	OTLPProtocol string `yaml:"otlp_protocol"`
	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure"`
	// Async wraps the recorder with a buffered background worker.
	Async bool `yaml:"async"`
}

// TracingConfig configures the OpenTelemetry tracer.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
	// Exporter is "otlp-grpc", "otlp-http" or "none".
	Exporter    string `yaml:"exporter"`
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// ReportConfig configures the optional export of the post-run table snapshot.
type ReportConfig struct {
	ExportEnabled bool `yaml:"export_enabled"`
	// StorageRef names the storage connection receiving the export.
	StorageRef string `yaml:"storage_ref"`
	// Bucket overrides the storage connection's default bucket.
	Bucket string `yaml:"bucket"`
	// OutputPath is the object prefix of the export.
	OutputPath string `yaml:"output_path"`
	// Compression is "SNAPPY", "GZIP" or "NONE".
	Compression string `yaml:"compression"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// MaskedParameterKeys lists job parameter keys whose values are masked in logs.
	MaskedParameterKeys []string `yaml:"masked_parameter_keys"`
}

// SurfinConfig holds all configuration under the "surfin" top-level key.
type SurfinConfig struct {
	Batch    BatchConfig    `yaml:"batch"`
	System   SystemConfig   `yaml:"system"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Report   ReportConfig   `yaml:"report"`
	Security SecurityConfig `yaml:"security"`
	// DatabaseConfigs holds named database connection settings, decoded lazily by the providers.
	DatabaseConfigs map[string]interface{} `yaml:"database"`
	// StorageConfigs holds named storage connection settings, decoded lazily by the providers.
	StorageConfigs map[string]interface{} `yaml:"storage"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Surfin SurfinConfig `yaml:"surfin"`
	// EmbeddedConfig holds the raw bytes the configuration was loaded from.
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// NewConfig returns a new instance of Config with default values.
func NewConfig() *Config {
	return &Config{
		Surfin: SurfinConfig{
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO", SQL: string(LogLevelSilent)},
			},
			Batch: BatchConfig{
				JobName:                "importUserJob",
				StepName:               "step1",
				ChunkSize:              10,
				SkipLimit:              3,
				SkippableExceptions:    []string{"ParseError"},
				InputResource:          "sample-data.csv",
				DataSource:             "default",
				TableName:              "people",
				Delimiter:              ",",
				MetricsAsyncBufferSize: 100,
				AutoMigrate:            true,
			},
			Metrics: MetricsConfig{
				Backend:      "prometheus",
				OTLPProtocol: "grpc",
			},
			Tracing: TracingConfig{
				Exporter:    "none",
				ServiceName: "importuser",
			},
			Report: ReportConfig{
				OutputPath:  "reports/people",
				Compression: "SNAPPY",
			},
			Security: SecurityConfig{
				MaskedParameterKeys: []string{"password", "api_key", "secret"},
			},
			DatabaseConfigs: map[string]interface{}{},
			StorageConfigs:  map[string]interface{}{},
		},
	}
}
