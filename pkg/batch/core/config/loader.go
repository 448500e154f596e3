package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/importuser/pkg/batch/support/util/exception"
	"github.com/tigerroll/importuser/pkg/batch/support/util/logger"

	"go.uber.org/fx"
)

const moduleName = "config"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig
	EnvFilePath    string `name:"envFilePath" optional:"true"`
}

// LoadConfig builds the configuration in layers: .env file, defaults, YAML with
// ${VAR} placeholders expanded, then environment overrides named after the yaml
// path (e.g. SURFIN_BATCH_CHUNK_SIZE).
// Keys absent from the YAML keep their defaults.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Debugf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	}

	expanded, err := NewOsEnvironmentExpander().Expand(embeddedConfig)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to expand environment placeholders", err, false, false)
	}

	cfg := NewConfig()
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to unmarshal config", err, false, false)
	}
	if cfg.Surfin.DatabaseConfigs == nil {
		cfg.Surfin.DatabaseConfigs = map[string]interface{}{}
	}
	if cfg.Surfin.StorageConfigs == nil {
		cfg.Surfin.StorageConfigs = map[string]interface{}{}
	}

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to load config from environment variables", err, false, false)
	}
	cfg.EmbeddedConfig = embeddedConfig
	return cfg, nil
}

// LoadConfigFile reads path and loads it with LoadConfig.
func LoadConfigFile(envFilePath, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to read config file %s", path), err, false, false)
	}
	return LoadConfig(envFilePath, data)
}

// NewConfigProvider is an Fx provider that loads, validates and provides *Config.
// It also applies the configured log level.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := LoadConfig(params.EnvFilePath, params.EmbeddedConfig)
	if err != nil {
		return nil, err
	}
	logger.SetLogLevel(cfg.Surfin.System.Logging.Level)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the batch parameters and cross references between sections.
func (c *Config) Validate() error {
	b := c.Surfin.Batch
	if b.ChunkSize < 1 {
		return exception.NewBatchError(moduleName, fmt.Sprintf("chunk_size must be at least 1, got %d", b.ChunkSize), nil, false, false)
	}
	if b.SkipLimit < 0 {
		return exception.NewBatchError(moduleName, fmt.Sprintf("skip_limit must not be negative, got %d", b.SkipLimit), nil, false, false)
	}
	if b.TableName == "" {
		return exception.NewBatchError(moduleName, "table_name must not be empty", nil, false, false)
	}
	if b.InputResource == "" {
		return exception.NewBatchError(moduleName, "input_resource must not be empty", nil, false, false)
	}
	if b.Delimiter != "" && utf8.RuneCountInString(b.Delimiter) != 1 {
		return exception.NewBatchError(moduleName, fmt.Sprintf("delimiter must be a single character, got %q", b.Delimiter), nil, false, false)
	}
	for _, name := range b.SkippableExceptions {
		if !exception.IsErrorTypeRegistered(name) {
			return exception.NewBatchError(moduleName, fmt.Sprintf("skippable_exceptions references unknown error kind '%s'", name), nil, false, false)
		}
	}
	if _, ok := c.Surfin.DatabaseConfigs[b.DataSource]; !ok {
		return exception.NewBatchError(moduleName, fmt.Sprintf("data_source '%s' has no entry under surfin.database", b.DataSource), nil, false, false)
	}
	if r := c.Surfin.Report; r.ExportEnabled {
		if _, ok := c.Surfin.StorageConfigs[r.StorageRef]; !ok {
			return exception.NewBatchError(moduleName, fmt.Sprintf("report storage_ref '%s' has no entry under surfin.storage", r.StorageRef), nil, false, false)
		}
	}
	return nil
}

// DelimiterRune returns the configured delimiter, defaulting to a comma.
func (b BatchConfig) DelimiterRune() rune {
	if b.Delimiter == "" {
		return ','
	}
	r, _ := utf8.DecodeRuneInString(b.Delimiter)
	return r
}

// DecodeSection decodes one raw entry of the database or storage map into out,
// honouring yaml tags and converting string values from environment overrides.
func DecodeSection(raw interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

// loadStructFromEnv recursively overrides struct fields from environment variables
// named after the upper-cased yaml tag path.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		switch field.Kind() {
		case reflect.Struct:
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		case reflect.Map:
			if field.Type().Key().Kind() == reflect.String && field.Type().Elem().Kind() == reflect.Interface {
				loadMapFromEnv(field, envVarName+"_")
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// loadMapFromEnv applies variables like SURFIN_DATABASE_DEFAULT_HOST=db to the
// "default" entry of a map[string]interface{} section. Only top-level keys of an
// entry can be set this way.
func loadMapFromEnv(mapField reflect.Value, prefix string) {
	if mapField.IsNil() {
		mapField.Set(reflect.MakeMap(mapField.Type()))
	}
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, prefix) {
			continue
		}
		kv := strings.SplitN(strings.TrimPrefix(env, prefix), "=", 2)
		if len(kv) != 2 {
			continue
		}
		parts := strings.SplitN(kv[0], "_", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		entryName := matchMapKey(mapField, strings.ToLower(parts[0]))
		fieldName := strings.ToLower(parts[1])

		entry := map[string]interface{}{}
		if existing := mapField.MapIndex(reflect.ValueOf(entryName)); existing.IsValid() {
			if m, ok := existing.Interface().(map[string]interface{}); ok {
				entry = m
			}
		}
		entry[fieldName] = kv[1]
		mapField.SetMapIndex(reflect.ValueOf(entryName), reflect.ValueOf(entry))
	}
}

// matchMapKey returns the existing key equal to name ignoring case, or name itself.
func matchMapKey(mapField reflect.Value, name string) string {
	for _, k := range mapField.MapKeys() {
		if strings.EqualFold(k.String(), name) {
			return k.String()
		}
	}
	return name
}

// setField sets a scalar or string slice field from its string representation.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float32, reflect.Float64:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		field.Set(reflect.ValueOf(items))
	}
	return nil
}
