package config

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Type     string `yaml:"type"`             // Database type ("postgres", "mysql", "sqlite").
	Host     string `yaml:"host"`             // Database host address.
	Port     int    `yaml:"port"`             // Database port number.
	Database string `yaml:"database"`         // Database name, or the file/DSN for SQLite.
	User     string `yaml:"user"`             // Database user.
	Password string `yaml:"password"`         // Database password.
	Schema   string `yaml:"schema,omitempty"` // Schema name for PostgreSQL.
	Sslmode  string `yaml:"sslmode"`          // SSL mode for the connection.
	// Params is appended to the generated DSN (e.g. "charset=utf8mb4&parseTime=true").
	Params string     `yaml:"params,omitempty"`
	Pool   PoolConfig `yaml:"pool"` // Connection pool settings.
}
