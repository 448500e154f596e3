// Package sqlite provides a GORM DBProvider implementation for SQLite databases.
package sqlite

import (
	"errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tigerroll/importuser/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/importuser/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/importuser/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/importuser/pkg/batch/core/config"
)

// DBType is the configuration type handled by this package.
const DBType = "sqlite"

func init() {
	gormadapter.RegisterDialector(DBType, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Database == "" {
			return nil, errors.New("SQLite database path cannot be empty")
		}
		return sqlite.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString builds the SQLite DSN. Database is a file path or a "file:" URI; Params is
// appended as the URI query (e.g. "mode=memory&cache=shared").
func ConnectionString(c dbconfig.DatabaseConfig) string {
	if c.Params == "" {
		return c.Database
	}
	return c.Database + "?" + c.Params
}

// NewProvider creates the SQLite DBProvider.
func NewProvider(cfg *config.Config) database.DBProvider {
	return gormadapter.NewBaseProvider(cfg, DBType)
}
