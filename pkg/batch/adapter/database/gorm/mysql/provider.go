// Package mysql provides a GORM DBProvider implementation for MySQL databases.
package mysql

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tigerroll/importuser/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/importuser/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/importuser/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/importuser/pkg/batch/core/config"
)

// DBType is the configuration type handled by this package.
const DBType = "mysql"

const defaultParams = "charset=utf8mb4&parseTime=True&loc=Local"

func init() {
	gormadapter.RegisterDialector(DBType, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return mysql.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString builds the go-sql-driver DSN.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	params := c.Params
	if params == "" {
		params = defaultParams
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s", c.User, c.Password, c.Host, c.Port, c.Database, params)
}

// NewProvider creates the MySQL DBProvider.
func NewProvider(cfg *config.Config) database.DBProvider {
	return gormadapter.NewBaseProvider(cfg, DBType)
}
