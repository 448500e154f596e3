// Package writer builds the record sink of the import job.
package writer

import (
	"github.com/tigerroll/importuser/example/importuser/internal/domain/entity"
	"github.com/tigerroll/importuser/pkg/batch/adapter/database"
	gormadapter "github.com/tigerroll/importuser/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/importuser/pkg/batch/component/item"
	sqlwriter "github.com/tigerroll/importuser/pkg/batch/component/step/writer"
	port "github.com/tigerroll/importuser/pkg/batch/core/application/port"
	config "github.com/tigerroll/importuser/pkg/batch/core/config"
	"github.com/tigerroll/importuser/pkg/batch/support/util/logger"
)

// NewPersonWriter creates the writer inserting people into the configured table.
// In dry-run mode chunks are counted and discarded.
func NewPersonWriter(cfg *config.Config, resolver database.DBConnectionResolver) (port.ItemWriter[entity.Person], error) {
	b := cfg.Surfin.Batch
	if b.DryRun {
		logger.Warnf("Dry run: records will not be written to '%s'.", b.TableName)
		return item.NewNoOpItemWriter[entity.Person](), nil
	}
	return sqlwriter.NewSqlBatchItemWriter[entity.Person, entity.PersonRow](
		gormadapter.NewGormTransactionManager(resolver, b.DataSource),
		b.TableName,
		entity.NewPersonRow,
		sqlwriter.WithWriterName("personItemWriter"),
		sqlwriter.WithMaxRowsPerStatement(b.MaxRowsPerStatement),
	)
}
