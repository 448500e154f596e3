// Package listener holds the completion reporter of the import job.
package listener

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tigerroll/importuser/example/importuser/internal/domain/entity"
	"github.com/tigerroll/importuser/pkg/batch/adapter/database"
	"github.com/tigerroll/importuser/pkg/batch/adapter/storage"
	"github.com/tigerroll/importuser/pkg/batch/component/step/reader"
	"github.com/tigerroll/importuser/pkg/batch/component/step/writer"
	config "github.com/tigerroll/importuser/pkg/batch/core/config"
	model "github.com/tigerroll/importuser/pkg/batch/core/domain/model"
	"github.com/tigerroll/importuser/pkg/batch/support/util/logger"
)

// CompletionReporter reads the target table back once a run has COMPLETED and logs one
// line per row. When the report export is enabled the rows are also uploaded as Parquet.
type CompletionReporter struct {
	dbResolver      database.DBConnectionResolver
	storageResolver storage.StorageConnectionResolver
	dataSource      string
	tableName       string
	report          config.ReportConfig
}

// NewCompletionReporter creates a new CompletionReporter.
func NewCompletionReporter(cfg *config.Config, dbResolver database.DBConnectionResolver, storageResolver storage.StorageConnectionResolver) *CompletionReporter {
	return &CompletionReporter{
		dbResolver:      dbResolver,
		storageResolver: storageResolver,
		dataSource:      cfg.Surfin.Batch.DataSource,
		tableName:       cfg.Surfin.Batch.TableName,
		report:          cfg.Surfin.Report,
	}
}

// OnCompletion has the signature of item.CompletionCallback. Failed runs are ignored.
func (r *CompletionReporter) OnCompletion(ctx context.Context, result *model.JobResult) {
	if result.Status != model.BatchStatusCompleted {
		return
	}
	logger.Infof("!!! JOB FINISHED! Time to verify the results")

	people, err := r.readPeople(ctx)
	if err != nil {
		logger.Errorf("CompletionReporter: failed to read back table '%s': %v", r.tableName, err)
		return
	}
	for _, p := range people {
		logger.Infof("Found <%s> in the database.", p)
	}

	if r.report.ExportEnabled {
		if err := r.export(ctx, people); err != nil {
			logger.Errorf("CompletionReporter: report export failed: %v", err)
		}
	}
}

func (r *CompletionReporter) readPeople(ctx context.Context) ([]entity.Person, error) {
	conn, err := r.dbResolver.ResolveDBConnection(ctx, r.dataSource)
	if err != nil {
		return nil, err
	}
	db, err := conn.GetSQLDB()
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT first_name, last_name FROM %s", r.tableName)
	cursor := reader.NewSqlCursorReader[entity.Person](db, "peopleReportReader", query, nil, scanPerson)
	return reader.ReadAll[entity.Person](ctx, cursor)
}

func scanPerson(rows *sql.Rows) (entity.Person, error) {
	var p entity.Person
	err := rows.Scan(&p.FirstName, &p.LastName)
	return p, err
}

func (r *CompletionReporter) export(ctx context.Context, people []entity.Person) error {
	w, err := writer.NewParquetWriter[entity.PersonRecord]("peopleReportWriter", writer.ParquetWriterConfig{
		StorageRef:      r.report.StorageRef,
		Bucket:          r.report.Bucket,
		OutputBaseDir:   r.report.OutputPath,
		CompressionType: r.report.Compression,
	}, r.storageResolver, nil)
	if err != nil {
		return err
	}
	if err := w.Open(ctx); err != nil {
		return err
	}
	records := make([]entity.PersonRecord, 0, len(people))
	for _, p := range people {
		records = append(records, entity.NewPersonRecord(p))
	}
	if err := w.Write(ctx, records); err != nil {
		return err
	}
	if err := w.Close(ctx); err != nil {
		return err
	}
	for _, name := range w.Uploaded() {
		logger.Infof("Exported %d people to %s.", len(records), name)
	}
	return nil
}
