// Package reader builds the record source of the import job.
package reader

import (
	"fmt"

	"github.com/tigerroll/importuser/example/importuser/internal/domain/entity"
	"github.com/tigerroll/importuser/pkg/batch/adapter/storage"
	flatfile "github.com/tigerroll/importuser/pkg/batch/component/step/reader"
	port "github.com/tigerroll/importuser/pkg/batch/core/application/port"
	config "github.com/tigerroll/importuser/pkg/batch/core/config"
)

const personFieldCount = 2

// MapPerson maps the fields firstName,lastName of one line to a Person.
func MapPerson(fields []string) (entity.Person, error) {
	if len(fields) != personFieldCount {
		return entity.Person{}, fmt.Errorf("expected %d fields (firstName,lastName), got %d", personFieldCount, len(fields))
	}
	return entity.Person{FirstName: fields[0], LastName: fields[1]}, nil
}

// NewPersonReader creates the flat file reader configured by the batch section.
func NewPersonReader(cfg *config.Config, resolver storage.StorageConnectionResolver) (port.ItemReader[entity.Person], error) {
	b := cfg.Surfin.Batch
	return flatfile.NewFlatFileItemReader[entity.Person](
		b.InputResource,
		MapPerson,
		flatfile.WithReaderName("personItemReader"),
		flatfile.WithDelimiter(b.DelimiterRune()),
		flatfile.WithLinesToSkip(b.LinesToSkip),
		flatfile.WithStorage(resolver, b.InputStorageRef),
	)
}
