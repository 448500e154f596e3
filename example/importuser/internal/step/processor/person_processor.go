// Package processor holds the transform step of the import job.
package processor

import (
	"context"
	"strings"

	"github.com/tigerroll/importuser/example/importuser/internal/domain/entity"
	port "github.com/tigerroll/importuser/pkg/batch/core/application/port"
	"github.com/tigerroll/importuser/pkg/batch/support/util/logger"
)

// PersonItemProcessor uppercases both names of a Person. It never filters and never fails.
type PersonItemProcessor struct{}

// NewPersonItemProcessor creates a new PersonItemProcessor.
func NewPersonItemProcessor() *PersonItemProcessor {
	return &PersonItemProcessor{}
}

// Process implements port.ItemProcessor.
func (p *PersonItemProcessor) Process(ctx context.Context, person entity.Person) (*entity.Person, error) {
	transformed := Uppercase(person)
	logger.Infof("Converting (%s) into (%s)", person, transformed)
	return &transformed, nil
}

// Uppercase returns person with both names in upper case.
func Uppercase(person entity.Person) entity.Person {
	return entity.Person{
		FirstName: strings.ToUpper(person.FirstName),
		LastName:  strings.ToUpper(person.LastName),
	}
}

var _ port.ItemProcessor[entity.Person, entity.Person] = (*PersonItemProcessor)(nil)
