package incrementer

import (
	"fmt"

	port "github.com/tigerroll/importuser/pkg/batch/core/application/port"
	model "github.com/tigerroll/importuser/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/importuser/pkg/batch/support/util/logger"
)

// DefaultRunIDKey is the parameter key used when no name is given.
const DefaultRunIDKey = "run.id"

// RunIDIncrementer sets the named parameter to 1, or increments it when present.
type RunIDIncrementer struct {
	name string
}

// NewRunIDIncrementer creates a new instance of RunIDIncrementer. An empty name means "run.id".
func NewRunIDIncrementer(name string) *RunIDIncrementer {
	if name == "" {
		name = DefaultRunIDKey
	}
	return &RunIDIncrementer{name: name}
}

// GetNext returns a copy of params with the run id set or incremented.
func (i *RunIDIncrementer) GetNext(params model.JobParameters) model.JobParameters {
	nextParams := copyParams(params)

	currentRunID, ok := params.GetInt(i.name)
	if !ok {
		nextParams.Put(i.name, 1)
		logger.Debugf("JobParametersIncrementer: '%s' not found, setting to 1.", i.name)
		return nextParams
	}
	nextParams.Put(i.name, currentRunID+1)
	logger.Debugf("JobParametersIncrementer: Incrementing '%s' from %d to %d.", i.name, currentRunID, currentRunID+1)
	return nextParams
}

// String returns the string representation of RunIDIncrementer.
func (i *RunIDIncrementer) String() string {
	return fmt.Sprintf("RunIDIncrementer[name=%s]", i.name)
}

var _ port.JobParametersIncrementer = (*RunIDIncrementer)(nil)

func copyParams(params model.JobParameters) model.JobParameters {
	next := model.NewJobParameters()
	for k, v := range params.Params {
		next.Put(k, v)
	}
	return next
}

// Chain applies incrementers in order.
type Chain []port.JobParametersIncrementer

// GetNext implements port.JobParametersIncrementer.
func (c Chain) GetNext(params model.JobParameters) model.JobParameters {
	next := copyParams(params)
	for _, inc := range c {
		next = inc.GetNext(next)
	}
	return next
}

var _ port.JobParametersIncrementer = Chain(nil)
