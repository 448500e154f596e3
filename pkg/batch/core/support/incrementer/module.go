// Package incrementer derives the job parameters of each launch.
package incrementer

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/importuser/pkg/batch/core/application/port"
)

// NewDefaultIncrementer sets "run.id" and "timestamp".
func NewDefaultIncrementer() port.JobParametersIncrementer {
	return Chain{NewRunIDIncrementer(DefaultRunIDKey), NewTimestampIncrementer(DefaultTimestampKey)}
}

// Module provides the default JobParametersIncrementer.
var Module = fx.Options(
	fx.Provide(NewDefaultIncrementer),
)
