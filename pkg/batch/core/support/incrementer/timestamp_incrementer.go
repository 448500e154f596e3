package incrementer

import (
	"fmt"
	"strconv"
	"time"

	port "github.com/tigerroll/importuser/pkg/batch/core/application/port"
	model "github.com/tigerroll/importuser/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/importuser/pkg/batch/support/util/logger"
)

// DefaultTimestampKey is the parameter key used when no name is given.
const DefaultTimestampKey = "timestamp"

// TimestampIncrementer sets the named parameter to the current Unix milliseconds.
type TimestampIncrementer struct {
	name string
	now  func() time.Time
}

// NewTimestampIncrementer creates a new instance of TimestampIncrementer. An empty name means "timestamp".
func NewTimestampIncrementer(name string) *TimestampIncrementer {
	if name == "" {
		name = DefaultTimestampKey
	}
	return &TimestampIncrementer{name: name, now: time.Now}
}

// GetNext returns a copy of params with the timestamp set, stored as a decimal string.
func (i *TimestampIncrementer) GetNext(params model.JobParameters) model.JobParameters {
	nextParams := copyParams(params)
	timestamp := i.now().UnixMilli()
	nextParams.Put(i.name, strconv.FormatInt(timestamp, 10))
	logger.Debugf("JobParametersIncrementer: Setting '%s' to %d.", i.name, timestamp)
	return nextParams
}

// String returns the string representation of TimestampIncrementer.
func (i *TimestampIncrementer) String() string {
	return fmt.Sprintf("TimestampIncrementer[name=%s]", i.name)
}

var _ port.JobParametersIncrementer = (*TimestampIncrementer)(nil)
