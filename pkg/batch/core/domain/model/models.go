package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tigerroll/importuser/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/importuser/pkg/batch/support/util/logger"
)

// BatchStatus represents the state of a job run.
type BatchStatus string

const (
	BatchStatusRunning   BatchStatus = "RUNNING"
	BatchStatusCompleted BatchStatus = "COMPLETED"
	BatchStatusFailed    BatchStatus = "FAILED"
)

// String returns the string representation of the BatchStatus.
func (s BatchStatus) String() string {
	return string(s)
}

// IsFinished reports whether s is terminal. Only COMPLETED and FAILED are.
func (s BatchStatus) IsFinished() bool {
	return s == BatchStatusCompleted || s == BatchStatusFailed
}

// JobParameters holds the named parameters of one launch.
type JobParameters struct {
	Params map[string]interface{} `json:"params"`
}

// NewJobParameters creates an empty JobParameters.
func NewJobParameters() JobParameters {
	return JobParameters{Params: make(map[string]interface{})}
}

// Put sets a parameter.
func (jp JobParameters) Put(key string, value interface{}) {
	jp.Params[key] = value
}

// Get returns the raw parameter value or nil.
func (jp JobParameters) Get(key string) interface{} {
	return jp.Params[key]
}

// GetString returns the parameter as a string.
func (jp JobParameters) GetString(key string) (string, bool) {
	s, ok := jp.Params[key].(string)
	return s, ok
}

// GetInt returns the parameter as an int. float64 values from JSON are accepted.
func (jp JobParameters) GetInt(key string) (int, bool) {
	switch v := jp.Params[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// String renders the parameters as JSON with sorted keys, masking the given keys.
func (jp JobParameters) String() string {
	return jp.MaskedString(nil)
}

// MaskedString renders the parameters with values of maskedKeys replaced by "****".
func (jp JobParameters) MaskedString(maskedKeys []string) string {
	keys := make([]string, 0, len(jp.Params))
	for k := range jp.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := jp.Params[k]
		for _, m := range maskedKeys {
			if strings.EqualFold(k, m) {
				v = "****"
				break
			}
		}
		b, err := json.Marshal(v)
		if err != nil {
			b = []byte(fmt.Sprintf("%q", fmt.Sprint(v)))
		}
		parts = append(parts, fmt.Sprintf("%q:%s", k, b))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// NewID generates a new UUID string.
func NewID() string {
	return uuid.New().String()
}

// JobResult is the record of one job run: its terminal status, counters and failures.
// It is created in RUNNING and moved exactly once to COMPLETED or FAILED.
type JobResult struct {
	ID         string
	JobName    string
	StepName   string
	Parameters JobParameters
	Status     BatchStatus
	StartTime  time.Time
	EndTime    *time.Time

	// ReadCount is the number of records successfully read.
	ReadCount int
	// FilterCount is the number of records dropped by the transformer.
	FilterCount int
	// WriteCount is the number of records persisted.
	WriteCount int
	// SkipCount is the number of skipped read failures.
	SkipCount int
	// FlushCount is the number of chunks persisted.
	FlushCount int
	// FlushSizes records the size of each persisted chunk in order.
	FlushSizes []int

	// Failure is the error that terminated a FAILED run.
	Failure error
	// Skipped holds the errors that were skipped, in order.
	Skipped []error
}

// NewJobResult creates a JobResult in RUNNING state.
func NewJobResult(jobName, stepName string, params JobParameters) *JobResult {
	return &JobResult{
		ID:         NewID(),
		JobName:    jobName,
		StepName:   stepName,
		Parameters: params,
		Status:     BatchStatusRunning,
		StartTime:  time.Now(),
	}
}

// MarkAsCompleted moves the run to COMPLETED.
func (r *JobResult) MarkAsCompleted() {
	r.finish(BatchStatusCompleted)
}

// MarkAsFailed moves the run to FAILED with err as the cause.
func (r *JobResult) MarkAsFailed(err error) {
	r.Failure = err
	r.finish(BatchStatusFailed)
}

func (r *JobResult) finish(status BatchStatus) {
	if r.Status.IsFinished() {
		logger.Warnf("JobResult (ID: %s) is already %s. Ignoring transition to %s.", r.ID, r.Status, status)
		return
	}
	r.Status = status
	now := time.Now()
	r.EndTime = &now
}

// AddSkipped records a skipped failure.
func (r *JobResult) AddSkipped(err error) {
	r.SkipCount++
	r.Skipped = append(r.Skipped, err)
}

// AddFlush records one persisted chunk of size n.
func (r *JobResult) AddFlush(n int) {
	r.FlushCount++
	r.WriteCount += n
	r.FlushSizes = append(r.FlushSizes, n)
}

// Duration returns the elapsed time of the run, up to now if it is still running.
func (r *JobResult) Duration() time.Duration {
	if r.EndTime == nil {
		return time.Since(r.StartTime)
	}
	return r.EndTime.Sub(r.StartTime)
}

// FailureMessage returns a short description of the failure, or "".
func (r *JobResult) FailureMessage() string {
	return exception.ExtractErrorMessage(r.Failure)
}

// String summarises the run for logging.
func (r *JobResult) String() string {
	return fmt.Sprintf("JobResult[id=%s, job=%s, status=%s, read=%d, written=%d, filtered=%d, skipped=%d, flushes=%d]",
		r.ID, r.JobName, r.Status, r.ReadCount, r.WriteCount, r.FilterCount, r.SkipCount, r.FlushCount)
}
