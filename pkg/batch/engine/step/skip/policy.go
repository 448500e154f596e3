package skip

import (
	"github.com/tigerroll/importuser/pkg/batch/support/util/exception"
)

// Predicate decides whether an error is eligible for skipping.
type Predicate func(err error) bool

// SkipPolicy decides, per run, whether a failed read may be skipped.
// It owns the run's skip counter.
type SkipPolicy interface {
	// IsSkippable reports whether err is eligible for skipping at all.
	IsSkippable(err error) bool
	// RecordSkip counts one skippable failure and reports whether the run may
	// continue. It returns false once the count exceeds the limit.
	RecordSkip() bool
	// GetSkipCount returns the number of skippable failures recorded so far.
	GetSkipCount() int
	// GetSkipLimit returns the configured limit.
	GetSkipLimit() int
}

// LimitCheckingSkipPolicy tolerates up to skipLimit failures matching a predicate.
// With limit L the (L+1)-th matching failure is fatal.
type LimitCheckingSkipPolicy struct {
	skipLimit   int
	isSkippable Predicate
	skipCount   int
}

// NewLimitCheckingSkipPolicy creates a policy with the given limit and predicate.
// A nil predicate treats every *exception.ParseError as skippable.
func NewLimitCheckingSkipPolicy(skipLimit int, isSkippable Predicate) *LimitCheckingSkipPolicy {
	if isSkippable == nil {
		isSkippable = exception.IsParseError
	}
	return &LimitCheckingSkipPolicy{skipLimit: skipLimit, isSkippable: isSkippable}
}

// IsSkippable implements SkipPolicy.
func (p *LimitCheckingSkipPolicy) IsSkippable(err error) bool {
	return err != nil && p.isSkippable(err)
}

// RecordSkip implements SkipPolicy.
func (p *LimitCheckingSkipPolicy) RecordSkip() bool {
	p.skipCount++
	return p.skipCount <= p.skipLimit
}

// GetSkipCount implements SkipPolicy.
func (p *LimitCheckingSkipPolicy) GetSkipCount() int {
	return p.skipCount
}

// GetSkipLimit implements SkipPolicy.
func (p *LimitCheckingSkipPolicy) GetSkipLimit() int {
	return p.skipLimit
}

// PredicateFromNames builds a predicate matching any of the registered error kind names.
// An empty list matches *exception.ParseError only.
func PredicateFromNames(names []string) Predicate {
	if len(names) == 0 {
		return exception.IsParseError
	}
	kinds := append([]string(nil), names...)
	return func(err error) bool {
		for _, name := range kinds {
			if exception.IsErrorOfType(err, name) {
				return true
			}
		}
		return false
	}
}

// Factory creates a fresh policy per run.
type Factory func() SkipPolicy

// NewFactory returns a Factory producing LimitCheckingSkipPolicy instances.
func NewFactory(skipLimit int, isSkippable Predicate) Factory {
	return func() SkipPolicy {
		return NewLimitCheckingSkipPolicy(skipLimit, isSkippable)
	}
}

var _ SkipPolicy = (*LimitCheckingSkipPolicy)(nil)
