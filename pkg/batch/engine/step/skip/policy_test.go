package skip_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/importuser/pkg/batch/engine/step/skip"
	"github.com/tigerroll/importuser/pkg/batch/support/util/exception"
)

func TestLimitCheckingSkipPolicy_FailsOnLimitPlusOne(t *testing.T) {
	p := skip.NewLimitCheckingSkipPolicy(3, nil)

	assert.True(t, p.RecordSkip())
	assert.True(t, p.RecordSkip())
	assert.True(t, p.RecordSkip())
	assert.Equal(t, 3, p.GetSkipCount())
	assert.False(t, p.RecordSkip(), "the 4th failure exceeds a limit of 3")
	assert.Equal(t, 4, p.GetSkipCount())
	assert.Equal(t, 3, p.GetSkipLimit())
}

func TestLimitCheckingSkipPolicy_ZeroLimit(t *testing.T) {
	p := skip.NewLimitCheckingSkipPolicy(0, nil)
	assert.False(t, p.RecordSkip())
}

func TestLimitCheckingSkipPolicy_DefaultPredicate(t *testing.T) {
	p := skip.NewLimitCheckingSkipPolicy(3, nil)

	assert.True(t, p.IsSkippable(fmt.Errorf("read: %w", exception.NewParseError(1, "x", errors.New("bad")))))
	assert.False(t, p.IsSkippable(exception.NewWriteError("people", 1, errors.New("bad"))))
	assert.False(t, p.IsSkippable(errors.New("disk unreadable")))
	assert.False(t, p.IsSkippable(nil))
}

func TestLimitCheckingSkipPolicy_CustomPredicate(t *testing.T) {
	transient := errors.New("transient")
	p := skip.NewLimitCheckingSkipPolicy(1, func(err error) bool { return errors.Is(err, transient) })

	assert.True(t, p.IsSkippable(fmt.Errorf("x: %w", transient)))
	assert.False(t, p.IsSkippable(exception.NewParseError(1, "x", errors.New("bad"))))
}

func TestPredicateFromNames(t *testing.T) {
	pred := skip.PredicateFromNames([]string{exception.ResourceErrorName})
	assert.True(t, pred(exception.NewResourceError("r", errors.New("gone"))))
	assert.False(t, pred(exception.NewParseError(1, "x", errors.New("bad"))))

	def := skip.PredicateFromNames(nil)
	assert.True(t, def(exception.NewParseError(1, "x", errors.New("bad"))))
}

func TestFactory_FreshCounterPerRun(t *testing.T) {
	f := skip.NewFactory(1, nil)
	first := f()
	first.RecordSkip()
	second := f()
	assert.Equal(t, 0, second.GetSkipCount())
}
