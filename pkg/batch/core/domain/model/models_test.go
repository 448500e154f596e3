package model_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/importuser/pkg/batch/core/domain/model"
)

func TestJobResult_Transitions(t *testing.T) {
	r := model.NewJobResult("importUserJob", "step1", model.NewJobParameters())
	require.NotEmpty(t, r.ID)
	assert.Equal(t, model.BatchStatusRunning, r.Status)
	assert.False(t, r.Status.IsFinished())
	assert.Nil(t, r.EndTime)

	r.AddFlush(2)
	r.AddFlush(1)
	r.AddSkipped(errors.New("bad line"))
	r.MarkAsCompleted()

	assert.Equal(t, model.BatchStatusCompleted, r.Status)
	assert.True(t, r.Status.IsFinished())
	require.NotNil(t, r.EndTime)
	assert.Equal(t, 3, r.WriteCount)
	assert.Equal(t, []int{2, 1}, r.FlushSizes)
	assert.Equal(t, 1, r.SkipCount)

	r.MarkAsFailed(errors.New("late"))
	assert.Equal(t, model.BatchStatusCompleted, r.Status, "terminal state is final")
}

func TestJobResult_Failed(t *testing.T) {
	r := model.NewJobResult("job", "step", model.NewJobParameters())
	cause := errors.New("write failed")
	r.MarkAsFailed(cause)

	assert.Equal(t, model.BatchStatusFailed, r.Status)
	assert.ErrorIs(t, r.Failure, cause)
	assert.Equal(t, "write failed", r.FailureMessage())
	assert.Contains(t, r.String(), "status=FAILED")
}

func TestJobParameters(t *testing.T) {
	p := model.NewJobParameters()
	p.Put("run.id", 2)
	p.Put("input", "people.csv")
	p.Put("password", "hunter2")
	p.Put("ratio", float64(7))

	id, ok := p.GetInt("run.id")
	assert.True(t, ok)
	assert.Equal(t, 2, id)

	ratio, ok := p.GetInt("ratio")
	assert.True(t, ok)
	assert.Equal(t, 7, ratio)

	_, ok = p.GetInt("input")
	assert.False(t, ok)

	s, ok := p.GetString("input")
	assert.True(t, ok)
	assert.Equal(t, "people.csv", s)

	assert.Equal(t, `{"input":"people.csv","password":"****","ratio":7,"run.id":2}`, p.MaskedString([]string{"password"}))
}
