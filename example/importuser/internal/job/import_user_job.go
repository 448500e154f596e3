// Package job assembles the steps of the importUserJob from the configuration and the
// components registered in the application graph.
package job

import (
	"go.uber.org/fx"

	"github.com/tigerroll/importuser/example/importuser/internal/domain/entity"
	appListener "github.com/tigerroll/importuser/example/importuser/internal/listener"
	port "github.com/tigerroll/importuser/pkg/batch/core/application/port"
	config "github.com/tigerroll/importuser/pkg/batch/core/config"
	model "github.com/tigerroll/importuser/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/importuser/pkg/batch/core/metrics"
	"github.com/tigerroll/importuser/pkg/batch/engine/step/item"
	"github.com/tigerroll/importuser/pkg/batch/engine/step/skip"
	batchlistener "github.com/tigerroll/importuser/pkg/batch/listener"
	"github.com/tigerroll/importuser/pkg/batch/support/util/logger"
)

// Job parameter keys.
const (
	ParamInputResource = "input_resource"
	ParamChunkSize     = "chunk_size"
	ParamSkipLimit     = "skip_limit"
	ParamDataSource    = "data_source"
)

// ImportUserStep is the chunk step moving people from the input resource to the table.
type ImportUserStep = item.ChunkStep[entity.Person, entity.Person]

// ImportUserStepParams holds the dependencies of NewImportUserStep.
type ImportUserStepParams struct {
	fx.In
	Cfg       *config.Config
	Reader    port.ItemReader[entity.Person]
	Processor port.ItemProcessor[entity.Person, entity.Person]
	Writer    port.ItemWriter[entity.Person]
	Reporter  *appListener.CompletionReporter
	Listeners batchlistener.Set
	Recorder  metrics.MetricRecorder
	Tracer    metrics.Tracer
	// Signaler, when present, is told about the terminal result of the step.
	Signaler *batchlistener.JobCompletionSignaler `optional:"true"`
}

// NewImportUserStep creates the chunk step of the importUserJob.
func NewImportUserStep(p ImportUserStepParams) (*ImportUserStep, error) {
	b := p.Cfg.Surfin.Batch
	jobListeners := append([]port.JobExecutionListener(nil), p.Listeners.Job...)
	if p.Signaler != nil {
		jobListeners = append(jobListeners, p.Signaler)
	}
	logger.Debugf("Building step '%s' of job '%s': chunk size %d, skip limit %d, skippable %v.", b.StepName, b.JobName, b.ChunkSize, b.SkipLimit, b.SkippableExceptions)
	return item.NewChunkStep[entity.Person, entity.Person](
		b.StepName,
		p.Reader,
		p.Processor,
		p.Writer,
		item.WithJobName(b.JobName),
		item.WithChunkSize(b.ChunkSize),
		item.WithSkipLimit(b.SkipLimit),
		item.WithSkipPredicate(skip.PredicateFromNames(b.SkippableExceptions)),
		item.WithJobListeners(jobListeners...),
		item.WithSkipListeners(p.Listeners.Skip...),
		item.WithItemWriteListeners(p.Listeners.Write...),
		item.OnCompleted(p.Reporter.OnCompletion),
		item.WithMetricRecorder(p.Recorder),
		item.WithTracer(p.Tracer),
	)
}

// NewJobParameters records the effective batch settings and applies the incrementer.
func NewJobParameters(cfg *config.Config, incrementer port.JobParametersIncrementer) model.JobParameters {
	b := cfg.Surfin.Batch
	params := model.NewJobParameters()
	params.Put(ParamInputResource, b.InputResource)
	params.Put(ParamChunkSize, b.ChunkSize)
	params.Put(ParamSkipLimit, b.SkipLimit)
	params.Put(ParamDataSource, b.DataSource)
	if incrementer != nil {
		params = incrementer.GetNext(params)
	}
	return params
}
