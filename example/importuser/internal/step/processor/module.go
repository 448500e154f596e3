package processor

import (
	"go.uber.org/fx"

	"github.com/tigerroll/importuser/example/importuser/internal/domain/entity"
	port "github.com/tigerroll/importuser/pkg/batch/core/application/port"
)

// Module provides the person processor.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewPersonItemProcessor,
		fx.As(new(port.ItemProcessor[entity.Person, entity.Person])),
	)),
)
