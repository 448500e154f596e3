package gorm

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/importuser/pkg/batch/adapter/database"
	coreAdapter "github.com/tigerroll/importuser/pkg/batch/core/adapter"
)

// Module exports the connection resolver. Concrete DB providers are supplied by the dialect
// subpackages.
var Module = fx.Options(
	fx.Provide(NewGormDBConnectionResolver),
	fx.Provide(func(r *GormDBConnectionResolver) database.DBConnectionResolver { return r }),
	fx.Provide(func(r *GormDBConnectionResolver) coreAdapter.ResourceConnectionResolver { return r }),
	fx.Invoke(func(lc fx.Lifecycle, r *GormDBConnectionResolver) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return r.CloseAll()
			},
		})
	}),
)
