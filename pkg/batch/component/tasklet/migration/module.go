// Package migration applies embedded schema migrations with golang-migrate.
package migration

import (
	"go.uber.org/fx"
)

// Module provides the MigratorProvider.
var Module = fx.Options(
	fx.Provide(NewMigratorProvider),
)
