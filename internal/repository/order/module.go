package order

import "go.uber.org/fx"

// Module provides the persistent order store to Fx.
var Module = fx.Provide(NewRepository)
