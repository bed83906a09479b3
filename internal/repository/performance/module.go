package performance

import "go.uber.org/fx"

// Module provides the performance repository to Fx.
var Module = fx.Provide(NewRepository)
