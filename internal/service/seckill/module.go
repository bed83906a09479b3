package seckill

import "go.uber.org/fx"

// Module provides the flash-sale service to Fx.
var Module = fx.Provide(NewService)
