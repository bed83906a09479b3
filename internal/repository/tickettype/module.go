package tickettype

import "go.uber.org/fx"

// Module provides the ticket type repository to Fx.
var Module = fx.Provide(NewRepository)
