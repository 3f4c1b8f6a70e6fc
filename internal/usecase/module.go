package usecase

import "go.uber.org/fx"

// Module provides the reconciliation core to the fx container.
var Module = fx.Provide(
	NewReconcileUseCase,
	NewCompensationDispatcher,
	func(d *CompensationDispatcher) Compensator { return d },
)
