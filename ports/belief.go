package ports

import (
	"context"

	"goelicit/domain/design"
	"goelicit/domain/posterior"
)

// BeliefUpdaterPort turns an observed vignette answer into a new posterior.
// Implementations live outside the engine; the returned distribution must
// satisfy posterior.Distribution.Validate and keep the dimension order.
type BeliefUpdaterPort interface {
	Update(ctx context.Context, prior posterior.Distribution, vignette design.Vignette, choice design.Choice) (posterior.Distribution, error)
}
