package ports

import (
	"context"

	"goelicit/domain/core"
	"goelicit/domain/design"
)

// BatteryStore keeps planned batteries addressable by ID for the lifetime of
// the process so exports and statistics can refer back to them
type BatteryStore interface {
	Save(ctx context.Context, battery *design.Battery) error
	Get(ctx context.Context, id core.BatteryID) (*design.Battery, error)
	List(ctx context.Context) ([]core.BatteryID, error)
}
