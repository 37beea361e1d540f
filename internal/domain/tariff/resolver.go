package tariff

import (
	"context"
	"time"
)

// Resolver supplies the tariff in effect for a station connector at a given
// instant. The settlement core freezes the result into the session at creation
// and never re-queries at close time.
type Resolver interface {
	Resolve(ctx context.Context, workspaceID, stationID, connectorID string, at time.Time) (Snapshot, error)
}
