// Package warehouse optionally loads a finished run into an external
// store so SQL and BI consumers can query the raw tables. The core
// pipeline never requires it; everything works from flat files.
package warehouse

import (
	"context"
	"fmt"

	"growth-analytics/internal/sim"
)

// Loader abstracts the supported warehouse backends. Setup wipes and
// recreates the run tables, so a load is always a full refresh.
type Loader interface {
	Connect(ctx context.Context, dsn string) error
	Close(ctx context.Context) error
	Setup(ctx context.Context) error
	LoadUsers(ctx context.Context, users []sim.User) error
	LoadEvents(ctx context.Context, events []sim.Event) error
}

// batchSize bounds per-statement row counts for the SQL backends and
// per-InsertMany document counts for mongo.
const batchSize = 1000

// New returns the loader for a driver name.
func New(driver string) (Loader, error) {
	switch driver {
	case "postgres":
		return &PostgresLoader{}, nil
	case "mysql":
		return &MySQLLoader{}, nil
	case "mongo":
		return &MongoLoader{}, nil
	}
	return nil, fmt.Errorf("warehouse: unsupported driver %q", driver)
}
