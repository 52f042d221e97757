package warehouse

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"growth-analytics/internal/sim"
)

type PostgresLoader struct {
	conn *pgx.Conn
}

func (pl *PostgresLoader) Connect(ctx context.Context, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	pl.conn = conn
	return nil
}

func (pl *PostgresLoader) Close(ctx context.Context) error {
	return pl.conn.Close(ctx)
}

func (pl *PostgresLoader) Setup(ctx context.Context) error {
	for _, stmt := range []string{
		"DROP TABLE IF EXISTS user_events CASCADE",
		"DROP TABLE IF EXISTS user_profiles CASCADE",
		GetUsersSchema(),
		GetEventsSchema(),
	} {
		if _, err := pl.conn.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (pl *PostgresLoader) LoadUsers(ctx context.Context, users []sim.User) error {
	rows := make([][]interface{}, len(users))
	for i, u := range users {
		rows[i] = []interface{}{
			u.ID, u.SignupDate, u.Segment, u.AcquisitionChannel,
			u.DeviceType, u.Region, u.UseCase, u.PlanType,
		}
	}

	_, err := pl.conn.CopyFrom(
		ctx,
		pgx.Identifier{"user_profiles"},
		[]string{"user_id", "signup_date", "segment", "acquisition_channel", "device_type", "region", "use_case", "plan_type"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func (pl *PostgresLoader) LoadEvents(ctx context.Context, events []sim.Event) error {
	columns := []string{"event_id", "user_id", "event_type", "event_timestamp", "page_type", "edit_duration_min", "collaborators"}

	_, err := pl.conn.CopyFrom(
		ctx,
		pgx.Identifier{"user_events"},
		columns,
		pgx.CopyFromSlice(len(events), func(i int) ([]interface{}, error) {
			ev := events[i]
			return []interface{}{
				uuid.New().String(), ev.UserID, ev.Type, ev.Timestamp,
				nullString(ev.Props.PageType),
				nullFloat(ev.Props.EditDurationMin),
				nullInt(ev.Props.Collaborators),
			}, nil
		}),
	)
	return err
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f float64) interface{} {
	if f == 0 {
		return nil
	}
	return f
}

func nullInt(n int) interface{} {
	if n == 0 {
		return nil
	}
	return n
}
