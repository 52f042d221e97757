package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"growth-analytics/internal/sim"
)

type MySQLLoader struct {
	db *sql.DB
}

func (ml *MySQLLoader) Connect(ctx context.Context, dsn string) error {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	ml.db = db
	return nil
}

func (ml *MySQLLoader) Close(ctx context.Context) error {
	return ml.db.Close()
}

func (ml *MySQLLoader) Setup(ctx context.Context) error {
	for _, stmt := range []string{
		"DROP TABLE IF EXISTS user_events",
		"DROP TABLE IF EXISTS user_profiles",
		GetUsersSchema(),
		GetEventsSchema(),
	} {
		if _, err := ml.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (ml *MySQLLoader) LoadUsers(ctx context.Context, users []sim.User) error {
	for start := 0; start < len(users); start += batchSize {
		end := start + batchSize
		if end > len(users) {
			end = len(users)
		}
		batch := users[start:end]

		placeholders := make([]string, 0, len(batch))
		args := make([]interface{}, 0, len(batch)*8)
		for _, u := range batch {
			placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, u.ID, u.SignupDate, u.Segment, u.AcquisitionChannel,
				u.DeviceType, u.Region, u.UseCase, u.PlanType)
		}

		stmt := fmt.Sprintf(
			"INSERT INTO user_profiles (user_id, signup_date, segment, acquisition_channel, device_type, region, use_case, plan_type) VALUES %s",
			strings.Join(placeholders, ","))
		if _, err := ml.db.ExecContext(ctx, stmt, args...); err != nil {
			return err
		}
	}
	return nil
}

func (ml *MySQLLoader) LoadEvents(ctx context.Context, events []sim.Event) error {
	for start := 0; start < len(events); start += batchSize {
		end := start + batchSize
		if end > len(events) {
			end = len(events)
		}
		batch := events[start:end]

		placeholders := make([]string, 0, len(batch))
		args := make([]interface{}, 0, len(batch)*7)
		for _, ev := range batch {
			placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, uuid.New().String(), ev.UserID, ev.Type, ev.Timestamp,
				nullString(ev.Props.PageType),
				nullFloat(ev.Props.EditDurationMin),
				nullInt(ev.Props.Collaborators))
		}

		stmt := fmt.Sprintf(
			"INSERT INTO user_events (event_id, user_id, event_type, event_timestamp, page_type, edit_duration_min, collaborators) VALUES %s",
			strings.Join(placeholders, ","))
		if _, err := ml.db.ExecContext(ctx, stmt, args...); err != nil {
			return err
		}
	}
	return nil
}
