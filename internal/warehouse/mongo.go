package warehouse

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"growth-analytics/internal/sim"
)

const mongoDatabase = "analyticsdb"

type MongoLoader struct {
	client *mongo.Client
}

func (ml *MongoLoader) Connect(ctx context.Context, dsn string) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(dsn))
	if err != nil {
		return err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return err
	}
	ml.client = client
	return nil
}

func (ml *MongoLoader) Close(ctx context.Context) error {
	return ml.client.Disconnect(ctx)
}

func (ml *MongoLoader) Setup(ctx context.Context) error {
	db := ml.client.Database(mongoDatabase)
	for _, name := range []string{"user_events", "user_profiles"} {
		if err := db.Collection(name).Drop(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (ml *MongoLoader) LoadUsers(ctx context.Context, users []sim.User) error {
	coll := ml.client.Database(mongoDatabase).Collection("user_profiles")

	for start := 0; start < len(users); start += batchSize {
		end := start + batchSize
		if end > len(users) {
			end = len(users)
		}

		docs := make([]interface{}, 0, end-start)
		for _, u := range users[start:end] {
			docs = append(docs, bson.M{
				"_id":                 u.ID,
				"signup_date":         u.SignupDate,
				"segment":             u.Segment,
				"acquisition_channel": u.AcquisitionChannel,
				"device_type":         u.DeviceType,
				"region":              u.Region,
				"use_case":            u.UseCase,
				"plan_type":           u.PlanType,
			})
		}
		if _, err := coll.InsertMany(ctx, docs); err != nil {
			return err
		}
	}
	return nil
}

func (ml *MongoLoader) LoadEvents(ctx context.Context, events []sim.Event) error {
	coll := ml.client.Database(mongoDatabase).Collection("user_events")

	for start := 0; start < len(events); start += batchSize {
		end := start + batchSize
		if end > len(events) {
			end = len(events)
		}

		docs := make([]interface{}, 0, end-start)
		for _, ev := range events[start:end] {
			doc := bson.M{
				"_id":             uuid.New().String(),
				"user_id":         ev.UserID,
				"event_type":      ev.Type,
				"event_timestamp": ev.Timestamp,
			}
			if ev.Props.PageType != "" {
				doc["page_type"] = ev.Props.PageType
			}
			if ev.Props.EditDurationMin > 0 {
				doc["edit_duration_min"] = ev.Props.EditDurationMin
			}
			if ev.Props.Collaborators > 0 {
				doc["collaborators"] = ev.Props.Collaborators
			}
			docs = append(docs, doc)
		}
		if _, err := coll.InsertMany(ctx, docs); err != nil {
			return err
		}
	}
	return nil
}
