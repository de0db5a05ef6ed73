package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	campserrors "medibook/internal/camps/errors"
	"medibook/pkg/config"
	"medibook/pkg/model"
)

const (
	CollectionName = "Camps"
)

type mongoCampRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
}

type CampRepository interface {
	Create(ctx context.Context, camp *model.HealthCamp) error
	FindByID(ctx context.Context, id string) (*model.HealthCamp, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.HealthCamp, error)
	Count(ctx context.Context) (int64, error)
	FindOpenWithLocation(ctx context.Context) ([]*model.HealthCamp, error)
	FindByOrganizer(ctx context.Context, organizerID string, limit int, offset int64) ([]*model.HealthCamp, error)
	CountByOrganizer(ctx context.Context, organizerID string) (int64, error)
	Register(ctx context.Context, id, participantID string) (*model.HealthCamp, error)
	Unregister(ctx context.Context, id, participantID string) (*model.HealthCamp, error)
	UpdateStatus(ctx context.Context, id string, from, to model.CampStatus) error
}

func NewMongoCampRepository(cfg *config.Config) CampRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoCampRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
	}
}

// withTimeout wraps the context with a timeout unless we are already inside
// a transaction, where wrapping a SessionContext would break its semantics.
func (r *mongoCampRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoCampRepository) Create(ctx context.Context, camp *model.HealthCamp) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	camp.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if camp.Registrants == nil {
		camp.Registrants = []string{}
	}
	result, err := r.collection.InsertOne(ctx, camp)
	if err != nil {
		return fmt.Errorf("failed to create camp: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		camp.ID = oid.Hex()
	}
	return nil
}

func (r *mongoCampRepository) FindByID(ctx context.Context, id string) (*model.HealthCamp, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", campserrors.ErrInvalidID, id)
	}

	var camp model.HealthCamp
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&camp)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, campserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find camp: %w", err)
	}

	return &camp, nil
}

func (r *mongoCampRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.HealthCamp, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "window_start", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find camps: %w", err)
	}
	defer cursor.Close(ctx)

	var camps []*model.HealthCamp
	if err = cursor.All(ctx, &camps); err != nil {
		return nil, fmt.Errorf("failed to decode camps: %w", err)
	}

	return camps, nil
}

func (r *mongoCampRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count camps: %w", err)
	}

	return count, nil
}

// FindOpenWithLocation returns upcoming/ongoing camps that carry a resolved
// coordinate. Camps without a location are excluded at the query level so
// discovery can never mistake a missing coordinate for distance 0.
func (r *mongoCampRepository) FindOpenWithLocation(ctx context.Context) ([]*model.HealthCamp, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":   bson.M{"$in": []string{string(model.CampUpcoming), string(model.CampOngoing)}},
		"location": bson.M{"$type": "object"},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find open camps: %w", err)
	}
	defer cursor.Close(ctx)

	var camps []*model.HealthCamp
	if err = cursor.All(ctx, &camps); err != nil {
		return nil, fmt.Errorf("failed to decode camps: %w", err)
	}

	return camps, nil
}

func (r *mongoCampRepository) FindByOrganizer(ctx context.Context, organizerID string, limit int, offset int64) ([]*model.HealthCamp, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "window_start", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{"organizer_id": organizerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find camps by organizer: %w", err)
	}
	defer cursor.Close(ctx)

	var camps []*model.HealthCamp
	if err = cursor.All(ctx, &camps); err != nil {
		return nil, fmt.Errorf("failed to decode camps: %w", err)
	}

	return camps, nil
}

func (r *mongoCampRepository) CountByOrganizer(ctx context.Context, organizerID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"organizer_id": organizerID})
	if err != nil {
		return 0, fmt.Errorf("failed to count camps by organizer: %w", err)
	}

	return count, nil
}

// Register performs the check-and-increment as one conditional update: the
// filter demands an open camp, a free seat, and that the participant is not
// already in the set. Two racing callers can therefore never both claim the
// last seat, and registered_count stays equal to len(registrants).
func (r *mongoCampRepository) Register(ctx context.Context, id, participantID string) (*model.HealthCamp, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", campserrors.ErrInvalidID, id)
	}

	filter := bson.M{
		"_id":         objectID,
		"status":      bson.M{"$in": []string{string(model.CampUpcoming), string(model.CampOngoing)}},
		"registrants": bson.M{"$ne": participantID},
		"$expr": bson.M{
			"$lt": bson.A{bson.M{"$size": "$registrants"}, "$capacity"},
		},
	}
	update := bson.M{
		"$addToSet": bson.M{"registrants": participantID},
		"$inc":      bson.M{"registered_count": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var camp model.HealthCamp
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&camp)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, campserrors.ErrPreconditionFailed
		}
		return nil, fmt.Errorf("failed to register participant: %w", err)
	}

	return &camp, nil
}

// Unregister removes the participant and decrements the count in one
// conditional update; membership is part of the filter so the count can
// never go below the true set size.
func (r *mongoCampRepository) Unregister(ctx context.Context, id, participantID string) (*model.HealthCamp, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", campserrors.ErrInvalidID, id)
	}

	filter := bson.M{
		"_id":         objectID,
		"registrants": participantID,
	}
	update := bson.M{
		"$pull": bson.M{"registrants": participantID},
		"$inc":  bson.M{"registered_count": -1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var camp model.HealthCamp
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&camp)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, campserrors.ErrPreconditionFailed
		}
		return nil, fmt.Errorf("failed to unregister participant: %w", err)
	}

	return &camp, nil
}

// UpdateStatus applies an administrative transition conditioned on the
// current status, so concurrent organizer actions cannot skip states.
func (r *mongoCampRepository) UpdateStatus(ctx context.Context, id string, from, to model.CampStatus) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", campserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID, "status": string(from)}
	update := bson.M{"$set": bson.M{"status": string(to)}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update camp status: %w", err)
	}
	if result.MatchedCount == 0 {
		return campserrors.ErrPreconditionFailed
	}

	return nil
}
