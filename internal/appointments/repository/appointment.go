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

	apptserrors "medibook/internal/appointments/errors"
	"medibook/pkg/config"
	mongotx "medibook/pkg/db/mongo"
	"medibook/pkg/model"
)

const (
	CollectionName = "Appointments"
)

type mongoAppointmentRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type AppointmentRepository interface {
	Create(ctx context.Context, appointment *model.Appointment) error
	FindByID(ctx context.Context, id string) (*model.Appointment, error)
	FindByPatient(ctx context.Context, patientID string, limit int, offset int64) ([]*model.Appointment, error)
	CountByPatient(ctx context.Context, patientID string) (int64, error)
	FindByDoctor(ctx context.Context, doctorID string, limit int, offset int64) ([]*model.Appointment, error)
	CountByDoctor(ctx context.Context, doctorID string) (int64, error)
	CountActiveByDoctorSlot(ctx context.Context, doctorID string, date time.Time, slot model.ClockTime) (int64, error)
	UpdateStatus(ctx context.Context, id string, observedVersion int64, to model.AppointmentStatus) (*model.Appointment, error)
	UpdatePayment(ctx context.Context, id string, from model.PaymentStatus, payment model.PaymentRecord) (*model.Appointment, error)
	MarkVideoNotified(ctx context.Context, id string) (bool, error)
	FindPendingVideoNotifications(ctx context.Context, dateFrom, dateUntil time.Time) ([]*model.Appointment, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoAppointmentRepository(cfg *config.Config) AppointmentRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAppointmentRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout unless we are already inside
// a transaction, where wrapping a SessionContext would break its semantics.
func (r *mongoAppointmentRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func (r *mongoAppointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	appointment.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, appointment)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		appointment.ID = oid.Hex()
	}
	return nil
}

func (r *mongoAppointmentRepository) FindByID(ctx context.Context, id string) (*model.Appointment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apptserrors.ErrInvalidID, id)
	}

	var appointment model.Appointment
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&appointment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apptserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find appointment: %w", err)
	}

	return &appointment, nil
}

func (r *mongoAppointmentRepository) FindByPatient(ctx context.Context, patientID string, limit int, offset int64) ([]*model.Appointment, error) {
	return r.findBy(ctx, bson.M{"patient_id": patientID}, limit, offset)
}

func (r *mongoAppointmentRepository) CountByPatient(ctx context.Context, patientID string) (int64, error) {
	return r.countBy(ctx, bson.M{"patient_id": patientID})
}

func (r *mongoAppointmentRepository) FindByDoctor(ctx context.Context, doctorID string, limit int, offset int64) ([]*model.Appointment, error) {
	return r.findBy(ctx, bson.M{"doctor_id": doctorID}, limit, offset)
}

func (r *mongoAppointmentRepository) CountByDoctor(ctx context.Context, doctorID string) (int64, error) {
	return r.countBy(ctx, bson.M{"doctor_id": doctorID})
}

// CountActiveByDoctorSlot counts pending or confirmed appointments holding
// the doctor's exact date and time slot. Run inside the same transaction as
// the insert that depends on it.
func (r *mongoAppointmentRepository) CountActiveByDoctorSlot(ctx context.Context, doctorID string, date time.Time, slot model.ClockTime) (int64, error) {
	return r.countBy(ctx, bson.M{
		"doctor_id":      doctorID,
		"scheduled_date": date,
		"scheduled_time": slot,
		"status": bson.M{"$in": []string{
			string(model.AppointmentPending),
			string(model.AppointmentConfirmed),
		}},
	})
}

func (r *mongoAppointmentRepository) findBy(ctx context.Context, filter bson.M, limit int, offset int64) ([]*model.Appointment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "scheduled_date", Value: 1}, {Key: "scheduled_time", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find appointments: %w", err)
	}
	defer cursor.Close(ctx)

	var appointments []*model.Appointment
	if err = cursor.All(ctx, &appointments); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}

	return appointments, nil
}

func (r *mongoAppointmentRepository) countBy(ctx context.Context, filter bson.M) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count appointments: %w", err)
	}
	return count, nil
}

// UpdateStatus applies a lifecycle transition only if the stored version
// still equals the one the caller observed; the version is bumped in the
// same write. Racing callers lose with ErrPreconditionFailed instead of a
// silent last-writer-wins merge.
func (r *mongoAppointmentRepository) UpdateStatus(ctx context.Context, id string, observedVersion int64, to model.AppointmentStatus) (*model.Appointment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apptserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID, "version": observedVersion}
	update := bson.M{
		"$set": bson.M{"status": string(to)},
		"$inc": bson.M{"version": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var appointment model.Appointment
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&appointment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apptserrors.ErrPreconditionFailed
		}
		return nil, fmt.Errorf("failed to update appointment status: %w", err)
	}

	return &appointment, nil
}

// UpdatePayment swaps the embedded payment record only while its status
// still equals from. The appointment version is deliberately not touched:
// the payment axis never contends with lifecycle transitions.
func (r *mongoAppointmentRepository) UpdatePayment(ctx context.Context, id string, from model.PaymentStatus, payment model.PaymentRecord) (*model.Appointment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apptserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID, "payment.status": string(from)}
	update := bson.M{"$set": bson.M{"payment": payment}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var appointment model.Appointment
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&appointment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apptserrors.ErrPreconditionFailed
		}
		return nil, fmt.Errorf("failed to update payment record: %w", err)
	}

	return &appointment, nil
}

// MarkVideoNotified flips the one-time notification flag. The false->true
// condition makes the "starting soon" event exactly-once even with several
// watcher instances evaluating the same appointment.
func (r *mongoAppointmentRepository) MarkVideoNotified(ctx context.Context, id string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("%w: %s", apptserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID, "video_notified": false}
	update := bson.M{"$set": bson.M{"video_notified": true}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to mark appointment notified: %w", err)
	}

	return result.ModifiedCount > 0, nil
}

// FindPendingVideoNotifications loads confirmed video appointments in the
// date window that have not fired their notification yet. The watcher
// narrows to the exact minute in memory since the scheduled wall-clock time
// is stored separately from the date.
func (r *mongoAppointmentRepository) FindPendingVideoNotifications(ctx context.Context, dateFrom, dateUntil time.Time) ([]*model.Appointment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":         string(model.AppointmentConfirmed),
		"modality":       string(model.ModalityVideo),
		"video_notified": false,
		"scheduled_date": bson.M{"$gte": dateFrom, "$lte": dateUntil},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find appointments pending notification: %w", err)
	}
	defer cursor.Close(ctx)

	var appointments []*model.Appointment
	if err = cursor.All(ctx, &appointments); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}

	return appointments, nil
}

func (r *mongoAppointmentRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
