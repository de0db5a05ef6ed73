package consult

import (
	"context"
	"time"

	"medibook/internal/appointments/repository"
	"medibook/internal/events"
	"medibook/pkg/config"
)

// Watcher periodically scans upcoming video consultations and fires the
// one-time "starting soon" notification when a call enters the notify
// window. The store's conditional flag write is what makes the event
// exactly-once; the watcher itself may be replicated freely.
type Watcher struct {
	repo      repository.AppointmentRepository
	publisher events.Publisher
	cfg       *config.Config
	now       func() time.Time
	done      chan struct{}
}

func NewWatcher(repo repository.AppointmentRepository, publisher events.Publisher, cfg *config.Config) *Watcher {
	return &Watcher{
		repo:      repo,
		publisher: publisher,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
		done:      make(chan struct{}),
	}
}

func (w *Watcher) Run(ctx context.Context) {
	w.cfg.Log.Info("Consult watcher started",
		"tick_interval", w.cfg.GateTickInterval,
		"notify_threshold", w.cfg.NotifyThreshold,
		"lookahead", w.cfg.GateLookahead,
	)

	ticker := time.NewTicker(w.cfg.GateTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.cfg.Log.Info("Consult watcher stopping", "reason", ctx.Err())
			return
		case <-w.done:
			w.cfg.Log.Info("Consult watcher stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Watcher) Stop() {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
}

// tick scans one lookahead window. The date filter is coarse (calendar
// days), so each candidate is re-checked against the exact call start
// before anything fires.
func (w *Watcher) tick(ctx context.Context) {
	now := w.now()
	dateFrom := now.Truncate(24 * time.Hour)
	dateUntil := now.Add(w.cfg.GateLookahead)

	candidates, err := w.repo.FindPendingVideoNotifications(ctx, dateFrom, dateUntil)
	if err != nil {
		w.cfg.Log.Error("Consult watcher scan failed", "error", err)
		return
	}

	thresholds := Thresholds{
		NotifyThreshold: w.cfg.NotifyThreshold,
		JoinGateLead:    w.cfg.JoinGateLead,
	}

	for _, appointment := range candidates {
		startsAt := appointment.StartsAt()
		snapshot := Evaluate(startsAt, now, thresholds)
		if !snapshot.StartingSoon && !snapshot.CallStarted {
			continue
		}

		w.notify(ctx, appointment.ID, appointment.PatientID, appointment.DoctorID, startsAt, now)
	}
}

func (w *Watcher) notify(ctx context.Context, appointmentID, patientID, doctorID string, startsAt, now time.Time) {
	claimed, err := w.repo.MarkVideoNotified(ctx, appointmentID)
	if err != nil {
		w.cfg.Log.Error("Failed to claim notification", "appointment_id", appointmentID, "error", err)
		return
	}
	if !claimed {
		// Another watcher instance won the flag.
		return
	}

	err = w.publisher.Publish(ctx, appointmentID, events.TypeConsultStartingSoon, events.ConsultStartingSoon{
		AppointmentID: appointmentID,
		PatientID:     patientID,
		DoctorID:      doctorID,
		StartsAt:      startsAt,
		NotifiedAt:    now,
	})
	if err != nil {
		// The flag is already set, so this notification is lost rather
		// than duplicated. The DLQ on the producer side covers broker
		// outages.
		w.cfg.Log.Error("Failed to publish starting-soon event",
			"appointment_id", appointmentID,
			"error", err,
		)
		return
	}

	w.cfg.Log.Info("Consult starting soon",
		"appointment_id", appointmentID,
		"starts_at", startsAt,
		"time_remaining", startsAt.Sub(now),
	)
}
