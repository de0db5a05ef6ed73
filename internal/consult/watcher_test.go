package consult

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	mongotx "medibook/pkg/db/mongo"
	"medibook/pkg/config"
	"medibook/pkg/logger"
	"medibook/pkg/model"
)

// watcherRepo covers just enough of the appointment store for the watcher:
// a fixed candidate list and a guarded one-shot notification flag.
type watcherRepo struct {
	mu           sync.Mutex
	appointments []*model.Appointment
	notified     map[string]bool
}

func newWatcherRepo(appointments ...*model.Appointment) *watcherRepo {
	return &watcherRepo{
		appointments: appointments,
		notified:     make(map[string]bool),
	}
}

func (r *watcherRepo) FindPendingVideoNotifications(_ context.Context, _, _ time.Time) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pending []*model.Appointment
	for _, a := range r.appointments {
		if !r.notified[a.ID] {
			pending = append(pending, a)
		}
	}
	return pending, nil
}

func (r *watcherRepo) MarkVideoNotified(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.notified[id] {
		return false, nil
	}
	r.notified[id] = true
	return true, nil
}

func (r *watcherRepo) Create(context.Context, *model.Appointment) error { return nil }
func (r *watcherRepo) FindByID(context.Context, string) (*model.Appointment, error) {
	return nil, nil
}
func (r *watcherRepo) FindByPatient(context.Context, string, int, int64) ([]*model.Appointment, error) {
	return nil, nil
}
func (r *watcherRepo) CountByPatient(context.Context, string) (int64, error) { return 0, nil }
func (r *watcherRepo) FindByDoctor(context.Context, string, int, int64) ([]*model.Appointment, error) {
	return nil, nil
}
func (r *watcherRepo) CountByDoctor(context.Context, string) (int64, error) { return 0, nil }
func (r *watcherRepo) CountActiveByDoctorSlot(context.Context, string, time.Time, model.ClockTime) (int64, error) {
	return 0, nil
}
func (r *watcherRepo) UpdateStatus(context.Context, string, int64, model.AppointmentStatus) (*model.Appointment, error) {
	return nil, nil
}
func (r *watcherRepo) UpdatePayment(context.Context, string, model.PaymentStatus, model.PaymentRecord) (*model.Appointment, error) {
	return nil, nil
}
func (r *watcherRepo) ExecuteTransaction(context.Context, mongotx.TransactionFunc) error { return nil }

type capturingPublisher struct {
	mu     sync.Mutex
	keys   []string
	failed bool
}

func (p *capturingPublisher) Publish(_ context.Context, key, _ string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failed {
		return context.DeadlineExceeded
	}
	p.keys = append(p.keys, key)
	return nil
}

func (p *capturingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

func watcherConfig() *config.Config {
	return &config.Config{
		NotifyThreshold:  15 * time.Minute,
		JoinGateLead:     5 * time.Minute,
		GateTickInterval: time.Second,
		GateLookahead:    30 * time.Minute,
		Log: logger.New(logger.Config{
			Level:   logger.ERROR,
			Output:  io.Discard,
			Service: "consult-test",
		}),
	}
}

func videoAppointment(id string, startsAt time.Time) *model.Appointment {
	scheduled, _ := model.NewClockTime(startsAt.Hour(), startsAt.Minute())
	return &model.Appointment{
		ID:            id,
		PatientID:     "patient-1",
		DoctorID:      "doctor-1",
		ScheduledDate: startsAt.Truncate(24 * time.Hour),
		ScheduledTime: scheduled,
		Modality:      model.ModalityVideo,
		Status:        model.AppointmentConfirmed,
	}
}

func TestWatcherNotifiesInsideWindow(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 46, 0, 0, time.UTC)
	repo := newWatcherRepo(videoAppointment("appt-1", callStart))
	publisher := &capturingPublisher{}

	w := NewWatcher(repo, publisher, watcherConfig())
	w.now = func() time.Time { return now }

	w.tick(context.Background())

	if got := publisher.published(); len(got) != 1 || got[0] != "appt-1" {
		t.Fatalf("published keys = %v, want [appt-1]", got)
	}
	if !repo.notified["appt-1"] {
		t.Fatal("notification flag not set")
	}
}

func TestWatcherSkipsOutsideWindow(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 30, 0, 0, time.UTC)
	repo := newWatcherRepo(videoAppointment("appt-1", callStart))
	publisher := &capturingPublisher{}

	w := NewWatcher(repo, publisher, watcherConfig())
	w.now = func() time.Time { return now }

	w.tick(context.Background())

	if got := publisher.published(); len(got) != 0 {
		t.Fatalf("published keys = %v, want none", got)
	}
	if repo.notified["appt-1"] {
		t.Fatal("notification flag set outside the window")
	}
}

func TestWatcherNotifiesExactlyOnce(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 50, 0, 0, time.UTC)
	repo := newWatcherRepo(videoAppointment("appt-1", callStart))
	publisher := &capturingPublisher{}

	w := NewWatcher(repo, publisher, watcherConfig())
	w.now = func() time.Time { return now }

	w.tick(context.Background())
	w.tick(context.Background())
	w.tick(context.Background())

	if got := publisher.published(); len(got) != 1 {
		t.Fatalf("published %d notifications, want exactly 1", len(got))
	}
}

func TestConcurrentWatchersShareOneNotification(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 50, 0, 0, time.UTC)
	repo := newWatcherRepo(videoAppointment("appt-1", callStart))
	publisher := &capturingPublisher{}

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		w := NewWatcher(repo, publisher, watcherConfig())
		w.now = func() time.Time { return now }
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.tick(context.Background())
		}()
	}
	wg.Wait()

	if got := publisher.published(); len(got) != 1 {
		t.Fatalf("published %d notifications across watchers, want exactly 1", len(got))
	}
}

func TestWatcherStopsOnContextCancel(t *testing.T) {
	repo := newWatcherRepo()
	w := NewWatcher(repo, &capturingPublisher{}, watcherConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after context cancellation")
	}
}
