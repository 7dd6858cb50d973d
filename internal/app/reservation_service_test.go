package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vitikevich-landau/event-booking-api/internal/clock"
	"github.com/vitikevich-landau/event-booking-api/internal/domain"
	"github.com/vitikevich-landau/event-booking-api/internal/outbox"
)

func TestReservationService_Reserve(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	makeSvc := func(events []domain.Event, reservations []domain.Reservation) (*ReservationService, *fakeReservationRepo, *fakeOutbox) {
		repo := newFakeReservationRepo(events, reservations)
		ob := &fakeOutbox{}
		svc := NewReservationService(repo, ob, clock.NewFixed(now))
		return svc, repo, ob
	}

	t.Run("reserves seat and records outbox event", func(t *testing.T) {
		svc, repo, ob := makeSvc(
			[]domain.Event{{ID: 1, Name: "Concert", TotalSeats: 2, CreatedAt: now}},
			nil,
		)

		res, err := svc.Reserve(context.Background(), 1, "alice")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.ID == 0 {
			t.Fatalf("expected reservation ID to be set")
		}
		if res.EventID != 1 || res.UserID != "alice" {
			t.Fatalf("unexpected reservation: %+v", res)
		}
		if res.CreatedAt != now {
			t.Fatalf("expected created_at %v, got %v", now, res.CreatedAt)
		}
		if len(repo.reservations) != 1 {
			t.Fatalf("expected 1 reservation in repo, got %d", len(repo.reservations))
		}
		if len(ob.appended) != 1 || ob.appended[0].topic != outbox.TopicReservationCreated {
			t.Fatalf("expected one outbox append for %s, got %+v", outbox.TopicReservationCreated, ob.appended)
		}
	})

	t.Run("rejects invalid event id", func(t *testing.T) {
		svc, _, _ := makeSvc(nil, nil)
		if _, err := svc.Reserve(context.Background(), 0, "alice"); err != domain.ErrInvalidEventID {
			t.Fatalf("expected ErrInvalidEventID, got %v", err)
		}
		if _, err := svc.Reserve(context.Background(), -3, "alice"); err != domain.ErrInvalidEventID {
			t.Fatalf("expected ErrInvalidEventID, got %v", err)
		}
	})

	t.Run("rejects invalid user id", func(t *testing.T) {
		svc, _, _ := makeSvc(nil, nil)
		if _, err := svc.Reserve(context.Background(), 1, ""); err != domain.ErrInvalidUserID {
			t.Fatalf("expected ErrInvalidUserID for empty user, got %v", err)
		}
		long := make([]byte, domain.MaxUserIDLen+1)
		for i := range long {
			long[i] = 'u'
		}
		if _, err := svc.Reserve(context.Background(), 1, string(long)); err != domain.ErrInvalidUserID {
			t.Fatalf("expected ErrInvalidUserID for oversized user, got %v", err)
		}
	})

	t.Run("missing event fails with not found", func(t *testing.T) {
		svc, repo, ob := makeSvc(nil, nil)
		_, err := svc.Reserve(context.Background(), 999, "alice")
		if err != domain.ErrEventNotFound {
			t.Fatalf("expected ErrEventNotFound, got %v", err)
		}
		if len(repo.reservations) != 0 || len(ob.appended) != 0 {
			t.Fatalf("expected no state change on failure")
		}
	})

	t.Run("full event fails with no seats available", func(t *testing.T) {
		svc, repo, _ := makeSvc(
			[]domain.Event{{ID: 1, Name: "Concert", TotalSeats: 1, CreatedAt: now}},
			[]domain.Reservation{{ID: 10, EventID: 1, UserID: "bob", CreatedAt: now}},
		)

		_, err := svc.Reserve(context.Background(), 1, "alice")
		if err != domain.ErrNoSeatsAvailable {
			t.Fatalf("expected ErrNoSeatsAvailable, got %v", err)
		}
		if len(repo.reservations) != 1 {
			t.Fatalf("expected reservations unchanged, got %d", len(repo.reservations))
		}
	})

	t.Run("duplicate pair fails with already booked", func(t *testing.T) {
		svc, repo, _ := makeSvc(
			[]domain.Event{{ID: 1, Name: "Concert", TotalSeats: 10, CreatedAt: now}},
			[]domain.Reservation{{ID: 10, EventID: 1, UserID: "alice", CreatedAt: now}},
		)

		_, err := svc.Reserve(context.Background(), 1, "alice")
		if err != domain.ErrAlreadyBooked {
			t.Fatalf("expected ErrAlreadyBooked, got %v", err)
		}
		if len(repo.reservations) != 1 {
			t.Fatalf("expected reservations unchanged, got %d", len(repo.reservations))
		}
	})

	t.Run("outbox failure aborts the reservation", func(t *testing.T) {
		repo := newFakeReservationRepo(
			[]domain.Event{{ID: 1, Name: "Concert", TotalSeats: 10, CreatedAt: now}},
			nil,
		)
		ob := &fakeOutbox{err: errors.New("outbox down")}
		svc := NewReservationService(repo, ob, clock.NewFixed(now))

		if _, err := svc.Reserve(context.Background(), 1, "alice"); err == nil {
			t.Fatalf("expected error from outbox append")
		}
		if len(repo.reservations) != 0 {
			t.Fatalf("expected rollback to discard the reservation, got %d rows", len(repo.reservations))
		}
	})

	t.Run("works without an outbox", func(t *testing.T) {
		repo := newFakeReservationRepo(
			[]domain.Event{{ID: 1, Name: "Concert", TotalSeats: 1, CreatedAt: now}},
			nil,
		)
		svc := NewReservationService(repo, nil, clock.NewFixed(now))

		if _, err := svc.Reserve(context.Background(), 1, "alice"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}

func TestReservationService_Reserve_Concurrent(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("no oversell under concurrent distinct users", func(t *testing.T) {
		const seats = 5
		const callers = 20

		repo := newFakeReservationRepo(
			[]domain.Event{{ID: 1, Name: "Concert", TotalSeats: seats, CreatedAt: now}},
			nil,
		)
		svc := NewReservationService(repo, nil, clock.NewFixed(now))

		errs := make(chan error, callers)
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				_, err := svc.Reserve(context.Background(), 1, "user-"+string(rune('a'+n)))
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)

		var ok, full int
		for err := range errs {
			switch err {
			case nil:
				ok++
			case domain.ErrNoSeatsAvailable:
				full++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if ok != seats || full != callers-seats {
			t.Fatalf("expected %d successes and %d conflicts, got %d/%d", seats, callers-seats, ok, full)
		}
		if len(repo.reservations) != seats {
			t.Fatalf("expected %d committed reservations, got %d", seats, len(repo.reservations))
		}
	})

	t.Run("no duplicate under concurrent same pair", func(t *testing.T) {
		const callers = 10

		repo := newFakeReservationRepo(
			[]domain.Event{{ID: 1, Name: "Concert", TotalSeats: 100, CreatedAt: now}},
			nil,
		)
		svc := NewReservationService(repo, nil, clock.NewFixed(now))

		errs := make(chan error, callers)
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.Reserve(context.Background(), 1, "alice")
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		var ok, dup int
		for err := range errs {
			switch err {
			case nil:
				ok++
			case domain.ErrAlreadyBooked:
				dup++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if ok != 1 || dup != callers-1 {
			t.Fatalf("expected 1 success and %d conflicts, got %d/%d", callers-1, ok, dup)
		}
	})
}

func TestReservationService_Reads(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := newFakeReservationRepo(
		[]domain.Event{{ID: 1, Name: "Concert", TotalSeats: 10, CreatedAt: now}},
		[]domain.Reservation{
			{ID: 1, EventID: 1, UserID: "alice", CreatedAt: now},
			{ID: 2, EventID: 1, UserID: "bob", CreatedAt: now.Add(time.Minute)},
		},
	)
	svc := NewReservationService(repo, nil, clock.NewFixed(now))

	t.Run("ListByEvent newest first", func(t *testing.T) {
		list, err := svc.ListByEvent(context.Background(), 1)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(list) != 2 || list[0].ID != 2 || list[1].ID != 1 {
			t.Fatalf("unexpected order: %+v", list)
		}
	})

	t.Run("ListByUser empty slice for unknown user", func(t *testing.T) {
		list, err := svc.ListByUser(context.Background(), "nobody")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if list == nil || len(list) != 0 {
			t.Fatalf("expected empty slice, got %v", list)
		}
	})

	t.Run("Exists reflects committed reservations", func(t *testing.T) {
		ok, err := svc.Exists(context.Background(), 1, "alice")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !ok {
			t.Fatalf("expected exists=true for alice")
		}
		ok, err = svc.Exists(context.Background(), 1, "carol")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ok {
			t.Fatalf("expected exists=false for carol")
		}
	})

	t.Run("reads validate input", func(t *testing.T) {
		if _, err := svc.ListByEvent(context.Background(), 0); err != domain.ErrInvalidEventID {
			t.Fatalf("expected ErrInvalidEventID, got %v", err)
		}
		if _, err := svc.ListByUser(context.Background(), ""); err != domain.ErrInvalidUserID {
			t.Fatalf("expected ErrInvalidUserID, got %v", err)
		}
		if _, err := svc.Exists(context.Background(), 1, ""); err != domain.ErrInvalidUserID {
			t.Fatalf("expected ErrInvalidUserID, got %v", err)
		}
	})
}

// fakeReservationRepo emulates the storage contract: WithTx serializes
// writers the way the per-event row lock does, restores state on error like
// a rollback, and CreateReservation enforces the unique pair constraint.
type fakeReservationRepo struct {
	mu           sync.Mutex
	events       map[int64]domain.Event
	reservations []domain.Reservation
	nextID       int64
}

func newFakeReservationRepo(events []domain.Event, reservations []domain.Reservation) *fakeReservationRepo {
	m := make(map[int64]domain.Event, len(events))
	for _, e := range events {
		m[e.ID] = e
	}
	var maxID int64
	for _, r := range reservations {
		if r.ID > maxID {
			maxID = r.ID
		}
	}
	return &fakeReservationRepo{
		events:       m,
		reservations: append([]domain.Reservation{}, reservations...),
		nextID:       maxID,
	}
}

func (f *fakeReservationRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot := append([]domain.Reservation{}, f.reservations...)
	savedID := f.nextID
	if err := fn(ctx); err != nil {
		f.reservations = snapshot
		f.nextID = savedID
		return err
	}
	return nil
}

func (f *fakeReservationRepo) GetEventForUpdate(_ context.Context, eventID int64) (domain.Event, error) {
	event, ok := f.events[eventID]
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return event, nil
}

func (f *fakeReservationRepo) CountByEvent(_ context.Context, eventID int64) (int, error) {
	count := 0
	for _, r := range f.reservations {
		if r.EventID == eventID {
			count++
		}
	}
	return count, nil
}

func (f *fakeReservationRepo) CreateReservation(_ context.Context, res *domain.Reservation) error {
	for _, r := range f.reservations {
		if r.EventID == res.EventID && r.UserID == res.UserID {
			return domain.ErrAlreadyBooked
		}
	}
	f.nextID++
	res.ID = f.nextID
	f.reservations = append(f.reservations, *res)
	return nil
}

func (f *fakeReservationRepo) ListByEvent(_ context.Context, eventID int64) ([]domain.Reservation, error) {
	out := make([]domain.Reservation, 0)
	for i := len(f.reservations) - 1; i >= 0; i-- {
		if f.reservations[i].EventID == eventID {
			out = append(out, f.reservations[i])
		}
	}
	return out, nil
}

func (f *fakeReservationRepo) ListByUser(_ context.Context, userID string) ([]domain.Reservation, error) {
	out := make([]domain.Reservation, 0)
	for i := len(f.reservations) - 1; i >= 0; i-- {
		if f.reservations[i].UserID == userID {
			out = append(out, f.reservations[i])
		}
	}
	return out, nil
}

func (f *fakeReservationRepo) Exists(_ context.Context, eventID int64, userID string) (bool, error) {
	for _, r := range f.reservations {
		if r.EventID == eventID && r.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

type appendedEvent struct {
	topic   string
	payload []byte
}

type fakeOutbox struct {
	mu       sync.Mutex
	appended []appendedEvent
	err      error
}

func (f *fakeOutbox) Append(_ context.Context, topic string, payload []byte, _ time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, appendedEvent{topic: topic, payload: payload})
	return nil
}
