package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/langchou/tripbook/internal/models"
	"github.com/langchou/tripbook/internal/repository"
)

// memStore 内存存储，与数据库一样最多允许一个进行中的行程
type memStore struct {
	mu        sync.Mutex
	trips     map[uuid.UUID]models.Trip
	insertErr error
	updateErr error
	findErr   error

	findCompletedCalls atomic.Int32
}

func newMemStore(trips ...*models.Trip) *memStore {
	s := &memStore{trips: make(map[uuid.UUID]models.Trip)}
	for _, t := range trips {
		s.trips[t.ID] = *t
	}
	return s
}

func (s *memStore) activeLocked() *models.Trip {
	for _, t := range s.trips {
		if t.IsActive() {
			c := t
			return &c
		}
	}
	return nil
}

func (s *memStore) Insert(_ context.Context, trip *models.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	if trip.IsActive() && s.activeLocked() != nil {
		return repository.ErrActiveTripExists
	}
	s.trips[trip.ID] = *trip
	return nil
}

func (s *memStore) Update(_ context.Context, trip *models.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.trips[trip.ID]; !ok {
		return repository.ErrTripNotFound
	}
	if active := s.activeLocked(); trip.IsActive() && active != nil && active.ID != trip.ID {
		return repository.ErrActiveTripExists
	}
	s.trips[trip.ID] = *trip
	return nil
}

func (s *memStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trips[id]; !ok {
		return repository.ErrTripNotFound
	}
	delete(s.trips, id)
	return nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[id]
	if !ok {
		return nil, repository.ErrTripNotFound
	}
	return &t, nil
}

func (s *memStore) FindActive(context.Context) (*models.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.activeLocked(), nil
}

func (s *memStore) FindCompleted(context.Context) ([]*models.Trip, error) {
	s.findCompletedCalls.Add(1)
	return s.completed(), nil
}

func (s *memStore) FindLastCompleted(context.Context) (*models.Trip, error) {
	if trips := s.completed(); len(trips) > 0 {
		return trips[0], nil
	}
	return nil, nil
}

func (s *memStore) completed() []*models.Trip {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Trip
	for _, t := range s.trips {
		if !t.IsActive() {
			c := t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out
}

func (s *memStore) FindInMonth(_ context.Context, year int, month time.Month) ([]*models.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Trip
	for _, t := range s.trips {
		if t.StartTime.Year() == year && t.StartTime.Month() == month {
			c := t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trips)
}

// fakeSource 可控的数据来源
type fakeSource struct {
	mu      sync.Mutex
	reading models.Reading
	err     error
	delay   time.Duration
	calls   atomic.Int32
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Fetch(ctx context.Context) (*models.Reading, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	r := f.reading
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	return &r, nil
}

func (f *fakeSource) set(battery, odometer float64, ts time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reading = models.Reading{BatteryPercent: battery, OdometerKm: odometer, Timestamp: ts}
	f.err = nil
}

func (f *fakeSource) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// recordingSink 记录发布的状态
type recordingSink struct {
	mu       sync.Mutex
	statuses []models.LiveStatus
	err      error
}

func (r *recordingSink) Publish(_ context.Context, s models.LiveStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
	return r.err
}

func (r *recordingSink) last() models.LiveStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return models.LiveStatus{}
	}
	return r.statuses[len(r.statuses)-1]
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.statuses)
}

var errDiskFull = errors.New("disk full")
