package alert

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"alphawatch/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fptr(f float64) *float64 { return &f }
func iptr(v int64) *int64     { return &v }
func tptr(t time.Time) *time.Time {
	return &t
}

// fakeClock returns a fixed instant and can be advanced manually.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeNotificationStore is an in-memory NotificationStore.
type fakeNotificationStore struct {
	mu            sync.Mutex
	created       []domain.Notification
	deliveries    map[string][]domain.ChannelDelivery
	countByThresh map[string]int
	countErr      error
	createErr     error
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{
		deliveries:    map[string][]domain.ChannelDelivery{},
		countByThresh: map[string]int{},
	}
}

func (s *fakeNotificationStore) Create(_ context.Context, n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, n)
	return nil
}

func (s *fakeNotificationStore) UpdateDeliveries(_ context.Context, id string, deliveries []domain.ChannelDelivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries[id] = deliveries
	return nil
}

func (s *fakeNotificationStore) MarkRead(_ context.Context, id string, readAt time.Time) error {
	return nil
}

func (s *fakeNotificationStore) MarkDeleted(_ context.Context, id string) error { return nil }

func (s *fakeNotificationStore) GetByID(_ context.Context, id string) (domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.created {
		if n.ID == id {
			return n, nil
		}
	}
	return domain.Notification{}, domain.ErrNotFound
}

func (s *fakeNotificationStore) ListByUser(_ context.Context, userID string, _ domain.ListOpts) ([]domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Notification
	for _, n := range s.created {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *fakeNotificationStore) CountByThreshold(_ context.Context, thresholdID string, _ time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countErr != nil {
		return 0, s.countErr
	}
	return s.countByThresh[thresholdID], nil
}

func (s *fakeNotificationStore) ListBefore(_ context.Context, cutoff time.Time, limit int) ([]domain.Notification, error) {
	return nil, nil
}

func (s *fakeNotificationStore) DeleteIDs(_ context.Context, ids []string) (int64, error) {
	return 0, nil
}

// fakeThresholdStore is an in-memory ThresholdStore keyed by id.
type fakeThresholdStore struct {
	mu         sync.Mutex
	thresholds map[string]domain.AlertThreshold
	updatedIDs []string
}

func newFakeThresholdStore(ts ...domain.AlertThreshold) *fakeThresholdStore {
	s := &fakeThresholdStore{thresholds: map[string]domain.AlertThreshold{}}
	for _, t := range ts {
		s.thresholds[t.ID] = t
	}
	return s
}

func (s *fakeThresholdStore) Create(_ context.Context, t domain.AlertThreshold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thresholds[t.ID] = t
	return nil
}

func (s *fakeThresholdStore) Update(_ context.Context, t domain.AlertThreshold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thresholds[t.ID] = t
	return nil
}

func (s *fakeThresholdStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.thresholds, id)
	return nil
}

func (s *fakeThresholdStore) GetByID(_ context.Context, id string) (domain.AlertThreshold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.thresholds[id]
	if !ok {
		return domain.AlertThreshold{}, domain.ErrNotFound
	}
	return t, nil
}

func (s *fakeThresholdStore) ListByUser(_ context.Context, userID string, _ domain.ListOpts) ([]domain.AlertThreshold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AlertThreshold
	for _, t := range s.thresholds {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeThresholdStore) ListEnabled(_ context.Context, userID string) ([]domain.AlertThreshold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AlertThreshold
	for _, t := range s.thresholds {
		if t.UserID == userID && t.Enabled {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeThresholdStore) ListActiveUserIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, t := range s.thresholds {
		if t.Enabled && !seen[t.UserID] {
			seen[t.UserID] = true
			out = append(out, t.UserID)
		}
	}
	return out, nil
}

func (s *fakeThresholdStore) UpdateLastTriggered(_ context.Context, id string, prev *time.Time, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.thresholds[id]
	if !ok {
		return domain.ErrNotFound
	}
	if (t.LastTriggered == nil) != (prev == nil) {
		return domain.ErrNotFound
	}
	if t.LastTriggered != nil && prev != nil && !t.LastTriggered.Equal(*prev) {
		return domain.ErrNotFound
	}
	t.LastTriggered = &now
	s.thresholds[id] = t
	s.updatedIDs = append(s.updatedIDs, id)
	return nil
}

// fakeSender records deliveries for one channel and can be made to fail.
type fakeSender struct {
	mu      sync.Mutex
	channel domain.Channel
	err     error
	sent    []string
}

func (f *fakeSender) Channel() domain.Channel { return f.channel }

func (f *fakeSender) Send(_ context.Context, n *domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n.ID)
	return nil
}

// fakeBus records published events.
type fakeBus struct {
	mu        sync.Mutex
	published []domain.Event
}

func (b *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, domain.Event{Channel: channel, Payload: payload})
	return nil
}

func (b *fakeBus) Subscribe(_ context.Context, _ string) (<-chan domain.Event, error) {
	ch := make(chan domain.Event)
	close(ch)
	return ch, nil
}
