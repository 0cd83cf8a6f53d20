package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"alphawatch/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// archiveStore serves notifications ordered oldest first and prunes on
// DeleteIDs, mirroring the store queries the archiver relies on.
type archiveStore struct {
	mu            sync.Mutex
	notifications []domain.Notification
}

func (s *archiveStore) Create(_ context.Context, n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, n)
	return nil
}

func (s *archiveStore) UpdateDeliveries(_ context.Context, _ string, _ []domain.ChannelDelivery) error {
	return nil
}

func (s *archiveStore) MarkRead(_ context.Context, _ string, _ time.Time) error { return nil }
func (s *archiveStore) MarkDeleted(_ context.Context, _ string) error           { return nil }

func (s *archiveStore) GetByID(_ context.Context, _ string) (domain.Notification, error) {
	return domain.Notification{}, domain.ErrNotFound
}

func (s *archiveStore) ListByUser(_ context.Context, _ string, _ domain.ListOpts) ([]domain.Notification, error) {
	return nil, nil
}

func (s *archiveStore) CountByThreshold(_ context.Context, _ string, _ time.Time) (int, error) {
	return 0, nil
}

func (s *archiveStore) ListBefore(_ context.Context, cutoff time.Time, limit int) ([]domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Notification
	for _, n := range s.notifications {
		if n.CreatedAt.Before(cutoff) {
			out = append(out, n)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *archiveStore) DeleteIDs(_ context.Context, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	var kept []domain.Notification
	var pruned int64
	for _, n := range s.notifications {
		if drop[n.ID] {
			pruned++
			continue
		}
		kept = append(kept, n)
	}
	s.notifications = kept
	return pruned, nil
}

// memBlobWriter captures uploads keyed by object path.
type memBlobWriter struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemBlobWriter() *memBlobWriter { return &memBlobWriter{objects: map[string][]byte{}} }

func (w *memBlobWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(data); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.objects[path] = buf.Bytes()
	return nil
}

func TestArchiverExportsAndPrunesOldNotifications(t *testing.T) {
	now := time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)
	store := &archiveStore{}
	ctx := context.Background()

	// Two stale notifications and one recent.
	old := now.Add(-91 * 24 * time.Hour)
	store.Create(ctx, domain.Notification{ID: "n-old-1", UserID: "u1", CreatedAt: old})
	store.Create(ctx, domain.Notification{ID: "n-old-2", UserID: "u1", CreatedAt: old.Add(time.Minute)})
	store.Create(ctx, domain.Notification{ID: "n-new", UserID: "u1", CreatedAt: now.Add(-time.Hour)})

	blobs := newMemBlobWriter()
	a := NewArchiver(store, blobs, 90, time.Hour, fixedClock{now}, testLogger())

	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(blobs.objects) != 1 {
		t.Fatalf("uploads: got %d, want 1", len(blobs.objects))
	}
	for path, data := range blobs.objects {
		if !strings.HasPrefix(path, "notifications/") || !strings.HasSuffix(path, ".jsonl") {
			t.Errorf("object path: %q", path)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 2 {
			t.Errorf("exported lines: got %d, want 2", len(lines))
		}
		if !strings.Contains(lines[0], "n-old-1") {
			t.Errorf("first line should be the oldest notification: %s", lines[0])
		}
	}

	// The recent notification survives.
	remaining, _ := store.ListBefore(ctx, now.Add(time.Hour), 10)
	if len(remaining) != 1 || remaining[0].ID != "n-new" {
		t.Errorf("remaining: %+v, want only n-new", remaining)
	}
}

func TestArchiverBoundaryTimestampSpansBatches(t *testing.T) {
	now := time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)
	store := &archiveStore{}
	ctx := context.Background()

	// More stale rows than one batch fits, all sharing one created_at. The
	// overflow rows must survive the first prune and land in the next export.
	stale := now.Add(-120 * 24 * time.Hour)
	total := archiveBatch + 5
	for i := 0; i < total; i++ {
		store.Create(ctx, domain.Notification{ID: fmt.Sprintf("n-%04d", i), UserID: "u1", CreatedAt: stale})
	}

	blobs := newMemBlobWriter()
	a := NewArchiver(store, blobs, 90, time.Hour, fixedClock{now}, testLogger())

	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(blobs.objects) != 2 {
		t.Fatalf("uploads: got %d, want 2", len(blobs.objects))
	}
	exported := 0
	for _, data := range blobs.objects {
		exported += len(strings.Split(strings.TrimSpace(string(data)), "\n"))
	}
	if exported != total {
		t.Errorf("exported lines: got %d, want %d", exported, total)
	}

	remaining, _ := store.ListBefore(ctx, now, total*2)
	if len(remaining) != 0 {
		t.Errorf("stale rows left behind: got %d, want 0", len(remaining))
	}
}

func TestArchiverNoopWhenNothingStale(t *testing.T) {
	now := time.Now()
	store := &archiveStore{}
	store.Create(context.Background(), domain.Notification{ID: "n1", CreatedAt: now})

	blobs := newMemBlobWriter()
	a := NewArchiver(store, blobs, 90, time.Hour, fixedClock{now}, testLogger())

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(blobs.objects) != 0 {
		t.Error("no uploads expected with nothing past retention")
	}
}
