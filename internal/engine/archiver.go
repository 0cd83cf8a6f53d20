package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"alphawatch/internal/domain"
)

// archiveBatch is how many notifications one export object may hold.
const archiveBatch = 1000

// BlobWriter uploads one object to cold storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver exports notifications older than the retention window to cold
// storage as JSON lines and prunes them from the database afterwards. An
// export that fails leaves the rows in place; pruning only follows a
// successful upload.
type Archiver struct {
	notifications domain.NotificationStore
	blobs         BlobWriter
	retentionDays int
	interval      time.Duration
	clock         domain.Clock
	logger        *slog.Logger
}

// NewArchiver creates an Archiver that runs every interval and keeps
// retentionDays of notification history live.
func NewArchiver(
	notifications domain.NotificationStore,
	blobs BlobWriter,
	retentionDays int,
	interval time.Duration,
	clock domain.Clock,
	logger *slog.Logger,
) *Archiver {
	return &Archiver{
		notifications: notifications,
		blobs:         blobs,
		retentionDays: retentionDays,
		interval:      interval,
		clock:         clock,
		logger:        logger.With(slog.String("component", "archiver")),
	}
}

// RunLoop runs an archive pass on every tick until the context is cancelled.
func (a *Archiver) RunLoop(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.Run(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				a.logger.ErrorContext(ctx, "archive run failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Run executes a single archive pass.
func (a *Archiver) Run(ctx context.Context) error {
	cutoff := a.clock.Now().Add(-time.Duration(a.retentionDays) * 24 * time.Hour)
	a.logger.InfoContext(ctx, "starting archive run",
		slog.Time("cutoff", cutoff),
		slog.Int("retention_days", a.retentionDays),
	)

	var exported int64
	for {
		batch, err := a.notifications.ListBefore(ctx, cutoff, archiveBatch)
		if err != nil {
			return fmt.Errorf("archiver: list notifications before %v: %w", cutoff, err)
		}
		if len(batch) == 0 {
			break
		}

		if err := a.export(ctx, batch); err != nil {
			return err
		}

		// Prune exactly what was exported. A timestamp cutoff would also catch
		// rows sharing the boundary instant that did not fit this batch.
		ids := make([]string, len(batch))
		for i := range batch {
			ids[i] = batch[i].ID
		}
		pruned, err := a.notifications.DeleteIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("archiver: prune notifications: %w", err)
		}
		exported += pruned

		if len(batch) < archiveBatch {
			break
		}
	}

	a.logger.InfoContext(ctx, "archive run complete", slog.Int64("archived", exported))
	return nil
}

// export uploads one batch as a JSON-lines object keyed by the batch's time
// range.
func (a *Archiver) export(ctx context.Context, batch []domain.Notification) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range batch {
		if err := enc.Encode(&batch[i]); err != nil {
			return fmt.Errorf("archiver: encode notification %s: %w", batch[i].ID, err)
		}
	}

	// The leading notification id keeps keys unique when consecutive batches
	// share the same time range.
	first := batch[0].CreatedAt.UTC()
	last := batch[len(batch)-1].CreatedAt.UTC()
	key := fmt.Sprintf("notifications/%s/%s_%s_%s.jsonl",
		first.Format("2006/01/02"),
		first.Format("150405"),
		last.Format("150405"),
		batch[0].ID,
	)

	if err := a.blobs.Put(ctx, key, &buf, "application/x-ndjson"); err != nil {
		return fmt.Errorf("archiver: upload %s: %w", key, err)
	}
	return nil
}
