// Package archiver exports analytics snapshots and transcripts of expired sessions
// into a storage_manager backend. Nothing is ever read back.
package archiver

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/lewisedginton/mood_mate/internal/analytics"
	"github.com/lewisedginton/mood_mate/internal/session_store"
	"github.com/lewisedginton/mood_mate/internal/storage_manager"
	"github.com/lewisedginton/mood_mate/pkg/logger"
)

const (
	// DefaultInterval is how often Run exports a snapshot when no interval is given.
	DefaultInterval = 15 * time.Minute

	snapshotDir  = "analytics"
	sessionsDir  = "sessions"
	timestampFmt = "20060102T150405Z"
	finalTimeout = 10 * time.Second
)

// Archiver writes JSON documents through a FileProvider.
type Archiver struct {
	provider storage_manager.FileProvider
	log      logger.Logger
	clock    func() time.Time
}

// New creates an Archiver. clock may be nil.
func New(provider storage_manager.FileProvider, log logger.Logger, clock func() time.Time) *Archiver {
	if clock == nil {
		clock = time.Now
	}
	return &Archiver{
		provider: provider,
		log:      log.WithFields(logger.StringField("component", "archiver")),
		clock:    clock,
	}
}

// SnapshotPath is the object name a snapshot taken at now is written to.
func SnapshotPath(now time.Time) string {
	return path.Join(snapshotDir, now.UTC().Format(timestampFmt)+".json")
}

// SessionPath is the object name of an archived session transcript, grouped by the
// UTC day the session started.
func SessionPath(s session_store.Session) string {
	return path.Join(sessionsDir, analytics.DayKey(s.StartTime), s.ID+".json")
}

// ExportSnapshot writes snapshot under analytics/ and returns the object name.
func (a *Archiver) ExportSnapshot(ctx context.Context, snapshot analytics.Snapshot, now time.Time) (string, error) {
	name := SnapshotPath(now)
	if err := a.writeJSON(ctx, name, snapshot); err != nil {
		return "", fmt.Errorf("failed to export snapshot: %w", err)
	}
	a.log.Info("Analytics snapshot exported",
		logger.StringField("object", name),
		logger.IntField("total_sessions", snapshot.TotalSessions))
	return name, nil
}

// ArchiveSessions writes one document per expired session. Every session is
// attempted; the number written is returned with the first error seen.
func (a *Archiver) ArchiveSessions(ctx context.Context, expired []session_store.Expired) (int, error) {
	var (
		written  int
		firstErr error
	)
	for _, e := range expired {
		name := SessionPath(e.Session)
		if err := a.writeJSON(ctx, name, e); err != nil {
			a.log.Warn("Failed to archive session",
				logger.SessionIDField(e.Session.ID),
				logger.ErrorField(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to archive session %s: %w", e.Session.ID, err)
			}
			continue
		}
		written++
	}
	if written > 0 {
		a.log.Info("Expired sessions archived", logger.IntField("count", written))
	}
	return written, firstErr
}

// OnExpire adapts ArchiveSessions to the session sweeper callback. Failures are
// logged only.
func (a *Archiver) OnExpire(ctx context.Context) func([]session_store.Expired) {
	return func(expired []session_store.Expired) {
		_, _ = a.ArchiveSessions(ctx, expired)
	}
}

// Run exports source() every interval until ctx is done, then writes a final
// snapshot so the last counters survive shutdown.
func (a *Archiver) Run(ctx context.Context, interval time.Duration, source func() analytics.Snapshot) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.log.Info("Starting snapshot exporter", logger.DurationField("interval", interval))
	for {
		select {
		case <-ctx.Done():
			finalCtx, cancel := context.WithTimeout(context.Background(), finalTimeout) //nolint:contextcheck // parent is already cancelled
			a.export(finalCtx, source)
			cancel()
			a.log.Info("Snapshot exporter stopped")
			return
		case <-ticker.C:
			a.export(ctx, source)
		}
	}
}

func (a *Archiver) export(ctx context.Context, source func() analytics.Snapshot) {
	if _, err := a.ExportSnapshot(ctx, source(), a.clock()); err != nil {
		a.log.Warn("Snapshot export failed", logger.ErrorField(err))
	}
}

func (a *Archiver) writeJSON(ctx context.Context, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return a.provider.Write(ctx, name, data)
}
