package archiver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisedginton/mood_mate/internal/analytics"
	"github.com/lewisedginton/mood_mate/internal/mood"
	"github.com/lewisedginton/mood_mate/internal/session_store"
	"github.com/lewisedginton/mood_mate/internal/storage_manager"
	"github.com/lewisedginton/mood_mate/pkg/logger"
)

var fixedNow = time.Date(2026, 10, 14, 15, 4, 5, 0, time.UTC)

type failingProvider struct {
	storage_manager.FileProvider
	failOn string
}

func (p failingProvider) Write(ctx context.Context, name string, data []byte) error {
	if name == p.failOn {
		return errors.New("disk full")
	}
	return p.FileProvider.Write(ctx, name, data)
}

func newLocal(t *testing.T) *storage_manager.LocalFileProvider {
	t.Helper()
	return storage_manager.NewLocalFileProvider(t.TempDir())
}

func expiredSession(id string, start time.Time) session_store.Expired {
	return session_store.Expired{
		Session: session_store.Session{
			ID:           id,
			StartTime:    start,
			LastActivity: start.Add(time.Minute),
			MessageCount: 1,
			MoodHistory:  []session_store.MoodPoint{{Mood: mood.Happy, Timestamp: start}},
			CurrentMood:  mood.Happy,
		},
		ChatLog: []session_store.ChatLogEntry{
			{Sender: session_store.SenderUser, Message: "I am happy", Mood: mood.Happy, Timestamp: start},
			{Sender: session_store.SenderBot, Message: "Curse you, happiness!", Mood: mood.Happy, Timestamp: start},
		},
	}
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "analytics/20261014T150405Z.json", SnapshotPath(fixedNow))

	local := time.Date(2026, 10, 14, 23, 30, 0, 0, time.FixedZone("PDT", -7*3600))
	assert.Equal(t, "analytics/20261015T063000Z.json", SnapshotPath(local))

	s := session_store.Session{ID: "session-abc", StartTime: local}
	assert.Equal(t, "sessions/2026-10-15/session-abc.json", SessionPath(s))
}

func TestExportSnapshot(t *testing.T) {
	provider := newLocal(t)
	a := New(provider, logger.NewNopLogger(), nil)

	agg := analytics.New()
	agg.RecordSession()
	agg.RecordMessage(mood.Stressed, "deadline panic again", fixedNow)

	name, err := a.ExportSnapshot(context.Background(), agg.Snapshot(), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "analytics/20261014T150405Z.json", name)

	data, err := provider.Read(context.Background(), name)
	require.NoError(t, err)

	var got analytics.Snapshot
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 1, got.TotalSessions)
	assert.Equal(t, 1, got.MoodCounts.Stressed)
	assert.Equal(t, 1, got.KeywordFrequency["deadline"])
	assert.Equal(t, 1, got.DailyStats["2026-10-14"].Total)
}

func TestArchiveSessions(t *testing.T) {
	provider := newLocal(t)
	a := New(provider, logger.NewNopLogger(), nil)

	written, err := a.ArchiveSessions(context.Background(), []session_store.Expired{
		expiredSession("session-1", fixedNow),
		expiredSession("session-2", fixedNow.Add(-48*time.Hour)),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	names, err := provider.List(context.Background(), "sessions")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"sessions/2026-10-12/session-2.json",
		"sessions/2026-10-14/session-1.json",
	}, names)

	data, err := provider.Read(context.Background(), "sessions/2026-10-14/session-1.json")
	require.NoError(t, err)

	var got session_store.Expired
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "session-1", got.Session.ID)
	require.Len(t, got.ChatLog, 2)
	assert.Equal(t, session_store.SenderBot, got.ChatLog[1].Sender)
}

func TestArchiveSessionsContinuesAfterFailure(t *testing.T) {
	provider := failingProvider{FileProvider: newLocal(t), failOn: "sessions/2026-10-14/session-bad.json"}
	a := New(provider, logger.NewNopLogger(), nil)

	written, err := a.ArchiveSessions(context.Background(), []session_store.Expired{
		expiredSession("session-bad", fixedNow),
		expiredSession("session-good", fixedNow),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session-bad")
	assert.Equal(t, 1, written)

	_, err = provider.Read(context.Background(), "sessions/2026-10-14/session-good.json")
	assert.NoError(t, err)
}

func TestOnExpire(t *testing.T) {
	provider := newLocal(t)
	a := New(provider, logger.NewNopLogger(), nil)

	a.OnExpire(context.Background())([]session_store.Expired{expiredSession("session-1", fixedNow)})

	_, err := provider.Read(context.Background(), "sessions/2026-10-14/session-1.json")
	assert.NoError(t, err)
}

func TestRunExportsFinalSnapshot(t *testing.T) {
	provider := newLocal(t)
	a := New(provider, logger.NewNopLogger(), func() time.Time { return fixedNow })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.Run(ctx, time.Hour, func() analytics.Snapshot { return analytics.New().Snapshot() })
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}

	names, err := provider.List(context.Background(), "analytics")
	require.NoError(t, err)
	assert.Equal(t, []string{"analytics/20261014T150405Z.json"}, names)
}

func TestRunTicks(t *testing.T) {
	provider := newLocal(t)
	var tick int
	a := New(provider, logger.NewNopLogger(), func() time.Time {
		tick++
		return fixedNow.Add(time.Duration(tick) * time.Second)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.Run(ctx, 10*time.Millisecond, func() analytics.Snapshot { return analytics.New().Snapshot() })
	}()

	assert.Eventually(t, func() bool {
		names, err := provider.List(context.Background(), "analytics")
		return err == nil && len(names) >= 2
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
