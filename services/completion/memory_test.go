package completionsvc

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/coursecertificate/core"
	"github.com/trezcool/coursecertificate/core/certificate"
	"github.com/trezcool/coursecertificate/core/event"
	logsvc "github.com/trezcool/coursecertificate/services/logger"
)

func newBus() *event.Bus {
	return event.NewBus(logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), &core.Config{Env: "TEST", TestMode: true}))
}

func TestMemoryTracker(t *testing.T) {
	ctx := context.Background()
	bus := newBus()
	var published []event.Event
	record := func(_ context.Context, ev event.Event) error {
		published = append(published, ev)
		return nil
	}
	bus.Subscribe(certificate.EventActivityCompleted, record)
	bus.Subscribe(certificate.EventCompletionReset, record)

	tracker := NewMemoryTracker(bus)
	at := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)
	tracker.Complete(ctx, "c1", "a1", "u1", at)
	tracker.Complete(ctx, "c1", "a1", "u2", at)
	tracker.Complete(ctx, "c1", "a2", "u1", at)
	tracker.Complete(ctx, "c2", "a3", "u1", at)

	completions, err := tracker.Completions(ctx, "c1", "a1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []certificate.Completion{{UserID: "u1", CompletedAt: at}, {UserID: "u2", CompletedAt: at}}, completions)

	tracker.Reset(ctx, "c1", "u1")
	completions, _ = tracker.Completions(ctx, "c1", "a1")
	assert.Equal(t, []certificate.Completion{{UserID: "u2", CompletedAt: at}}, completions)
	completions, _ = tracker.Completions(ctx, "c1", "a2")
	assert.Empty(t, completions)
	completions, _ = tracker.Completions(ctx, "c2", "a3")
	assert.Len(t, completions, 1, "other courses are untouched")

	require.Len(t, published, 5)
	assert.Equal(t, certificate.ActivityCompleted{CourseID: "c1", ActivityID: "a1", UserID: "u1", CompletedAt: at}, published[0])
	assert.Equal(t, certificate.CompletionReset{CourseID: "c1", UserID: "u1"}, published[4])

	viewedAt := at.Add(time.Hour)
	tracker.now = func() time.Time { return viewedAt }
	require.NoError(t, tracker.MarkViewed(ctx, "c1", "a2", "u3"))
	completions, _ = tracker.Completions(ctx, "c1", "a2")
	assert.Equal(t, []certificate.Completion{{UserID: "u3", CompletedAt: viewedAt}}, completions)
}
