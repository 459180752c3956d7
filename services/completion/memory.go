package completionsvc

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/coursecertificate/core/certificate"
	"github.com/trezcool/coursecertificate/core/event"
)

type completionKey struct {
	courseID   string
	activityID string
}

// MemoryTracker is an in-process completion tracker, for development and tests.
// It publishes ActivityCompleted and CompletionReset on its bus.
type MemoryTracker struct {
	mu          sync.RWMutex
	completions map[completionKey]map[string]time.Time // {key: {userID: completedAt}}
	bus         *event.Bus
	now         func() time.Time
}

var _ certificate.CompletionTracker = (*MemoryTracker)(nil) // interface compliance check

func NewMemoryTracker(bus *event.Bus) *MemoryTracker {
	return &MemoryTracker{
		completions: make(map[completionKey]map[string]time.Time),
		bus:         bus,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Complete records that userID completed the activity at the given time.
// Completing an activity again moves its completion date.
func (t *MemoryTracker) Complete(ctx context.Context, courseID, activityID, userID string, at time.Time) {
	key := completionKey{courseID: courseID, activityID: activityID}
	t.mu.Lock()
	users, ok := t.completions[key]
	if !ok {
		users = make(map[string]time.Time)
		t.completions[key] = users
	}
	users[userID] = at.UTC()
	t.mu.Unlock()

	if t.bus != nil {
		t.bus.Publish(ctx, certificate.ActivityCompleted{
			CourseID:    courseID,
			ActivityID:  activityID,
			UserID:      userID,
			CompletedAt: at.UTC(),
		})
	}
}

// Reset clears the completions of userID in the course.
func (t *MemoryTracker) Reset(ctx context.Context, courseID, userID string) {
	t.mu.Lock()
	for key, users := range t.completions {
		if key.courseID == courseID {
			delete(users, userID)
		}
	}
	t.mu.Unlock()

	if t.bus != nil {
		t.bus.Publish(ctx, certificate.CompletionReset{CourseID: courseID, UserID: userID})
	}
}

func (t *MemoryTracker) Completions(_ context.Context, courseID, activityID string) ([]certificate.Completion, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	users := t.completions[completionKey{courseID: courseID, activityID: activityID}]
	completions := make([]certificate.Completion, 0, len(users))
	for userID, at := range users {
		completions = append(completions, certificate.Completion{UserID: userID, CompletedAt: at})
	}
	return completions, nil
}

func (t *MemoryTracker) MarkViewed(ctx context.Context, courseID, activityID, userID string) error {
	t.Complete(ctx, courseID, activityID, userID, t.now())
	return nil
}
