package certificate

import "time"

// Event names.
const (
	EventCompletionReset   = "completion_reset"
	EventActivityCompleted = "activity_completed"
)

// CompletionReset is published by the LMS when the completion of a user in a course is cleared.
type CompletionReset struct {
	CourseID string `json:"course_id"`
	UserID   string `json:"user_id"`
}

func (CompletionReset) EventName() string { return EventCompletionReset }

// ActivityCompleted is published by the completion tracker when a user completes an activity.
type ActivityCompleted struct {
	CourseID    string    `json:"course_id"`
	ActivityID  string    `json:"activity_id"`
	UserID      string    `json:"user_id"`
	CompletedAt time.Time `json:"completed_at"`
}

func (ActivityCompleted) EventName() string { return EventActivityCompleted }
