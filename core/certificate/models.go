package certificate

import (
	"time"
)

// ExpiryDateType is the expiry policy of the certificates issued by an Activity.
type ExpiryDateType int

const (
	ExpiryNever ExpiryDateType = iota
	ExpiryOnDate
)

// Activity is the configuration record of one certificate activity in a course.
type Activity struct {
	ID         string `json:"id"`
	CourseID   string `json:"course_id"`
	Name       string `json:"name"`
	Intro      string `json:"intro"`
	TemplateID string `json:"template"`
	// Expires is a unix timestamp (seconds); 0 means issued certificates never expire.
	Expires  int64 `json:"expires"`
	AutoSend bool  `json:"automaticsend"`
	// AutoSendSince is the last time AutoSend was switched on. Zero while AutoSend is off.
	AutoSendSince  time.Time `json:"automaticsend_since,omitempty"` // UTC
	CompletionView bool      `json:"completion_view"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

func (a Activity) ExpiryDateType() ExpiryDateType {
	if a.Expires != 0 {
		return ExpiryOnDate
	}
	return ExpiryNever
}

// ExpiresOn returns the expiry date of issued certificates, zero if they never expire.
func (a Activity) ExpiresOn() time.Time {
	if a.Expires == 0 {
		return time.Time{}
	}
	return time.Unix(a.Expires, 0).UTC()
}

// NewActivity contains information needed to create a new Activity.
type NewActivity struct {
	CourseID       string
	Name           string
	Intro          string
	TemplateID     string
	Expires        int64
	AutoSend       bool
	CompletionView bool
}

// UpdateActivity contains the mutable fields of an Activity.
type UpdateActivity struct {
	Name           string
	Intro          string
	TemplateID     string
	Expires        int64
	AutoSend       bool
	CompletionView bool
}

// QueryFilter applies AND on its non-empty fields.
type QueryFilter struct {
	CourseID string
	AutoSend *bool
}

// Template is a certificate template of the certificate service.
type Template struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Issue is one certificate granted to a user, owned by the certificate service.
type Issue struct {
	ID         string    `json:"id"`
	TemplateID string    `json:"template_id"`
	CourseID   string    `json:"course_id"`
	UserID     string    `json:"user_id"`
	Code       string    `json:"code"`
	IssuedOn   time.Time `json:"issued_on"`            // UTC
	ExpiresOn  time.Time `json:"expires_on,omitempty"` // UTC, zero if never
	RevokedAt  time.Time `json:"revoked_at,omitempty"` // UTC, zero while active
}

func (i Issue) Active() bool { return i.RevokedAt.IsZero() }

// IssueFilter selects issues. Empty fields match everything.
type IssueFilter struct {
	TemplateID     string
	CourseID       string
	UserID         string
	IncludeRevoked bool
}

func (f IssueFilter) Match(iss Issue) bool {
	if f.TemplateID != "" && iss.TemplateID != f.TemplateID {
		return false
	}
	if f.CourseID != "" && iss.CourseID != f.CourseID {
		return false
	}
	if f.UserID != "" && iss.UserID != f.UserID {
		return false
	}
	return f.IncludeRevoked || iss.Active()
}

// NewIssue holds what the certificate service needs to grant a certificate.
type NewIssue struct {
	TemplateID string
	CourseID   string
	UserID     string
	ExpiresOn  time.Time
}

// Completion reports that a user completed an activity.
type Completion struct {
	UserID      string    `json:"user_id"`
	CompletedAt time.Time `json:"completed_at"` // UTC
}

// TemplateContext is the context templates are listed in.
type TemplateContext struct {
	CourseID           string
	UserID             string
	CanManageTemplates bool
}

// State of a (activity, user) pair.
type State int

const (
	StateNotEligible State = iota
	StateEligible
	StateIssued
	StateRevoked
)

func (s State) String() string {
	switch s {
	case StateEligible:
		return "eligible"
	case StateIssued:
		return "issued"
	case StateRevoked:
		return "revoked"
	default:
		return "not_eligible"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
