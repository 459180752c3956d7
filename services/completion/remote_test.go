package completionsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/coursecertificate/core"
	"github.com/trezcool/coursecertificate/core/certificate"
)

func newRemote(t *testing.T, handler http.HandlerFunc) *RemoteTracker {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRemoteTracker(&core.Config{LMS: core.LMSConfig{
		CompletionAPIURL: srv.URL,
		Timeout:          5 * time.Second,
	}})
}

func TestRemoteTracker_Completions(t *testing.T) {
	at := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)
	tracker := newRemote(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/courses/c1/activities/a1/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]certificate.Completion{{UserID: "u1", CompletedAt: at}})
	})

	completions, err := tracker.Completions(context.Background(), "c1", "a1")
	require.NoError(t, err)
	require.Len(t, completions, 1)
	assert.Equal(t, "u1", completions[0].UserID)
	assert.True(t, at.Equal(completions[0].CompletedAt))
}

func TestRemoteTracker_MarkViewed(t *testing.T) {
	tests := []struct {
		name       string
		code       int
		wantErrStr string
	}{
		{name: "recorded", code: http.StatusNoContent},
		{name: "forbidden", code: http.StatusForbidden, wantErrStr: "marking activity viewed: 403 not enrolled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := newRemote(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/courses/c1/activities/a1/views", r.URL.Path)
				var body map[string]string
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "u1", body["user_id"])
				if tt.code >= 400 {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(tt.code)
					_, _ = w.Write([]byte(`{"error":"not enrolled"}`))
					return
				}
				w.WriteHeader(tt.code)
			})

			err := tracker.MarkViewed(context.Background(), "c1", "a1", "u1")
			if tt.wantErrStr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErrStr, err.Error())
		})
	}
}
