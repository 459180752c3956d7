package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/coursecertificate/core/certificate"
)

// TestActivityRepository runs the behaviour every certificate.Repository must have.
func TestActivityRepository(t *testing.T, repo certificate.Repository) {
	ctx := context.Background()
	day := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

	a1 := CreateActivity(t, repo, "c1", "First", "t1", true, day)
	a2 := CreateActivity(t, repo, "c1", "Second", "t2", false, day.Add(time.Hour))
	a3 := CreateActivity(t, repo, "c2", "Third", "t1", true, day.Add(2*time.Hour))

	t.Run("get", func(t *testing.T) {
		got, err := repo.GetActivity(ctx, a1.ID)
		require.NoError(t, err)
		assert.Equal(t, a1, got)
		assert.Equal(t, day, got.AutoSendSince)
		assert.Equal(t, "", got.Intro)

		_, err = repo.GetActivity(ctx, "1d4f1a5c-77c1-4e6b-b6b4-5a1c1b0f8a11")
		assert.Equal(t, certificate.ErrNotFound, err)
		_, err = repo.GetActivity(ctx, "nope")
		assert.Equal(t, certificate.ErrNotFound, err)
	})

	t.Run("query", func(t *testing.T) {
		on, off := true, false
		tests := []struct {
			name   string
			filter certificate.QueryFilter
			want   []certificate.Activity
		}{
			{"all", certificate.QueryFilter{}, []certificate.Activity{a1, a2, a3}},
			{"course", certificate.QueryFilter{CourseID: "c1"}, []certificate.Activity{a1, a2}},
			{"auto-send", certificate.QueryFilter{AutoSend: &on}, []certificate.Activity{a1, a3}},
			{"course without auto-send", certificate.QueryFilter{CourseID: "c1", AutoSend: &off}, []certificate.Activity{a2}},
			{"no match", certificate.QueryFilter{CourseID: "c9"}, []certificate.Activity{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := repo.QueryActivities(ctx, tt.filter)
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			})
		}
	})

	t.Run("update", func(t *testing.T) {
		upd := a2
		upd.Name = "Second, renamed"
		upd.Intro = "Well done"
		upd.Expires = day.AddDate(1, 0, 0).Unix()
		upd.AutoSend = true
		upd.AutoSendSince = day.Add(3 * time.Hour)
		upd.UpdatedAt = day.Add(3 * time.Hour)

		got, err := repo.UpdateActivity(ctx, upd)
		require.NoError(t, err)
		assert.Equal(t, upd, got)

		got, err = repo.GetActivity(ctx, a2.ID)
		require.NoError(t, err)
		assert.Equal(t, upd, got)

		upd.AutoSend, upd.AutoSendSince = false, time.Time{}
		got, err = repo.UpdateActivity(ctx, upd)
		require.NoError(t, err)
		assert.True(t, got.AutoSendSince.IsZero())

		missing := a2
		missing.ID = "1d4f1a5c-77c1-4e6b-b6b4-5a1c1b0f8a11"
		_, err = repo.UpdateActivity(ctx, missing)
		assert.Equal(t, certificate.ErrNotFound, err)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteActivity(ctx, a3.ID))
		_, err := repo.GetActivity(ctx, a3.ID)
		assert.Equal(t, certificate.ErrNotFound, err)
		assert.Equal(t, certificate.ErrNotFound, repo.DeleteActivity(ctx, a3.ID))
	})
}
