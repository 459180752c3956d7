package certificate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/coursecertificate/core"
)

func TestService_Create(t *testing.T) {
	fx := newFixture(false)
	ctx := context.Background()

	act, err := fx.svc.Create(ctx, NewActivity{CourseID: "c1", Name: "  Certificate  ", TemplateID: "t1", AutoSend: true})
	require.NoError(t, err)
	assert.NotEmpty(t, act.ID)
	assert.Equal(t, "Certificate", act.Name)
	assert.Equal(t, base, act.AutoSendSince)
	assert.Equal(t, base, act.CreatedAt)

	act, err = fx.svc.Create(ctx, NewActivity{CourseID: "c1", Name: "Manual", TemplateID: "t1"})
	require.NoError(t, err)
	assert.True(t, act.AutoSendSince.IsZero(), "auto-send is off")
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		issued     bool
		revoked    bool
		update     UpdateActivity
		wantErr    bool
		wantFields []core.FieldError
	}{
		{
			name:   "template change without issues",
			update: UpdateActivity{Name: "Renamed", TemplateID: "t2"},
		},
		{
			name:       "template change with issues",
			issued:     true,
			update:     UpdateActivity{Name: "Renamed", TemplateID: "t2"},
			wantErr:    true,
			wantFields: []core.FieldError{{Field: "template", Error: ErrTemplateLocked.Error()}},
		},
		{
			name:    "template change once every issue is revoked",
			issued:  true,
			revoked: true,
			update:  UpdateActivity{Name: "Renamed", TemplateID: "t2"},
		},
		{
			name:   "same template with issues",
			issued: true,
			update: UpdateActivity{Name: "Renamed", TemplateID: "t1", Expires: base.Unix()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(false)
			act, err := fx.svc.Create(ctx, NewActivity{CourseID: "c1", Name: "Certificate", TemplateID: "t1"})
			require.NoError(t, err)
			if tt.issued {
				id, err := fx.certSvc.Issue(ctx, NewIssue{TemplateID: "t1", CourseID: "c1", UserID: "u1"})
				require.NoError(t, err)
				if tt.revoked {
					require.NoError(t, fx.policy.RevokeIssue(ctx, id))
				}
			}

			got, err := fx.svc.Update(ctx, act.ID, tt.update)
			if tt.wantErr {
				require.Error(t, err)
				vErr, ok := err.(*core.ValidationError)
				require.True(t, ok, "want *core.ValidationError, got %T", err)
				assert.Equal(t, tt.wantFields, vErr.Fields)

				stored, _ := fx.svc.Get(ctx, act.ID)
				assert.Equal(t, act, stored, "a failed update must not change the record")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.update.Name, got.Name)
			assert.Equal(t, tt.update.TemplateID, got.TemplateID)
			assert.Equal(t, tt.update.Expires, got.Expires)
		})
	}

	t.Run("not found", func(t *testing.T) {
		fx := newFixture(false)
		_, err := fx.svc.Update(ctx, "nope", UpdateActivity{Name: "x"})
		assert.Equal(t, ErrNotFound, err)
	})
}

func TestService_AutoSend(t *testing.T) {
	fx := newFixture(false)
	ctx := context.Background()

	act, err := fx.svc.Create(ctx, NewActivity{CourseID: "c1", Name: "Certificate", TemplateID: "t1"})
	require.NoError(t, err)

	later := base.Add(time.Hour)
	fx.svc.now = func() time.Time { return later }

	act, err = fx.svc.ToggleAutoSend(ctx, act.ID)
	require.NoError(t, err)
	assert.True(t, act.AutoSend)
	assert.Equal(t, later, act.AutoSendSince)

	fx.svc.now = func() time.Time { return later.Add(time.Hour) }
	act, err = fx.svc.SetAutoSend(ctx, act.ID, true)
	require.NoError(t, err)
	assert.Equal(t, later, act.AutoSendSince, "switching on an activity already on keeps the original date")

	act, err = fx.svc.ToggleAutoSend(ctx, act.ID)
	require.NoError(t, err)
	assert.False(t, act.AutoSend)
	assert.True(t, act.AutoSendSince.IsZero())

	_, err = fx.svc.SetAutoSend(ctx, "nope", true)
	assert.Equal(t, ErrNotFound, err)
}

func TestService_Delete_keepsIssues(t *testing.T) {
	fx := newFixture(false)
	ctx := context.Background()

	act, err := fx.svc.Create(ctx, NewActivity{CourseID: "c1", Name: "Certificate", TemplateID: "t1"})
	require.NoError(t, err)
	_, err = fx.certSvc.Issue(ctx, NewIssue{TemplateID: "t1", CourseID: "c1", UserID: "u1"})
	require.NoError(t, err)

	require.NoError(t, fx.svc.Delete(ctx, act.ID))
	_, err = fx.svc.Get(ctx, act.ID)
	assert.Equal(t, ErrNotFound, err)
	assert.Len(t, fx.certSvc.active(IssueFilter{CourseID: "c1"}), 1)
}

func TestService_Issues(t *testing.T) {
	fx := newFixture(false)
	ctx := context.Background()

	act, err := fx.svc.Create(ctx, NewActivity{CourseID: "c1", Name: "Certificate", TemplateID: "t1"})
	require.NoError(t, err)

	issues, err := fx.svc.Issues(ctx, act, false)
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.NotNil(t, issues)

	ids := issueAll(t, fx,
		NewIssue{TemplateID: "t1", CourseID: "c1", UserID: "u1"},
		NewIssue{TemplateID: "t1", CourseID: "c1", UserID: "u2"},
		NewIssue{TemplateID: "t2", CourseID: "c1", UserID: "u1"},
	)
	require.NoError(t, fx.policy.RevokeIssue(ctx, ids[0]))

	issues, err = fx.svc.Issues(ctx, act, false)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, ids[1], issues[0].ID)

	issues, err = fx.svc.Issues(ctx, act, true)
	require.NoError(t, err)
	assert.Len(t, issues, 2)

	fx.certSvc.queryErr = errors.New("service down")
	_, err = fx.svc.Issues(ctx, act, true)
	assert.True(t, core.IsExternalServiceError(err))
}
