package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/coursecertificate/core"
	"github.com/trezcool/coursecertificate/core/certificate"
)

const activityColumns = "id, course_id, name, intro, template_id, expires, auto_send, auto_send_since, completion_view, created_at, updated_at"

// activityRow is a certificate_activity row. Timestamps are stored as unix seconds.
type activityRow struct {
	ID             string      `db:"id"`
	CourseID       string      `db:"course_id"`
	Name           string      `db:"name"`
	Intro          null.String `db:"intro"`
	TemplateID     string      `db:"template_id"`
	Expires        int64       `db:"expires"`
	AutoSend       bool        `db:"auto_send"`
	AutoSendSince  null.Int64  `db:"auto_send_since"`
	CompletionView bool        `db:"completion_view"`
	CreatedAt      int64       `db:"created_at"`
	UpdatedAt      int64       `db:"updated_at"`
}

type activityRepository struct {
	exec core.DBExecutor
}

var _ certificate.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(exec core.DBExecutor) *activityRepository {
	return &activityRepository{exec: exec}
}

func (repo activityRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func (repo activityRepository) toRow(act certificate.Activity) activityRow {
	return activityRow{
		ID:             act.ID,
		CourseID:       act.CourseID,
		Name:           act.Name,
		Intro:          null.NewString(act.Intro, act.Intro != ""),
		TemplateID:     act.TemplateID,
		Expires:        act.Expires,
		AutoSend:       act.AutoSend,
		AutoSendSince:  null.NewInt64(unixOrZero(act.AutoSendSince), !act.AutoSendSince.IsZero()),
		CompletionView: act.CompletionView,
		CreatedAt:      unixOrZero(act.CreatedAt),
		UpdatedAt:      unixOrZero(act.UpdatedAt),
	}
}

func (repo activityRepository) fromRow(row activityRow) certificate.Activity {
	return certificate.Activity{
		ID:             row.ID,
		CourseID:       row.CourseID,
		Name:           row.Name,
		Intro:          row.Intro.String,
		TemplateID:     row.TemplateID,
		Expires:        row.Expires,
		AutoSend:       row.AutoSend,
		AutoSendSince:  fromUnix(row.AutoSendSince.Int64),
		CompletionView: row.CompletionView,
		CreatedAt:      fromUnix(row.CreatedAt),
		UpdatedAt:      fromUnix(row.UpdatedAt),
	}
}

// trapNoRowsErr maps "no rows" err to certificate.ErrNotFound
func (repo activityRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return certificate.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo activityRepository) CreateActivity(ctx context.Context, act certificate.Activity, exec ...core.DBExecutor) (certificate.Activity, error) {
	exe := repo.getExec(exec)
	act.ID = uuid.New().String()
	row := repo.toRow(act)

	q := exe.Rebind(`INSERT INTO certificate_activity (` + activityColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := exe.ExecContext(ctx, q,
		row.ID, row.CourseID, row.Name, row.Intro, row.TemplateID, row.Expires,
		row.AutoSend, row.AutoSendSince, row.CompletionView, row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		return certificate.Activity{}, errors.Wrap(err, "inserting certificate activity")
	}
	return repo.fromRow(row), nil
}

func (repo activityRepository) GetActivity(ctx context.Context, id string, exec ...core.DBExecutor) (certificate.Activity, error) {
	if _, err := uuid.Parse(id); err != nil {
		return certificate.Activity{}, certificate.ErrNotFound
	}
	exe := repo.getExec(exec)

	var row activityRow
	q := exe.Rebind(`SELECT ` + activityColumns + ` FROM certificate_activity WHERE id = ?`)
	if err := exe.GetContext(ctx, &row, q, id); err != nil {
		return certificate.Activity{}, repo.trapNoRowsErr(err, "finding certificate activity by ID")
	}
	return repo.fromRow(row), nil
}

func (repo activityRepository) QueryActivities(ctx context.Context, filter certificate.QueryFilter, exec ...core.DBExecutor) ([]certificate.Activity, error) {
	exe := repo.getExec(exec)

	var (
		where []string
		args  []interface{}
	)
	if filter.CourseID != "" {
		where = append(where, "course_id = ?")
		args = append(args, filter.CourseID)
	}
	if filter.AutoSend != nil {
		where = append(where, "auto_send = ?")
		args = append(args, *filter.AutoSend)
	}

	q := `SELECT ` + activityColumns + ` FROM certificate_activity`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY " + core.DBOrdering{Field: "created_at", Ascending: true}.String() + ", id ASC"

	var rows []activityRow
	if err := exe.SelectContext(ctx, &rows, exe.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying certificate activities")
	}
	acts := make([]certificate.Activity, 0, len(rows))
	for _, row := range rows {
		acts = append(acts, repo.fromRow(row))
	}
	return acts, nil
}

func (repo activityRepository) UpdateActivity(ctx context.Context, act certificate.Activity, exec ...core.DBExecutor) (certificate.Activity, error) {
	exe := repo.getExec(exec)
	row := repo.toRow(act)

	// id, course_id and created_at are immutable
	q := exe.Rebind(`UPDATE certificate_activity SET
		name = ?, intro = ?, template_id = ?, expires = ?, auto_send = ?, auto_send_since = ?, completion_view = ?, updated_at = ?
		WHERE id = ?`)
	res, err := exe.ExecContext(ctx, q,
		row.Name, row.Intro, row.TemplateID, row.Expires, row.AutoSend, row.AutoSendSince,
		row.CompletionView, row.UpdatedAt, row.ID,
	)
	if err != nil {
		return certificate.Activity{}, errors.Wrap(err, "updating certificate activity")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return certificate.Activity{}, certificate.ErrNotFound
	}
	return repo.GetActivity(ctx, act.ID, exe)
}

func (repo activityRepository) DeleteActivity(ctx context.Context, id string, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)

	res, err := exe.ExecContext(ctx, exe.Rebind(`DELETE FROM certificate_activity WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting certificate activity")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return certificate.ErrNotFound
	}
	return nil
}
