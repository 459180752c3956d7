package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/coursecertificate/core"
	"github.com/trezcool/coursecertificate/core/certificate"
)

type activityRepository struct {
	db *activityTable
}

var _ certificate.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(db *DB) *activityRepository {
	return &activityRepository{db: db.activity}
}

func (repo *activityRepository) query() []certificate.Activity {
	acts := make([]certificate.Activity, 0, len(repo.db.table))
	for _, act := range repo.db.table {
		acts = append(acts, *act)
	}
	sort.Slice(acts, func(i, j int) bool {
		if acts[i].CreatedAt.Equal(acts[j].CreatedAt) {
			return acts[i].ID < acts[j].ID
		}
		return acts[i].CreatedAt.Before(acts[j].CreatedAt)
	})
	return acts
}

func (repo *activityRepository) CreateActivity(_ context.Context, act certificate.Activity, _ ...core.DBExecutor) (certificate.Activity, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	act.ID = uuid.New().String()
	repo.db.table[act.ID] = &act
	return act, nil
}

func (repo *activityRepository) GetActivity(_ context.Context, id string, _ ...core.DBExecutor) (certificate.Activity, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if act, ok := repo.db.table[id]; ok {
		return *act, nil
	}
	return certificate.Activity{}, certificate.ErrNotFound
}

func (repo *activityRepository) QueryActivities(_ context.Context, filter certificate.QueryFilter, _ ...core.DBExecutor) ([]certificate.Activity, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	acts := make([]certificate.Activity, 0)
	for _, act := range repo.query() {
		if filter.CourseID != "" && act.CourseID != filter.CourseID {
			continue
		}
		if filter.AutoSend != nil && act.AutoSend != *filter.AutoSend {
			continue
		}
		acts = append(acts, act)
	}
	return acts, nil
}

func (repo *activityRepository) UpdateActivity(_ context.Context, act certificate.Activity, _ ...core.DBExecutor) (certificate.Activity, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[act.ID]
	if !ok {
		return certificate.Activity{}, certificate.ErrNotFound
	}
	// id, course and creation date are immutable
	act.CourseID = orig.CourseID
	act.CreatedAt = orig.CreatedAt
	repo.db.table[act.ID] = &act
	return act, nil
}

func (repo *activityRepository) DeleteActivity(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return certificate.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
