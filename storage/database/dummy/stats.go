package dummydb

import (
	"context"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/batch"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/dashboard"
)

type statsRepository struct {
	db *DB
}

var _ dashboard.StatsRepository = (*statsRepository)(nil) // interface compliance check

func NewStatsRepository(db *DB) dashboard.StatsRepository {
	return &statsRepository{db: db}
}

func (repo *statsRepository) UserStats(_ context.Context, _ ...core.DBExecutor) (dashboard.UserStats, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var stats dashboard.UserStats
	for _, u := range repo.db.users {
		stats.Total++
		if u.Active() {
			stats.Active++
		} else {
			stats.Inactive++
		}
		if u.IsAdmin() {
			stats.Admins++
		}
		if u.IsTrainer() {
			stats.Trainers++
		}
		if u.IsTrainee() {
			stats.Trainees++
		}
	}
	return stats, nil
}

func (repo *statsRepository) BatchStats(_ context.Context, today core.Date, _ ...core.DBExecutor) (dashboard.BatchStats, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var stats dashboard.BatchStats
	for _, b := range repo.db.batches {
		switch b.Status(today) {
		case batch.StatusUpcoming:
			stats.Upcoming++
		case batch.StatusOngoing:
			stats.Ongoing++
		default:
			stats.Finished++
		}
	}
	return stats, nil
}

func (repo *statsRepository) CourseStats(_ context.Context, _ ...core.DBExecutor) (dashboard.CourseStats, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var stats dashboard.CourseStats
	for _, c := range repo.db.courses {
		if c.IsPublished {
			stats.Published++
		} else {
			stats.Draft++
		}
	}
	stats.Assessments = len(repo.db.assessments)
	return stats, nil
}
