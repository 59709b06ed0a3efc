// Package boiledrepos computes the dashboard aggregates with raw sqlboiler queries.
package boiledrepos

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/dashboard"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/user"
)

const (
	userStatsQuery = `
SELECT COUNT(*)                                  AS total,
       COUNT(*) FILTER (WHERE is_active)         AS active,
       COUNT(*) FILTER (WHERE NOT is_active)     AS inactive,
       COUNT(*) FILTER (WHERE EXISTS (SELECT 1 FROM UNNEST(roles) r WHERE r LIKE $1)) AS admins,
       COUNT(*) FILTER (WHERE EXISTS (SELECT 1 FROM UNNEST(roles) r WHERE r LIKE $2)) AS trainers,
       COUNT(*) FILTER (WHERE EXISTS (SELECT 1 FROM UNNEST(roles) r WHERE r LIKE $3)) AS trainees
FROM "user"`

	batchStatsQuery = `
SELECT COUNT(*) FILTER (WHERE start_date > $1)                     AS upcoming,
       COUNT(*) FILTER (WHERE start_date <= $1 AND end_date >= $1) AS ongoing,
       COUNT(*) FILTER (WHERE end_date < $1)                       AS finished
FROM batch`

	courseStatsQuery = `
SELECT COUNT(*) FILTER (WHERE is_published)     AS published,
       COUNT(*) FILTER (WHERE NOT is_published) AS draft,
       (SELECT COUNT(*) FROM assessment)        AS assessments
FROM course`
)

type statsRepository struct {
	exec core.DBExecutor
}

var _ dashboard.StatsRepository = (*statsRepository)(nil) // interface compliance check

func NewStatsRepository(exec core.DBExecutor) dashboard.StatsRepository {
	return &statsRepository{exec: exec}
}

func (repo statsRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo statsRepository) UserStats(ctx context.Context, exec ...core.DBExecutor) (dashboard.UserStats, error) {
	var stats dashboard.UserStats
	err := queries.Raw(userStatsQuery, user.RoleAdmin+"%", user.RoleTrainer+"%", user.RoleTrainee+"%").
		Bind(ctx, repo.getExec(exec), &stats)
	if err != nil {
		return dashboard.UserStats{}, errors.Wrap(err, "computing user stats")
	}
	return stats, nil
}

func (repo statsRepository) BatchStats(ctx context.Context, today core.Date, exec ...core.DBExecutor) (dashboard.BatchStats, error) {
	var stats dashboard.BatchStats
	if err := queries.Raw(batchStatsQuery, today).Bind(ctx, repo.getExec(exec), &stats); err != nil {
		return dashboard.BatchStats{}, errors.Wrap(err, "computing batch stats")
	}
	return stats, nil
}

func (repo statsRepository) CourseStats(ctx context.Context, exec ...core.DBExecutor) (dashboard.CourseStats, error) {
	var stats dashboard.CourseStats
	if err := queries.Raw(courseStatsQuery).Bind(ctx, repo.getExec(exec), &stats); err != nil {
		return dashboard.CourseStats{}, errors.Wrap(err, "computing course stats")
	}
	return stats, nil
}
