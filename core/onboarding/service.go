package onboarding

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("onboarding item not found")

	errInactiveItem = errors.New("this item is no longer part of the checklist")
	errNotTrainee   = errors.New("user is not a trainee")
)

type (
	Repository interface {
		NextItemPosition(ctx context.Context, exec ...core.DBExecutor) (int, error)
		CreateItem(ctx context.Context, it Item, exec ...core.DBExecutor) (Item, error)
		// ListItems lists items ordered by position, optionally only the active ones.
		ListItems(ctx context.Context, activeOnly bool, exec ...core.DBExecutor) ([]Item, error)
		GetItem(ctx context.Context, id string, exec ...core.DBExecutor) (Item, error)
		UpdateItem(ctx context.Context, it Item, exec ...core.DBExecutor) (Item, error)
		DeleteItem(ctx context.Context, id string, exec ...core.DBExecutor) error

		// ListProgress lists the progress of the given trainees, of every trainee if traineeIDs is nil.
		ListProgress(ctx context.Context, traineeIDs []string, exec ...core.DBExecutor) ([]Progress, error)
		UpsertProgress(ctx context.Context, p Progress, exec ...core.DBExecutor) error
		DeleteProgress(ctx context.Context, itemID, traineeID string, exec ...core.DBExecutor) error
	}

	Service interface {
		CreateItem(ctx context.Context, ni NewItem) (Item, error)
		ListItems(ctx context.Context, includeInactive bool) ([]Item, error)
		GetItem(ctx context.Context, id string) (Item, error)
		UpdateItem(ctx context.Context, it Item, ui UpdateItem) (Item, error)
		DeleteItem(ctx context.Context, id string) error

		Checklist(ctx context.Context, trainee user.User) (Checklist, error)
		// SetCompleted toggles an item of a trainee's checklist. Staff toggles are recorded as verified.
		SetCompleted(ctx context.Context, actor, trainee user.User, it Item, completed bool) (Checklist, error)
		Summary(ctx context.Context) (Summary, error)
	}

	service struct {
		repo    Repository
		userSvc user.Service
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, userSvc user.Service) Service {
	return &service{
		repo:    repo,
		userSvc: userSvc,
	}
}

func (svc *service) CreateItem(ctx context.Context, ni NewItem) (Item, error) {
	pos := 0
	if ni.Position != nil {
		pos = *ni.Position
	} else {
		next, err := svc.repo.NextItemPosition(ctx)
		if err != nil {
			return Item{}, errors.Wrap(err, "finding next item position")
		}
		pos = next
	}

	now := time.Now().UTC()
	it := Item{
		Title:       ni.Title,
		Description: ni.Description,
		Position:    pos,
		IsRequired:  ni.IsRequired == nil || *ni.IsRequired,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	it, err := svc.repo.CreateItem(ctx, it)
	return it, errors.Wrap(err, "creating onboarding item")
}

func (svc *service) ListItems(ctx context.Context, includeInactive bool) ([]Item, error) {
	return svc.repo.ListItems(ctx, !includeInactive)
}

func (svc *service) GetItem(ctx context.Context, id string) (Item, error) {
	return svc.repo.GetItem(ctx, id)
}

func (svc *service) UpdateItem(ctx context.Context, it Item, ui UpdateItem) (Item, error) {
	if ui.Title != "" {
		it.Title = ui.Title
	}
	if ui.Description != nil {
		it.Description = *ui.Description
	}
	if ui.Position != nil {
		it.Position = *ui.Position
	}
	if ui.IsRequired != nil {
		it.IsRequired = *ui.IsRequired
	}
	if ui.IsActive != nil {
		it.IsActive = *ui.IsActive
	}
	it.UpdatedAt = time.Now().UTC()
	it, err := svc.repo.UpdateItem(ctx, it)
	return it, errors.Wrap(err, "updating onboarding item")
}

func (svc *service) DeleteItem(ctx context.Context, id string) error {
	return svc.repo.DeleteItem(ctx, id)
}

func (svc *service) Checklist(ctx context.Context, trainee user.User) (Checklist, error) {
	items, err := svc.repo.ListItems(ctx, true)
	if err != nil {
		return Checklist{}, errors.Wrap(err, "listing onboarding items")
	}
	progress, err := svc.repo.ListProgress(ctx, []string{trainee.ID})
	if err != nil {
		return Checklist{}, errors.Wrap(err, "listing onboarding progress")
	}
	return buildChecklist(trainee.ID, items, progress), nil
}

func (svc *service) SetCompleted(ctx context.Context, actor, trainee user.User, it Item, completed bool) (Checklist, error) {
	staff := actor.IsAdmin() || actor.IsTrainer()
	if actor.ID != trainee.ID && !staff {
		return Checklist{}, core.ErrForbidden
	}
	if !trainee.IsTrainee() {
		return Checklist{}, core.NewFieldError("trainee_id", errNotTrainee.Error())
	}
	if !it.IsActive {
		return Checklist{}, core.NewFieldError("item_id", errInactiveItem.Error())
	}

	if completed {
		p := Progress{ItemID: it.ID, TraineeID: trainee.ID, CompletedAt: time.Now().UTC()}
		if staff {
			p.VerifiedBy = actor.ID
		}
		if err := svc.repo.UpsertProgress(ctx, p); err != nil {
			return Checklist{}, errors.Wrap(err, "saving onboarding progress")
		}
	} else if err := svc.repo.DeleteProgress(ctx, it.ID, trainee.ID); err != nil {
		return Checklist{}, errors.Wrap(err, "deleting onboarding progress")
	}
	return svc.Checklist(ctx, trainee)
}

func (svc *service) Summary(ctx context.Context) (Summary, error) {
	active := true
	trainees, err := svc.userSvc.Query(ctx, &user.QueryFilter{Roles: user.TraineeRoles, IsActive: &active}, nil)
	if err != nil {
		return Summary{}, errors.Wrap(err, "listing trainees")
	}
	if len(trainees) == 0 {
		return Summary{}, nil
	}

	items, err := svc.repo.ListItems(ctx, true)
	if err != nil {
		return Summary{}, errors.Wrap(err, "listing onboarding items")
	}
	ids := make([]string, 0, len(trainees))
	for _, t := range trainees {
		ids = append(ids, t.ID)
	}
	progress, err := svc.repo.ListProgress(ctx, ids)
	if err != nil {
		return Summary{}, errors.Wrap(err, "listing onboarding progress")
	}
	byTrainee := make(map[string][]Progress, len(trainees))
	for _, p := range progress {
		byTrainee[p.TraineeID] = append(byTrainee[p.TraineeID], p)
	}

	sum := Summary{Trainees: len(trainees)}
	var total float64
	for _, id := range ids {
		cl := buildChecklist(id, items, byTrainee[id])
		total += cl.Percent
		if cl.Completed == cl.Required {
			sum.Onboarded++
		}
	}
	sum.AveragePercent = core.Round2(total / float64(len(trainees)))
	return sum, nil
}
