package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.users))
	for _, u := range repo.db.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users
}

func (repo *userRepository) CheckUsernameUniqueness(_ context.Context, username, email string, excludedUsers []user.User, _ ...core.DBExecutor) error {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.checkUniqueness(username, email, excludedUsers)
}

func (repo *userRepository) checkUniqueness(username, email string, excludedUsers []user.User) error {
	excluded := make(map[string]struct{}, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded[u.ID] = struct{}{}
	}
	for _, usr := range repo.db.users {
		if _, ok := excluded[usr.ID]; ok {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.checkUniqueness(usr.Username, usr.Email, nil); err != nil {
		return user.User{}, err
	}
	usr.ID = uuid.New().String()
	if usr.IsActive == nil {
		usr.SetActive(true)
	}
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]user.User, 0)
	for _, u := range repo.query() {
		if filter != nil && !matchUser(u, filter) {
			continue
		}
		users = append(users, u)
	}
	sortByOrdering(users, ordering, userField, func(a, b user.User) bool { return a.CreatedAt.Before(b.CreatedAt) })
	return users, nil
}

func matchUser(u user.User, filter *user.QueryFilter) bool {
	// users with search keyword matching any Name, Username or Email ?
	if filter.Search != "" &&
		!containsFold(u.Name, filter.Search) && !containsFold(u.Username, filter.Search) && !containsFold(u.Email, filter.Search) {
		return false
	}
	// users with any of the specified roles
	if len(filter.Roles) > 0 {
		found := false
		for _, r := range filter.Roles {
			if u.RoleStartsWith(r) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.IsActive != nil && u.Active() != *filter.IsActive {
		return false
	}
	if !filter.CreatedFrom.IsZero() && u.CreatedAt.Before(filter.CreatedFrom.UTC()) {
		return false
	}
	if !filter.CreatedTo.IsZero() && u.CreatedAt.After(filter.CreatedTo.UTC()) {
		return false
	}
	return true
}

func userField(u user.User, field string) interface{} {
	switch field {
	case "name":
		return u.Name
	case "username":
		return u.Username
	case "email":
		return u.Email
	case "is_active":
		return u.Active()
	case "last_login":
		return u.LastLogin
	case "updated_at":
		return u.UpdatedAt
	default:
		return u.CreatedAt
	}
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter, _ ...core.DBExecutor) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.users[filter.ID]; ok {
			return usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range repo.query() {
		switch {
		case filter.Username != "":
			if usr.Username == filter.Username {
				return usr, nil
			}
		case filter.Email != "":
			if usr.Email == filter.Email {
				return usr, nil
			}
		case len(filter.UsernameOrEmail) > 0:
			for _, v := range filter.UsernameOrEmail {
				if v != "" && (usr.Username == v || usr.Email == v) {
					return usr, nil
				}
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUsersByID(_ context.Context, ids []string, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]user.User, 0, len(ids))
	for _, id := range ids {
		if usr, ok := repo.db.users[id]; ok {
			users = append(users, usr)
		}
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	if err := repo.checkUniqueness(usr.Username, usr.Email, []user.User{usr}); err != nil {
		return user.User{}, err
	}
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr, exec...)
	}
	return repo.UpdateUser(ctx, usr, exec...)
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids []string, _ ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	cnt := 0
	for _, id := range ids {
		if _, ok := repo.db.users[id]; !ok {
			continue
		}
		delete(repo.db.users, id)
		cnt++
		repo.db.cascadeUser(id)
	}
	return cnt, nil
}

// cascadeUser emulates the foreign keys referencing "user".
func (t tables) cascadeUser(id string) {
	for k, g := range t.grades {
		if g.TraineeID == id {
			delete(t.grades, k)
		} else if g.GradedBy == id {
			g.GradedBy = ""
			t.grades[k] = g
		}
	}
	for k := range t.members {
		if k.userID == id {
			delete(t.members, k)
		}
	}
	for k, s := range t.schedules {
		if s.TrainerID == id {
			s.TrainerID = ""
			t.schedules[k] = s
		}
	}
	for k, p := range t.progress {
		if k.traineeID == id {
			delete(t.progress, k)
		} else if p.VerifiedBy == id {
			p.VerifiedBy = ""
			t.progress[k] = p
		}
	}
}
