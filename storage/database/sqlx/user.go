package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/user"
)

const userTable = `"user"`

var userColumns = []string{
	"id", "name", "username", "email", "is_active", "roles", "password_hash", "created_at", "updated_at", "last_login",
}

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     null.String    `db:"username"`
	Email        null.String    `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func boilUser(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		IsActive:     usr.Active(),
		Roles:        pq.StringArray(core.UniqueStrings(usr.Roles)),
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (row userRow) unboil() user.User {
	usr := user.User{
		ID:           row.ID,
		Name:         row.Name,
		Username:     row.Username.String,
		Email:        row.Email.String,
		Roles:        []string(row.Roles),
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		LastLogin:    row.LastLogin.Time,
	}
	usr.SetActive(row.IsActive)
	return usr
}

func unboilUsers(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.unboil())
	}
	return users
}

type userRepository struct {
	repository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) user.Repository {
	return &userRepository{repository{exec: exec}}
}

// translateUniqueErr maps unique violations on "user" to their domain errors.
func translateUniqueErr(err error, msg string) error {
	if constraint, ok := uniqueViolation(err); ok {
		switch constraint {
		case "user_username_key":
			return user.ErrUsernameExists
		case "user_email_key":
			return user.ErrEmailExists
		}
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	if username == "" && email == "" {
		return nil
	}
	or := sq.Or{}
	if username != "" {
		or = append(or, sq.Eq{"username": username})
	}
	if email != "" {
		or = append(or, sq.Eq{"email": email})
	}
	b := psql.Select("username", "email").From(userTable).Where(or)
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		b = b.Where(sq.NotEq{"id": validUUIDs(ids)})
	}

	var rows []userRow
	if err := repo.selectAll(ctx, exec, &rows, b.Limit(2)); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, r := range rows {
		if username != "" && r.Username.String == username {
			return user.ErrUsernameExists
		}
	}
	if len(rows) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) insert(ctx context.Context, row userRow, exec []core.DBExecutor) error {
	b := psql.Insert(userTable).Columns(userColumns...).Values(
		row.ID, row.Name, row.Username, row.Email, row.IsActive, row.Roles, row.PasswordHash,
		row.CreatedAt, row.UpdatedAt, row.LastLogin,
	)
	_, err := repo.execute(ctx, exec, b)
	return err
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	row := boilUser(usr)
	if err := repo.insert(ctx, row, exec); err != nil {
		return user.User{}, translateUniqueErr(err, "inserting user")
	}
	return row.unboil(), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	b := psql.Select(userColumns...).From(userTable)

	if filter != nil {
		// users with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			b = b.Where(likeAny([]string{"name", "username", "email"}, filter.Search))
		}
		// users with any role that starts with any of the provided roles
		if len(filter.Roles) > 0 {
			or := make(sq.Or, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				or = append(or, sq.Expr("EXISTS (SELECT 1 FROM UNNEST(roles) user_role WHERE user_role LIKE ?)", role+"%"))
			}
			b = b.Where(or)
		}
		if filter.IsActive != nil {
			b = b.Where(sq.Eq{"is_active": *filter.IsActive})
		}
		if !filter.CreatedFrom.IsZero() {
			b = b.Where(sq.GtOrEq{"created_at": filter.CreatedFrom.UTC()})
		}
		if !filter.CreatedTo.IsZero() {
			b = b.Where(sq.LtOrEq{"created_at": filter.CreatedTo.UTC()})
		}
	}
	b = orderBy(b, ordering, user.OrderingFields, "created_at ASC")

	var rows []userRow
	if err := repo.selectAll(ctx, exec, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return unboilUsers(rows), nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	b := psql.Select(userColumns...).From(userTable)

	switch {
	case filter.ID != "":
		if !validUUID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		b = b.Where(sq.Eq{"id": filter.ID})
	case filter.Username != "":
		b = b.Where(sq.Eq{"username": filter.Username})
	case filter.Email != "":
		b = b.Where(sq.Eq{"email": filter.Email})
	case len(filter.UsernameOrEmail) > 0:
		var email string
		uname := filter.UsernameOrEmail[0]
		if len(filter.UsernameOrEmail) == 2 {
			email = filter.UsernameOrEmail[1]
		}
		if email == "" {
			email = uname
		} else if uname == "" {
			uname = email
		}
		if uname == "" {
			return user.User{}, user.ErrNotFound
		}
		b = b.Where(sq.Or{sq.Eq{"username": uname}, sq.Eq{"email": email}})
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := repo.get(ctx, exec, &row, b.Limit(1)); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return row.unboil(), nil
}

func (repo userRepository) GetUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]user.User, error) {
	ids = validUUIDs(ids)
	if len(ids) == 0 {
		return []user.User{}, nil
	}
	b := psql.Select(userColumns...).From(userTable).Where(sq.Eq{"id": ids}).OrderBy("created_at ASC")

	var rows []userRow
	if err := repo.selectAll(ctx, exec, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying users by ID")
	}
	return unboilUsers(rows), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	row := boilUser(usr)
	b := psql.Update(userTable).SetMap(map[string]interface{}{
		"name":          row.Name,
		"username":      row.Username,
		"email":         row.Email,
		"is_active":     row.IsActive,
		"roles":         row.Roles,
		"password_hash": row.PasswordHash,
		"updated_at":    row.UpdatedAt,
		"last_login":    row.LastLogin,
	}).Where(sq.Eq{"id": row.ID})

	n, err := repo.execute(ctx, exec, b)
	if err != nil {
		return user.User{}, translateUniqueErr(err, "updating user")
	}
	if n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return row.unboil(), nil
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr, exec...)
	}
	return repo.UpdateUser(ctx, usr, exec...)
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	ids = validUUIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	cnt, err := repo.execute(ctx, exec, psql.Delete(userTable).Where(sq.Eq{"id": ids}))
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return cnt, nil
}
