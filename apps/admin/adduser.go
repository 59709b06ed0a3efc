package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/user"
)

var cliRoles = map[string][]string{
	"admin":   user.AdminRoles,
	"trainer": {user.RoleTrainer},
	"trainee": {user.RoleTrainee},
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(name, uname, email, pwd string, roles []string) (user.User, error) {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname, email}})
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return user.User{}, errors.Wrap(err, "finding user")
		}
		now := time.Now().UTC()
		usr = user.User{
			Username:  uname,
			Email:     email,
			CreatedAt: now,
		}
	}
	if name = core.CleanString(name); name != "" {
		usr.Name = name
	}
	usr.Roles = roles
	usr.UpdatedAt = time.Now().UTC()
	usr.SetActive(true)
	if err := usr.SetPassword(pwd); err != nil {
		return user.User{}, errors.Wrap(err, "setting password")
	}
	usr, err = cli.usrRepo.UpdateOrCreateUser(ctx, usr)
	return usr, errors.Wrap(err, "saving user")
}
