package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core/course"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/user"
	"github.com/kyleramirez143/ACTION-LMS-sub001/tests"
)

func setup(t *testing.T) (*commandLine, *testutil.App) {
	app := testutil.NewApp(t)
	return &commandLine{
		usrRepo:   app.UserRepo,
		courseSvc: app.CourseSvc,
		validate:  app.Validate,
		logger:    app.Logger,
	}, app
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func runCLI(t *testing.T, cli *commandLine, tt cliTest) error {
	args := append([]string{"admin"}, tt.args...)
	err := cli.run(args)
	if err != nil {
		switch {
		case tt.wantErr != nil:
			if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		case tt.wantErrStr != "":
			if err.Error() != tt.wantErrStr {
				t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
			}
		default:
			t.Errorf("cli.run() unexpected error = %v", err)
		}
	} else if tt.wantErr != nil || tt.wantErrStr != "" {
		t.Errorf("cli.run() error = nil, wantErr %v%s", tt.wantErr, tt.wantErrStr)
	}
	return err
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func Test_commandLine_help(t *testing.T) {
	cli, _ := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runCLI(t, cli, tt)
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	var gotCommand, gotDir string
	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		gotCommand, gotDir = command, dir
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runCLI(t, cli, tt)
		})
	}
	assert.Equal(t, "fix", gotCommand)
	assert.Equal(t, "migrations", gotDir)
}

func Test_commandLine_addUser(t *testing.T) {
	cli, app := setup(t)
	ctx := context.Background()

	existing := testutil.CreateUser(t, app.UserRepo, "Old Name", "jdoe", "jdoe@lms.test", "Pa$$w0rd!", []string{user.RoleTrainee}, false)

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "email missing", args: []string{"adduser", "--username", "boss"}, wantErr: errHelp},
		{name: "invalid role", args: []string{"adduser", "--username", "boss", "--email", "boss@lms.test", "--role", "king"}, wantErrStr: `invalid role "king": must be one of admin, trainer, trainee`},
		{name: "no password", args: []string{"adduser", "--username", "boss", "--email", "boss@lms.test"}, wantErr: errHelp},
	}
	mockPassword("")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runCLI(t, cli, tt)
		})
	}

	t.Run("create admin", func(t *testing.T) {
		mockPassword("S3cure-admin")
		runCLI(t, cli, cliTest{args: []string{"adduser", "--name", "The Boss", "--username", " Boss ", "--email", "BOSS@lms.test"}})

		usr, err := app.UserRepo.GetUser(ctx, user.GetFilter{Username: "boss"})
		require.NoError(t, err)
		assert.Equal(t, "The Boss", usr.Name)
		assert.Equal(t, "boss@lms.test", usr.Email)
		assert.True(t, usr.IsAdmin())
		assert.False(t, usr.IsTrainee())
		assert.True(t, usr.Active())
		assert.NoError(t, usr.CheckPassword("S3cure-admin"))
	})

	t.Run("update existing user", func(t *testing.T) {
		mockPassword("N3w-password")
		runCLI(t, cli, cliTest{args: []string{"adduser", "--username", "jdoe", "--email", "jdoe@lms.test", "--role", "trainer"}})

		usr, err := app.UserRepo.GetUser(ctx, user.GetFilter{ID: existing.ID})
		require.NoError(t, err)
		assert.Equal(t, "Old Name", usr.Name)
		assert.Equal(t, []string{user.RoleTrainer}, usr.Roles)
		assert.True(t, usr.Active())
		assert.NoError(t, usr.CheckPassword("N3w-password"))
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, app := setup(t)

	usr := testutil.CreateUser(t, app.UserRepo, "User", "awe", "awe@test.cd", "mdr", nil, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "--username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "--username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "--username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "--username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		pwd := ""
		if e, ok := tt.extra.(extra); ok {
			pwd = e.pwd
		}
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			if err := runCLI(t, cli, tt); err == nil {
				refreshedUsr, err := app.UserRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				if err != nil {
					t.Fatalf("GetUser() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
				assert.NoError(t, refreshedUsr.CheckPassword(pwd))
			}
		})
	}
}

const seedYAML = `
courses:
  - code: java101
    title: Java Fundamentals
    description: The basics.
    published: true
    modules:
      - title: Syntax
        lectures:
          - title: Variables
            body: Declaring things.
          - title: Loops
      - title: Objects
  - code: SQL101
    title: SQL Basics
`

func writeSeedFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "courses.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func Test_commandLine_seed(t *testing.T) {
	cli, app := setup(t)
	ctx := context.Background()

	trainer := app.Trainer(t, "trainer")
	trainee := app.Trainee(t, "hero")
	app.Course(t, trainer, "SQL101", false)
	path := writeSeedFile(t, seedYAML)

	tests := []cliTest{
		{name: "no file", args: []string{"seed", "--author", trainer.Username}, wantErr: errHelp},
		{name: "no author", args: []string{"seed", path}, wantErr: errHelp},
		{name: "unknown author", args: []string{"seed", path, "--author", "nobody"}, wantErrStr: "finding author: user not found"},
		{name: "author not staff", args: []string{"seed", path, "--author", trainee.Username}, wantErr: errAuthorNotStaff},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runCLI(t, cli, tt)
		})
	}

	t.Run("unknown field", func(t *testing.T) {
		bad := writeSeedFile(t, "courses:\n  - code: X1\n    name: nope\n")
		err := cli.run([]string{"admin", "seed", bad, "--author", trainer.Username})
		assert.ErrorContains(t, err, "decoding seed file")
	})

	t.Run("seed", func(t *testing.T) {
		runCLI(t, cli, cliTest{args: []string{"seed", path, "--author", trainer.Email}})

		courses, err := app.CourseSvc.Query(ctx, &course.QueryFilter{}, nil)
		require.NoError(t, err)
		require.Len(t, courses, 2)
		java := courses[0]
		assert.Equal(t, "JAVA101", java.Code)
		assert.Equal(t, "Java Fundamentals", java.Title)
		assert.True(t, java.IsPublished)
		assert.False(t, courses[1].IsPublished, "existing courses are left untouched")

		tree, err := app.CourseSvc.Tree(ctx, java.ID)
		require.NoError(t, err)
		if assert.Len(t, tree.Modules, 2) {
			assert.Equal(t, "Syntax", tree.Modules[0].Title)
			assert.Equal(t, 1, tree.Modules[0].Position)
			assert.Equal(t, "Objects", tree.Modules[1].Title)
			if assert.Len(t, tree.Modules[0].Lectures, 2) {
				assert.Equal(t, "Variables", tree.Modules[0].Lectures[0].Title)
				assert.Equal(t, "Declaring things.", tree.Modules[0].Lectures[0].Body)
				assert.Equal(t, 2, tree.Modules[0].Lectures[1].Position)
			}
		}

		// seeding twice skips the existing courses
		runCLI(t, cli, cliTest{args: []string{"seed", path, "--author", trainer.Username}})
		courses, err = app.CourseSvc.Query(ctx, &course.QueryFilter{}, nil)
		require.NoError(t, err)
		assert.Len(t, courses, 2)
	})
}
