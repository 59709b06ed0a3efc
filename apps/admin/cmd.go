package main

import (
	"database/sql"
	"fmt"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/course"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db        *sql.DB
	usrRepo   user.Repository
	courseSvc course.Service
	validate  *validator.Validate
	logger    core.Logger
}

func (cli *commandLine) run(args []string) error {
	cmd := cli.rootCommand()
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func (cli *commandLine) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "admin",
		Short:         "ACTION LMS administration",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return help(cmd)
		},
	}
	cmd.AddCommand(cli.migrateCommand())
	cmd.AddCommand(cli.addUserCommand())
	cmd.AddCommand(cli.resetPasswordCommand())
	cmd.AddCommand(cli.seedCommand())
	return cmd
}

func (cli *commandLine) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:                "migrate COMMAND [ARGS...]",
		Short:              "Run a goose migration command (up, down, status, create...)",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return help(cmd)
			}
			return cli.migrate(args)
		},
	}
}

func (cli *commandLine) addUserCommand() *cobra.Command {
	var name, uname, email, role string
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create or update a user. The password will be prompted next.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if uname == "" || email == "" {
				return help(cmd)
			}
			roles, ok := cliRoles[role]
			if !ok {
				return fmt.Errorf("invalid role %q: must be one of admin, trainer, trainee", role)
			}
			pwd, err := promptPassword(cmd)
			if err != nil {
				return err
			}
			usr, err := cli.addUser(name, uname, email, pwd, roles)
			if err != nil {
				return err
			}
			cmd.Printf("user %q saved\n", usr.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "The user's full name.")
	cmd.Flags().StringVar(&uname, "username", "", "The user's username.")
	cmd.Flags().StringVar(&email, "email", "", "The user's email.")
	cmd.Flags().StringVar(&role, "role", "admin", "The user's role: admin, trainer or trainee.")
	return cmd
}

func (cli *commandLine) resetPasswordCommand() *cobra.Command {
	var uname string
	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset a user's password. The password will be prompted next.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if uname == "" {
				return help(cmd)
			}
			pwd, err := promptPassword(cmd)
			if err != nil {
				return err
			}
			return cli.resetPassword(uname, pwd)
		},
	}
	cmd.Flags().StringVar(&uname, "username", "", "The user's username or email.")
	return cmd
}

func (cli *commandLine) seedCommand() *cobra.Command {
	var author string
	cmd := &cobra.Command{
		Use:   "seed FILE",
		Short: "Import courses with their modules and lectures from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 || author == "" {
				return help(cmd)
			}
			created, err := cli.seed(cmd.Context(), args[0], author)
			if err != nil {
				return err
			}
			cmd.Printf("%d course(s) created\n", created)
			return nil
		},
	}
	cmd.Flags().StringVar(&author, "author", "", "Username or email of the admin or trainer authoring the courses.")
	return cmd
}

func promptPassword(cmd *cobra.Command) (string, error) {
	cmd.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	cmd.Println()
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	if len(pwd) == 0 {
		return "", help(cmd)
	}
	return string(pwd), nil
}

func help(cmd *cobra.Command) error {
	_ = cmd.Usage()
	return errHelp
}
