package main

import (
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/user"
	"github.com/trezcool/edutrack/services/identity"
	"github.com/trezcool/edutrack/storage/localstore"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errNoPassword = errors.New("password is required")
)

type commandLine struct {
	conf     *core.Config
	logger   core.Logger
	db       *sql.DB
	validate *validator.Validate
	users    user.Service
	backend  identity.Backend
	state    *localstore.Store
	out      io.Writer
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "EduTrack administration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)

	root.AddCommand(
		cli.migrateCmd(),
		cli.addUserCmd(),
		cli.resetPasswordCmd(),
		cli.loginCmd(),
		cli.logoutCmd(),
		cli.passwdCmd(),
		cli.whoamiCmd(),
		cli.navCmd(),
	)
	return root
}

// run executes the command line; args include the program name.
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	root.SetArgs(args[1:])
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintf(cli.out, "error: %v\n", err)
		return err
	}
	return nil
}

// prompt reads a secret from the terminal without echoing it.
func (cli *commandLine) prompt(label string) (string, error) {
	_, _ = fmt.Fprint(cli.out, label)
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	_, _ = fmt.Fprintln(cli.out)
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	if len(pwd) == 0 {
		return "", errNoPassword
	}
	return string(pwd), nil
}
