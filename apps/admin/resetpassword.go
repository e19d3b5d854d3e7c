package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/user"
)

func (cli *commandLine) resetPasswordCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset a user's password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := cli.prompt("Enter password:")
			if err != nil {
				return err
			}
			return cli.resetPassword(cmd.Context(), email, pwd)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "The user's email. The password will be prompted next.")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func (cli *commandLine) resetPassword(ctx context.Context, email, pwd string) error {
	usr, err := cli.users.GetByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	if usr, err = cli.setPassword(ctx, usr, pwd, pwd); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "password of %s reset\n", usr.Email)
	return nil
}

// setPassword applies the password policy before saving pwd.
func (cli *commandLine) setPassword(ctx context.Context, usr user.User, pwd, confirm string) (user.User, error) {
	data := user.ChangePassword{Password: pwd, PasswordConfirm: confirm}
	if err := data.Validate(cli.validate, usr); err != nil {
		return user.User{}, err
	}
	return cli.users.SetPassword(ctx, usr, pwd)
}
