package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/auth"
	"github.com/trezcool/edutrack/core/user"
)

func (cli *commandLine) addUserCmd() *cobra.Command {
	var email, role, schoolID string

	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create an account, or update the password and profile of an existing one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := cli.prompt("Enter password:")
			if err != nil {
				return err
			}
			confirm, err := cli.prompt("Confirm password:")
			if err != nil {
				return err
			}
			usr, err := cli.addUser(cmd.Context(), user.NewUser{
				Email:           email,
				Password:        pwd,
				PasswordConfirm: confirm,
				Role:            role,
				SchoolID:        schoolID,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cli.out, "user %s saved\n", usr.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "The user's email. The password will be prompted next.")
	cmd.Flags().StringVar(&role, "role", "", "The user's role: super_admin or school_admin (none when empty)")
	cmd.Flags().StringVar(&schoolID, "school", "", "The school of a school_admin")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

// addUser updates or creates a user.User and its profile.
func (cli *commandLine) addUser(ctx context.Context, nu user.NewUser) (user.User, error) {
	email := core.CleanString(nu.Email, true /* lower */)

	usr, err := cli.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			return user.User{}, err
		}
		if err = nu.Validate(ctx, cli.validate, cli.users); err != nil {
			return user.User{}, err
		}
		return cli.users.Create(ctx, nu)
	}

	if usr, err = cli.setPassword(ctx, usr, nu.Password, nu.PasswordConfirm); err != nil {
		return user.User{}, err
	}
	if nu.Role != "" {
		prof := auth.Profile{
			UserID:   usr.ID,
			Role:     auth.ParseRole(core.CleanString(nu.Role, true /* lower */)),
			SchoolID: core.CleanString(nu.SchoolID, true /* lower */),
		}
		if prof.Role == auth.RoleNone {
			return user.User{}, errors.Errorf("invalid role %q", nu.Role)
		}
		if _, err = cli.users.SetProfile(ctx, prof); err != nil {
			return user.User{}, err
		}
	}
	return usr, nil
}
