package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/edutrack/core/auth"
	"github.com/trezcool/edutrack/core/nav"
	"github.com/trezcool/edutrack/core/user"
	"github.com/trezcool/edutrack/services/identity"
)

const resolveTimeout = 10 * time.Second

var errNotSignedIn = errors.New("not signed in")

// resolve starts a synchronizer over the persisted session and waits for its first resolution.
func (cli *commandLine) resolve(ctx context.Context) (*auth.Synchronizer, auth.Snapshot, error) {
	client := identity.NewClient(cli.backend, cli.state, cli.conf.Client.RefreshMargin)
	sync := auth.NewSynchronizer(client, cli.users, cli.state, cli.logger)
	sync.Start(ctx)

	snap, err := sync.Wait(ctx, auth.Resolved)
	if err != nil {
		sync.Stop()
		return nil, snap, errors.Wrap(err, "resolving session")
	}
	if snap.Err != nil {
		// one more attempt, in case the backend was briefly out of reach
		cli.logger.Warn("resolving session", snap.Err)
		sync.Reconnect(ctx)
		snap = sync.Snapshot()
	}
	return sync, snap, nil
}

func (cli *commandLine) loginCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := cli.prompt("Enter password:")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), resolveTimeout)
			defer cancel()

			sync, _, err := cli.resolve(ctx)
			if err != nil {
				return err
			}
			defer sync.Stop()

			sess, err := sync.SignIn(ctx, auth.Credentials{Email: email, Password: pwd})
			if err != nil {
				return err
			}
			snap, err := sync.Wait(ctx, func(s auth.Snapshot) bool {
				return auth.Resolved(s) && s.Session != nil && s.Session.AccessToken == sess.AccessToken
			})
			if err != nil {
				return errors.Wrap(err, "loading profile")
			}
			_, _ = fmt.Fprintf(cli.out, "signed in as %s\n", snap.User.Email)
			cli.printRole(snap)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "The user's email. The password will be prompted next.")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func (cli *commandLine) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the persisted session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), resolveTimeout)
			defer cancel()

			sync, _, err := cli.resolve(ctx)
			if err != nil {
				return err
			}
			defer sync.Stop()

			if err = sync.SignOut(ctx); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cli.out, "signed out")
			return nil
		},
	}
}

func (cli *commandLine) passwdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change the password of the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := cli.prompt("New password:")
			if err != nil {
				return err
			}
			confirm, err := cli.prompt("Confirm password:")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), resolveTimeout)
			defer cancel()

			sync, snap, err := cli.resolve(ctx)
			if err != nil {
				return err
			}
			defer sync.Stop()

			if snap.Err != nil {
				return snap.Err
			}
			if !snap.Authenticated() {
				return errNotSignedIn
			}
			usr, err := cli.users.GetByID(ctx, snap.User.ID)
			if err != nil {
				return err
			}
			data := user.ChangePassword{Password: pwd, PasswordConfirm: confirm}
			if err = data.Validate(cli.validate, usr); err != nil {
				return err
			}

			before := sync.Snapshot().Generation
			if _, err = sync.UpdatePassword(ctx, pwd); err != nil {
				return err
			}
			snap, err = sync.Wait(ctx, func(s auth.Snapshot) bool { return s.Generation > before && auth.Resolved(s) })
			if err != nil {
				return errors.Wrap(err, "reloading profile")
			}
			_, _ = fmt.Fprintf(cli.out, "password of %s changed\n", snap.User.Email)
			cli.printRole(snap)
			return nil
		},
	}
}

func (cli *commandLine) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user and its role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), resolveTimeout)
			defer cancel()

			sync, snap, err := cli.resolve(ctx)
			if err != nil {
				return err
			}
			defer sync.Stop()

			if snap.Err != nil {
				return snap.Err
			}
			if !snap.Authenticated() {
				_, _ = fmt.Fprintln(cli.out, "not signed in")
				return nil
			}
			_, _ = fmt.Fprintln(cli.out, snap.User.Email)
			cli.printRole(snap)
			return nil
		},
	}
}

func (cli *commandLine) navCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nav",
		Short: "Print the navigation tree of the signed-in user as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), resolveTimeout)
			defer cancel()

			sync, snap, err := cli.resolve(ctx)
			if err != nil {
				return err
			}
			defer sync.Stop()

			enc := json.NewEncoder(cli.out)
			enc.SetIndent("", "  ")
			return enc.Encode(nav.Resolve(snap.Role(), cli.state))
		},
	}
}

func (cli *commandLine) printRole(snap auth.Snapshot) {
	role := snap.Role()
	if role == auth.RoleNone {
		_, _ = fmt.Fprintln(cli.out, "role: none")
	} else {
		_, _ = fmt.Fprintf(cli.out, "role: %s\n", role)
	}
	if snap.Profile != nil && snap.Profile.SchoolID != "" {
		_, _ = fmt.Fprintf(cli.out, "school: %s\n", snap.Profile.SchoolID)
	}
	_, _ = fmt.Fprintf(cli.out, "home: %s\n", auth.DefaultPath(role))
}
