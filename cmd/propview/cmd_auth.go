package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Humphrey-He/propview/internal/controller"
	perrors "github.com/Humphrey-He/propview/pkg/errors"
	"github.com/Humphrey-He/propview/pkg/listing"
	"github.com/Humphrey-He/propview/pkg/session"
)

// PasswordEnv is read when --password is not given.
const PasswordEnv = "PROPVIEW_PASSWORD"

const msgNotLoggedIn = "not logged in"

func newLoginCmd(a *app) *cobra.Command {
	var creds listing.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the session token",
		Long: `Log in to the backend. The token is kept in the session token file
so later commands run as the same user.

The password can come from --password or the ` + PasswordEnv + ` variable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if creds.Password == "" {
				creds.Password = os.Getenv(PasswordEnv)
			}
			ac := controller.NewAuthController(a.gw, a.logger.Named("auth"))
			u, err := ac.Login(cmd.Context(), creds)
			if err != nil {
				if fe := perrors.Fields(err); fe != nil {
					return &cliError{msg: fieldMessage(fe), err: err}
				}
				return &cliError{msg: ac.State().Error, err: err}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, successStyle.Render(ac.State().Notice))
			fmt.Fprintf(out, "Hello, %s (%s)\n", u.DisplayName(), u.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&creds.Email, "email", "e", "", "Account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "Account password (or "+PasswordEnv+")")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ac := controller.NewAuthController(a.gw, a.logger.Named("auth"))
			// The local token is dropped even if the backend call fails.
			if err := ac.Logout(cmd.Context()); err != nil {
				a.logger.Debug("remote logout failed", zap.Error(err))
			}
			if err := a.store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ac.State().Notice)
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			token, err := a.store.Token(ctx)
			if err != nil {
				return err
			}
			if token == "" {
				return &cliError{msg: msgNotLoggedIn, err: perrors.ErrForbidden}
			}
			ac := controller.NewAuthController(a.gw, a.logger.Named("auth"))
			u, err := ac.Restore(ctx)
			if err != nil {
				var apiErr *perrors.APIError
				if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
					return &cliError{msg: msgNotLoggedIn, err: err}
				}
				return &cliError{msg: controller.StatusMessage(err), err: err}
			}

			out := cmd.OutOrStdout()
			name := fmt.Sprintf("%s %s <%s>", titleStyle.Render(u.DisplayName()), u.LastName, u.Email)
			claims, ok := session.Peek(token)
			if ok && claims.HasRole("admin") {
				name += " " + successStyle.Render("[admin]")
			}
			fmt.Fprintln(out, name)
			if ok {
				if len(claims.Roles) > 0 {
					fmt.Fprintln(out, mutedStyle.Render("roles: "+strings.Join(claims.Roles, ", ")))
				}
				if !claims.ExpiresAt.IsZero() {
					exp := claims.ExpiresAt.Local()
					fmt.Fprintln(out, mutedStyle.Render("expires: "+a.config().Locale.Formatter().Time(exp)+" "+exp.Format("15:04")))
				}
			}
			return nil
		},
	}
}

// fieldMessage flattens field errors into one line per field.
func fieldMessage(fe perrors.FieldErrors) string {
	return strings.TrimPrefix(fe.Error(), perrors.ErrValidation.Error()+": ")
}
