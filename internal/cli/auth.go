package cli

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/session"
	"github.com/Makepad-fr/tada/internal/ui"
)

func (r *runner) credentials(email string) (string, string, error) {
	var err error
	if email == "" {
		if email, err = r.in.line(r.out(), "Email: "); err != nil {
			return "", "", err
		}
	}
	password, err := r.in.secret(r.out(), "Password: ")
	if err != nil {
		return "", "", err
	}
	return email, password, nil
}

func (r *runner) loginCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email and password",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, password, err := r.credentials(email)
			if err != nil {
				return err
			}
			sess, err := r.app.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			ui.OK(r.out(), "logged in as "+sess.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email (prompted when empty)")
	return cmd
}

func (r *runner) registerCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, password, err := r.credentials(email)
			if err != nil {
				return err
			}
			if err := r.app.Register(cmd.Context(), email, password); err != nil {
				return err
			}
			ui.OK(r.out(), "registered "+email)
			ui.Hint(r.out(), "Run: tada login")
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email (prompted when empty)")
	return cmd
}

func (r *runner) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(*cobra.Command, []string) error {
			fromEnv, err := r.app.Logout()
			if err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			if fromEnv {
				ui.OK(r.out(), "token is provided by "+session.EnvToken+" env var (nothing to delete)")
				return nil
			}
			ui.OK(r.out(), "logged out")
			return nil
		},
	}
}

func (r *runner) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session and the service in use",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(*cobra.Command, []string) error {
			sess, err := r.app.Session()
			if err != nil {
				return err
			}
			w := r.out()
			fmt.Fprintf(w, "api: %s\n", r.app.Config.APIURL)
			if sess == nil {
				ui.Hint(w, "not logged in")
				fmt.Fprintln(w, "Run: tada login")
				return nil
			}
			if sess.Email != "" {
				fmt.Fprintf(w, "email: %s\n", sess.Email)
			}
			fmt.Fprintf(w, "source: %s\n", sess.Source)
			switch {
			case sess.ExpiresAt == nil:
				fmt.Fprintln(w, "expires: (unknown)")
			case sess.Expired(time.Now()):
				fmt.Fprintf(w, "expires: %s (expired)\n", sess.ExpiresAt.UTC().Format(time.RFC3339))
			default:
				fmt.Fprintf(w, "expires: %s\n", sess.ExpiresAt.UTC().Format(time.RFC3339))
			}
			fmt.Fprintf(w, "env override: %s\n", session.EnvToken)
			return nil
		},
	}
}

// whoami decodes the token locally; opaque tokens only show where they came from.
func (r *runner) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the claims of the current token",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(*cobra.Command, []string) error {
			sess, err := r.app.Session()
			if err != nil {
				return err
			}
			if sess == nil {
				return usagef("not logged in. Run: tada login")
			}
			w := r.out()
			claims, err := session.Claims(sess.Token)
			if errors.Is(err, session.ErrOpaqueToken) {
				fmt.Fprintln(w, "Opaque token (cannot introspect locally).")
				fmt.Fprintln(w, "source:", sess.Source)
				return nil
			}
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(claims))
			for k := range claims {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintln(w, "JWT claims:")
			for _, k := range keys {
				fmt.Fprintf(w, "  %s: %v\n", k, claims[k])
			}
			return nil
		},
	}
}
