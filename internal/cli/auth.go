package cli

import (
	"github.com/spf13/cobra"

	apierrors "angel-trader/internal/errors"
	"angel-trader/internal/provider"
	"angel-trader/internal/session"
)

// addAuthCommands adds session lifecycle commands.
func addAuthCommands(rootCmd *cobra.Command, app *App) {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Session management",
		Long:  "Log in to the market-data feed, inspect the session, and log out.",
	}

	authCmd.AddCommand(newLoginCmd(app))
	authCmd.AddCommand(newLogoutCmd(app))
	authCmd.AddCommand(newStatusCmd(app))

	rootCmd.AddCommand(authCmd)
}

func newLoginCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with the upstream feed",
		Long:  "Performs a password+TOTP login and persists the session for reuse.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if !app.Config.Credentials.Angel.Complete() {
				output.Error("Credentials incomplete. Set them in credentials.toml or via ANGEL_* environment variables.")
				return apierrors.ErrValidation
			}

			force, _ := cmd.Flags().GetBool("force")

			var err error
			if force {
				_, err = app.Session.ForceReauth(cmd.Context())
			} else {
				_, err = app.Session.Token(cmd.Context())
			}
			if err != nil {
				output.Error("Login failed: %v", err)
				return err
			}

			s, _ := app.Session.Current()
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"state":      string(app.Session.State()),
					"expires_at": s.ExpiresAt,
				})
			}
			output.Success("✓ Logged in")
			output.Dim("Session valid until %s", s.ExpiresAt.Format("02-Jan-2006 15:04"))
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "discard any existing session and log in fresh")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Terminate the upstream session",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Session.Logout(cmd.Context()); err != nil {
				output.Warning("Logout reported an error: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"logged_out": true})
			}
			output.Success("✓ Logged out")
			return nil
		},
	}
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			state := app.Session.State()
			s, ok := app.Session.Current()

			var profile *provider.UserProfile
			if state == session.StateValid {
				// Best effort; a profile fetch failure never fails status.
				profile, _ = app.Provider.Profile(cmd.Context())
			}

			if output.IsJSON() {
				resp := map[string]interface{}{"state": string(state)}
				if ok {
					resp["issued_at"] = s.IssuedAt
					resp["expires_at"] = s.ExpiresAt
				}
				if profile != nil {
					resp["profile"] = profile
				}
				return output.JSON(resp)
			}

			switch state {
			case session.StateValid:
				output.Success("● Session valid")
			case session.StateExpiring:
				output.Warning("● Session expiring soon")
			case session.StateInvalid:
				output.Error("● Session expired")
			default:
				output.Dim("● Not logged in")
			}
			if ok {
				output.Printf("  Issued:  %s\n", s.IssuedAt.Format("02-Jan-2006 15:04"))
				output.Printf("  Expires: %s\n", s.ExpiresAt.Format("02-Jan-2006 15:04"))
			}
			if profile != nil {
				output.Printf("  Account: %s (%s)\n", profile.Name, profile.ClientCode)
			}
			return nil
		},
	}
}
