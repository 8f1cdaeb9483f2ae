package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/shared"
	"github.com/desertthunder/setlist/internal/ui"
	"github.com/urfave/cli/v3"
)

// AuthLogin signs in with email and password, or stores a token pair obtained elsewhere.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}

	if access := cmd.String("access-token"); access != "" {
		pair, err := r.sessions.Login(ctx, access, cmd.String("refresh-token"))
		if err != nil {
			return fmt.Errorf("failed to import tokens: %w", err)
		}
		if pair.RefreshToken == "" {
			r.logger.Warn("no refresh token given, the session ends when the access token expires")
		}
		return r.writePlain("%s Session imported, expires %s\n", r.paint.OK("✓"), pair.ExpiryTime().Local().Format(time.RFC1123))
	}

	email, password := cmd.String("email"), cmd.String("password")
	if email == "" || password == "" {
		return fmt.Errorf("%w: --email and --password, or --access-token", shared.ErrMissingArgument)
	}

	r.logger.Info("signing in", "email", email)
	resp, err := r.svc.Auth.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if resp.User != nil {
		return r.writePlain("%s Signed in as %s\n", r.paint.OK("✓"), resp.User.DisplayName())
	}
	return r.writePlain("%s Signed in\n", r.paint.OK("✓"))
}

// AuthLogout clears the stored session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}
	if err := r.svc.Auth.Logout(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return r.writePlain("%s Signed out\n", r.paint.OK("✓"))
}

// AuthStatus reports the stored session without refreshing it.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}

	status, err := r.sessions.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Session")
	r.writePlain("Storage:        %s\n", status.Storage)
	if !status.Authenticated {
		r.writePlain("Authentication: %s Not authenticated\n", ui.Mark(r.paint, false))
		return r.writePlain("%s\n", r.paint.Help("Run 'setlist auth login' to sign in"))
	}

	r.writePlain("Authentication: %s Authenticated\n", ui.Mark(r.paint, true))
	expiry := fmt.Sprintf("%s (%s)", status.ExpiresAt.Local().Format(time.RFC1123), remaining(status.Remaining))
	switch {
	case status.Expired:
		expiry = r.paint.Err(expiry + " expired, next request refreshes")
	case status.NearExpiry:
		expiry = r.paint.Warn(expiry + " refresh due")
	}
	r.writePlain("Expires:        %s\n", expiry)
	if !status.NextRenewal.IsZero() {
		r.writePlain("Next renewal:   %s\n", status.NextRenewal.Local().Format(time.RFC1123))
	}
	return nil
}

// AuthRefresh forces a refresh of the stored pair.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}

	if status, err := r.sessions.Status(ctx); err == nil && !status.Authenticated {
		return shared.ErrNotAuthenticated
	}

	pair := r.sessions.Refresh(ctx)
	if pair == nil {
		// A rejected refresh token clears the session.
		if status, err := r.sessions.Status(ctx); err == nil && !status.Authenticated {
			return shared.ErrAuthExpired
		}
		return shared.ErrRefreshFailed
	}
	return r.writePlain("%s Session refreshed, expires %s\n", r.paint.OK("✓"), pair.ExpiryTime().Local().Format(time.RFC1123))
}

// AuthWhoami fetches the signed-in user's profile.
func (r *Runner) AuthWhoami(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}

	user, err := r.svc.Users.Me(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(user, cmd.Bool("pretty"))
	}

	r.writePlain("%s <%s>\n", r.paint.Title(user.DisplayName()), user.Email)
	if !user.EmailVerified {
		r.writePlain("%s\n", r.paint.Warn("email not verified"))
	}
	return nil
}

// remaining formats d as "in 12m" or "3m ago".
func remaining(d time.Duration) string {
	if d < 0 {
		return (-d).Round(time.Second).String() + " ago"
	}
	return "in " + d.Round(time.Second).String()
}

// AuthForgotPassword asks the API to email a reset link.
func (r *Runner) AuthForgotPassword(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}

	msg, err := r.svc.Auth.ForgotPassword(ctx, cmd.String("email"))
	if err != nil {
		return fmt.Errorf("failed to request reset: %w", err)
	}
	return r.writeMessage(msg, "Reset link sent")
}

// AuthResetPassword sets a new password from a reset token. It does not sign in.
func (r *Runner) AuthResetPassword(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}

	msg, err := r.svc.Auth.NewPassword(ctx, cmd.String("token"), cmd.String("password"))
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}
	return r.writeMessage(msg, "Password updated, run 'setlist auth login' to sign in")
}

// AuthVerifyEmail confirms an email address.
func (r *Runner) AuthVerifyEmail(ctx context.Context, cmd *cli.Command) error {
	token := cmd.StringArg("token")
	if token == "" {
		return fmt.Errorf("%w: verification token", shared.ErrMissingArgument)
	}
	if err := r.connect(ctx); err != nil {
		return err
	}

	msg, err := r.svc.Auth.VerifyEmail(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to verify email: %w", err)
	}
	return r.writeMessage(msg, "Email verified")
}

// writeMessage prints the server's message, or fallback when it sent none.
func (r *Runner) writeMessage(msg *models.Message, fallback string) error {
	text := fallback
	if msg != nil && msg.Message != "" {
		text = msg.Message
	}
	return r.writePlain("%s %s\n", r.paint.OK("✓"), text)
}
