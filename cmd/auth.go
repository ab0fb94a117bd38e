package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/dodeck/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin signs in through the browser and stores the credential.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	p, err := r.provider(ctx)
	if err != nil {
		return err
	}

	if p.IsAuthenticated() {
		r.logger.Info("already signed in, starting a new session", "user", p.User().Display())
	}

	r.logger.Info("opening browser for sign in")
	user, err := p.Login(ctx)
	if err != nil {
		return err
	}

	return r.writePlain("✓ Signed in as %s\n", user.Display())
}

// AuthLogout clears the session and the stored credential.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	p, err := r.provider(ctx)
	if err != nil {
		return err
	}

	logoutURL, err := p.Logout(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("browser") {
		if err := r.openURL(logoutURL); err != nil {
			r.logger.Warn("failed to open logout page", "error", err)
		}
	}

	r.writePlain("✓ Signed out\n")
	return r.writePlain("To end the browser session too, visit:\n%s\n", logoutURL)
}

// AuthStatus prints the signed-in user and whether the deck service is reachable.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	p, err := r.provider(ctx)
	if err != nil {
		return err
	}

	if !p.IsAuthenticated() {
		r.writePlain("✗ Not signed in\n")
		r.writePlain("Run 'dodeck auth login' to sign in.\n")
	} else {
		user := p.User()
		r.writePlain("✓ Signed in as %s\n", user.Display())
		if user != nil && user.Email != "" {
			verified := "unverified"
			if user.EmailVerified {
				verified = "verified"
			}
			r.writePlain("Email: %s (%s)\n", user.Email, verified)
		}
		if exp := p.Expiry(); !exp.IsZero() {
			if time.Until(exp) > 0 {
				r.writePlain("Access token expires in %s\n", time.Until(exp).Round(time.Second))
			} else {
				r.writePlain("Access token expired; it will be refreshed on next use\n")
			}
		}
	}

	client, err := r.deckClient(ctx)
	if err != nil {
		return err
	}
	health, err := client.Health(ctx)
	if err != nil {
		r.logger.Warn("deck service unavailable", "error", err)
		return r.writePlain("✗ Deck service unavailable at %s\n", r.config.API.BaseURL)
	}
	return r.writePlain("✓ Deck service %s (%s) at %s\n", health.Version, health.Environment, r.config.API.BaseURL)
}

// AuthToken prints a valid access token.
func (r *Runner) AuthToken(ctx context.Context, cmd *cli.Command) error {
	p, err := r.provider(ctx)
	if err != nil {
		return err
	}

	token, err := p.Token(ctx)
	if errors.Is(err, shared.ErrNotAuthenticated) {
		return fmt.Errorf("%w: run 'dodeck auth login' first", err)
	}
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", token)
}
