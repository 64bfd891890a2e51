package commands

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/certifychain/internal/client"
	"github.com/wolfeidau/certifychain/internal/oauthredirect"
	"github.com/wolfeidau/certifychain/internal/session"
)

// LoginCmd signs in with email and password, or through Google.
type LoginCmd struct {
	Email         string        `help:"Account email" env:"CERTIFYCHAIN_EMAIL"`
	Password      string        `help:"Account password" env:"CERTIFYCHAIN_PASSWORD"`
	PasswordStdin bool          `help:"Read the password from stdin" default:"false"`
	Google        bool          `help:"Sign in with Google in the browser" default:"false"`
	RedirectURL   string        `help:"Complete a Google login by pasting the URL the browser was redirected to" name:"redirect-url"`
	Wait          time.Duration `help:"How long to wait for the Google redirect" default:"5m"`
}

func (c *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(ctx, globals)
	if err != nil {
		return err
	}

	switch {
	case c.RedirectURL != "":
		result, err := oauthredirect.Parse(redirectQuery(c.RedirectURL))
		if err != nil {
			return fmt.Errorf("login with Google failed, invalid authentication data: %w", err)
		}
		return a.loginWithRedirect(ctx, result)

	case c.Google:
		return c.googleLogin(ctx, a)

	default:
		return c.passwordLogin(ctx, a, globals)
	}
}

func (c *LoginCmd) passwordLogin(ctx context.Context, a *app, globals *Globals) error {
	password, err := readPassword(globals.stdin(), c.Password, c.PasswordStdin)
	if err != nil {
		return err
	}

	resp, err := a.client.SignIn(ctx, c.Email, password)
	if err != nil {
		if errors.Is(err, client.ErrMissingCredentials) {
			return fmt.Errorf("login failed: %w (use --email with --password or --password-stdin)", err)
		}
		return fmt.Errorf("login failed: %s", client.ErrorMessage(err, err.Error()))
	}

	if err := a.store.Login(ctx, session.Credential(resp.Token), resp.User, resp.Profile); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Fprintf(a.out, "Welcome back, %s!\n", resp.User.DisplayName())
	return nil
}

func (c *LoginCmd) googleLogin(ctx context.Context, a *app) error {
	if a.cfg.GoogleAuthURL == "" {
		return errors.New("login with Google is not configured, set google_auth_url")
	}

	cb, err := oauthredirect.NewCallbackServer(a.cfg.CallbackAddr, oauthredirect.DefaultCallbackPath)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Open this URL in your browser to sign in with Google:")
	fmt.Fprintf(a.out, "  %s\n\n", a.cfg.GoogleAuthURL)
	fmt.Fprintf(a.out, "Waiting for the redirect to %s ...\n", cb.URL())

	waitCtx, cancel := context.WithTimeout(ctx, c.Wait)
	defer cancel()

	result, err := cb.Wait(waitCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("login with Google timed out after %s", c.Wait)
		}
		return fmt.Errorf("login with Google failed, invalid authentication data: %w", err)
	}

	return a.loginWithRedirect(ctx, result)
}

// loginWithRedirect installs a session handed back by the API. A redirect
// without a profile is completed by a profile fetch; failing that, the
// session stands without one.
func (a *app) loginWithRedirect(ctx context.Context, result *oauthredirect.Result) error {
	if err := a.store.Login(ctx, result.Token, result.Identity, result.Profile); err != nil {
		return fmt.Errorf("login with Google failed: %w", err)
	}

	if result.Profile == nil {
		if _, err := a.store.RefreshProfile(ctx); err != nil {
			log.Warn().Err(err).Msg("profile not available after Google login")
		}
	}

	fmt.Fprintf(a.out, "Welcome, %s! Successfully logged in with Google.\n", result.Identity.DisplayName())
	return nil
}

// redirectQuery accepts either the full redirect URL or just its query.
func redirectQuery(raw string) string {
	raw = strings.TrimSpace(raw)
	if u, err := url.Parse(raw); err == nil && u.RawQuery != "" {
		return u.RawQuery
	}
	return raw
}
