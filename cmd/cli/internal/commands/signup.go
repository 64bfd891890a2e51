package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfeidau/certifychain/internal/client"
	"github.com/wolfeidau/certifychain/internal/session"
)

// SignupCmd registers an account and logs into it.
type SignupCmd struct {
	Email         string `help:"Account email" required:""`
	FirstName     string `help:"First name" name:"first-name"`
	LastName      string `help:"Last name" name:"last-name"`
	Password      string `help:"Account password, at least 8 characters" env:"CERTIFYCHAIN_PASSWORD"`
	PasswordStdin bool   `help:"Read the password from stdin" default:"false"`
}

func (c *SignupCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(ctx, globals)
	if err != nil {
		return err
	}

	password, err := readPassword(globals.stdin(), c.Password, c.PasswordStdin)
	if err != nil {
		return err
	}

	resp, err := a.client.SignUp(ctx, client.SignUpRequest{
		Email:     c.Email,
		Password:  password,
		FirstName: c.FirstName,
		LastName:  c.LastName,
	})
	if err != nil {
		if errors.Is(err, client.ErrMissingCredentials) || errors.Is(err, client.ErrPasswordTooShort) {
			return fmt.Errorf("signup failed: %w", err)
		}
		return fmt.Errorf("signup failed: %s", client.ErrorMessage(err, err.Error()))
	}

	if err := a.store.Login(ctx, session.Credential(resp.Token), resp.User, resp.Profile); err != nil {
		return fmt.Errorf("signup failed: %w", err)
	}

	fmt.Fprintf(a.out, "Account created, welcome %s!\n", resp.User.DisplayName())
	return nil
}
