package state

import (
	"context"
	"fmt"

	"github.com/rogersnm/todos/internal/model"
	"github.com/rogersnm/todos/internal/session"
	"github.com/rogersnm/todos/internal/store"
)

func (c *Container) authenticator() (store.Authenticator, error) {
	auth, ok := c.store.(store.Authenticator)
	if !ok {
		return nil, ErrNoAuth
	}
	return auth, nil
}

// Authenticate logs in, persists the issued token and sets it in state.
func (c *Container) Authenticate(ctx context.Context, creds model.Credentials) error {
	auth, err := c.authenticator()
	if err != nil {
		return err
	}
	token, err := auth.Login(ctx, creds)
	if err != nil {
		return c.logFailure("authenticate", err)
	}
	if err := c.session.Save(token); err != nil {
		return fmt.Errorf("storing token: %w", err)
	}
	auth.SetToken(token)
	c.mutate(func() bool {
		changed := c.token != token
		c.token = token
		return changed
	})
	return nil
}

// Register creates an account. It does not log in.
func (c *Container) Register(ctx context.Context, reg model.Registration) error {
	auth, err := c.authenticator()
	if err != nil {
		return err
	}
	if err := auth.Register(ctx, reg); err != nil {
		return c.logFailure("register", err)
	}
	return nil
}

// Deauthenticate revokes the token remotely and then forgets it. A token the
// server already rejects is forgotten too.
func (c *Container) Deauthenticate(ctx context.Context) error {
	auth, err := c.authenticator()
	if err != nil {
		return err
	}
	if err := auth.Logout(ctx); err != nil {
		if !store.IsAuthError(err) {
			return c.fail("deauthenticate", err)
		}
		c.log.WithField("error", err).Warn("token already rejected by server")
	}
	if err := c.session.Clear(); err != nil {
		return fmt.Errorf("clearing token: %w", err)
	}
	auth.SetToken("")
	c.mutate(func() bool {
		changed := c.token != ""
		c.token = ""
		return changed
	})
	return nil
}

func (c *Container) CurrentUser(ctx context.Context) (*model.User, error) {
	auth, err := c.authenticator()
	if err != nil {
		return nil, err
	}
	u, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, c.fail("current user", err)
	}
	return u, nil
}

// Restore reads the stored token once at startup. A token that can never
// authenticate is cleared from storage instead of being set.
func (c *Container) Restore() error {
	token, err := c.session.Load()
	if err != nil {
		return fmt.Errorf("loading token: %w", err)
	}
	if token == "" {
		return nil
	}
	if err := session.Validate(token, c.now()); err != nil {
		c.log.WithField("error", err).Warn("discarding stored token")
		if err := c.session.Clear(); err != nil {
			return fmt.Errorf("clearing token: %w", err)
		}
		return nil
	}
	if auth, ok := c.store.(store.Authenticator); ok {
		auth.SetToken(token)
	}
	c.mutate(func() bool {
		c.token = token
		return true
	})
	return nil
}
