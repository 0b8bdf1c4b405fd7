package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/good-yellow-bee/projtrack/internal/models"
	"github.com/good-yellow-bee/projtrack/internal/tracker"
)

// LoginResult is the token pair and identity returned by login and refresh.
type LoginResult struct {
	Role         models.Role `json:"role"`
	UserID       string      `json:"userId"`
	Username     string      `json:"username"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int         `json:"expires_in"`
	TokenType    string      `json:"token_type"`
}

// Me describes the signed-in account.
type Me struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
	CanEdit  bool        `json:"canEdit"`
}

// Signup registers an account. It does not log in.
func (c *Client) Signup(ctx context.Context, in tracker.SignupInput) (*models.User, error) {
	var resp struct {
		Message string       `json:"message"`
		User    *models.User `json:"user"`
	}
	if _, err := c.call(ctx, http.MethodPost, "/api/signup", in, &resp, false); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// Login exchanges credentials for tokens and stores them. identifier is an
// email address when it contains "@" and a username otherwise.
func (c *Client) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	req := map[string]string{"password": password}
	if strings.Contains(identifier, "@") {
		req["email"] = identifier
	} else {
		req["username"] = identifier
	}

	var result LoginResult
	if _, err := c.call(ctx, http.MethodPost, "/api/login", req, &result, false); err != nil {
		return nil, err
	}
	if err := c.setCredentials(credentialsFrom(&result)); err != nil {
		return &result, fmt.Errorf("save credentials: %w", err)
	}
	return &result, nil
}

// Refresh rotates the refresh token and replaces the access token.
func (c *Client) Refresh(ctx context.Context) error {
	refresh := c.Credentials().RefreshToken
	if refresh == "" {
		return ErrNotLoggedIn
	}

	var result LoginResult
	req := map[string]string{"refresh_token": refresh}
	if _, err := c.call(ctx, http.MethodPost, "/api/refresh", req, &result, false); err != nil {
		return err
	}
	return c.setCredentials(credentialsFrom(&result))
}

// Logout revokes the refresh token on the server, or every token of the
// account when everywhere is set, and forgets local credentials. Local
// credentials are removed even when the server call fails.
func (c *Client) Logout(ctx context.Context, everywhere bool) error {
	creds := c.Credentials()
	var serverErr error
	if creds.LoggedIn() && creds.RefreshToken != "" {
		req := map[string]any{"refresh_token": creds.RefreshToken, "all": everywhere}
		_, serverErr = c.call(ctx, http.MethodPost, "/api/logout", req, nil, true)
		// the retry may have rotated the token; revoke the current one
		if serverErr == nil && c.Credentials().RefreshToken != creds.RefreshToken {
			req["refresh_token"] = c.Credentials().RefreshToken
			_, serverErr = c.call(ctx, http.MethodPost, "/api/logout", req, nil, true)
		}
	}

	c.mu.Lock()
	c.creds = Credentials{Server: c.baseURL}
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Clear(); err != nil {
			return err
		}
	}
	return serverErr
}

// Me returns the account behind the current access token.
func (c *Client) Me(ctx context.Context) (*Me, error) {
	var me Me
	if _, err := c.call(ctx, http.MethodGet, "/api/me", nil, &me, true); err != nil {
		return nil, err
	}
	return &me, nil
}

func credentialsFrom(r *LoginResult) Credentials {
	return Credentials{
		Username:     r.Username,
		Role:         r.Role,
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
	}
}
