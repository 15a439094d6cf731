package clarity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"github.com/clarityhire/clarity/internal/errs"
	"github.com/clarityhire/clarity/internal/session"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	loginPath    = "/login"
	registerPath = "/register"

	RoleCandidate = "candidate"
	RoleRecruiter = "recruiter"
)

type User struct {
	ID       string `json:"id" yaml:"id"`
	Email    string `json:"email" yaml:"email"`
	Name     string `json:"name" yaml:"name"`
	Role     string `json:"role" yaml:"role"`
	IsActive bool   `json:"is_active" yaml:"is_active"`
}

type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (r *Registration) Validate() error {
	var missing []string
	if strings.TrimSpace(r.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(r.Email) == "" {
		missing = append(missing, "email")
	}
	if r.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return errs.Validation(fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")), nil)
	}

	if _, err := mail.ParseAddress(r.Email); err != nil {
		return errs.Validation(fmt.Sprintf("invalid email %q", r.Email), err)
	}

	switch r.Role {
	case RoleCandidate, RoleRecruiter:
	default:
		return errs.Validation(fmt.Sprintf("unsupported role %q", r.Role), nil)
	}
	return nil
}

// Login exchanges credentials for a bearer token using the password grant
// and stores it in the session.
func (c *Client) Login(ctx context.Context, email, password string) (*oauth2.Token, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, errs.Validation("email and password are required", nil)
	}

	cfg := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.url(loginPath),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	c.logger.Debug("make request", zap.String("method", http.MethodPost), zap.String("url", cfg.Endpoint.TokenURL))

	token, err := cfg.PasswordCredentialsToken(context.WithValue(ctx, oauth2.HTTPClient, c.public), email, password)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return nil, statusError(retrieveErr.Response.StatusCode, retrieveErr.Response.Status, retrieveErr.Body)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errs.Transient("login request failed", err)
	}

	if err := c.session.Set(ctx, token.AccessToken, token.TokenType); err != nil {
		return nil, fmt.Errorf("storing credential: %w", err)
	}

	return token, nil
}

func (c *Client) Register(ctx context.Context, r Registration) (*User, error) {
	r.Email = strings.TrimSpace(r.Email)
	if r.Role == "" {
		r.Role = RoleCandidate
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	var user User
	if err := c.sendJSON(ctx, c.public, http.MethodPost, registerPath, r, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout ends the session locally. The server keeps no session state.
func (c *Client) Logout(ctx context.Context) bool {
	return c.session.Clear(ctx, session.ReasonLogout)
}
