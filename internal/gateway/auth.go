package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/spec-kit/helpdesk-console/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-console/pkg/util/errorutil"
)

// Login exchanges credentials for a bearer token. The backend expects an
// OAuth2-style form body.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error) {
	form := url.Values{}
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)

	var resp authResponse
	if err := c.do(ctx, request{
		operation:   "login",
		method:      http.MethodPost,
		path:        "/auth/login",
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
		anonymous:   true,
	}, &resp); err != nil {
		return nil, err
	}
	return resp.toDomain()
}

// Signup registers an account and logs it in.
func (c *Client) Signup(ctx context.Context, input domain.Signup) (*domain.AuthResult, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	var resp authResponse
	if err := c.do(ctx, request{
		operation:   "signup",
		method:      http.MethodPost,
		path:        "/auth/signup",
		body:        bytes.NewReader(body),
		contentType: "application/json",
		anonymous:   true,
	}, &resp); err != nil {
		return nil, err
	}
	return resp.toDomain()
}

// CurrentUser asks the backend who the bearer token belongs to.
func (c *Client) CurrentUser(ctx context.Context) (*domain.UserProfile, error) {
	var resp userResponse
	if err := c.do(ctx, request{
		operation: "current_user",
		method:    http.MethodGet,
		path:      "/auth/me",
	}, &resp); err != nil {
		return nil, err
	}
	role, _ := domain.ParseRole(resp.Role)
	return &domain.UserProfile{
		ID:       parseID(resp.ID),
		Username: resp.Username,
		Email:    resp.Email,
		Role:     role,
	}, nil
}

func (r authResponse) toDomain() (*domain.AuthResult, error) {
	if r.AccessToken == "" || r.Role == "" || r.Username == "" {
		return nil, apperrors.NewValidationError("missing required login fields in response", nil)
	}
	return &domain.AuthResult{
		AccessToken: r.AccessToken,
		Role:        strings.ToLower(strings.TrimSpace(r.Role)),
		Username:    r.Username,
	}, nil
}
