package tutor

import (
	"context"
	"net/http"

	"github.com/prepod-ai/tutor/pkg/core/types"
)

// Login authenticates the student and stores the issued bearer pair.
func (c *Client) Login(ctx context.Context, req *types.LoginRequest) (*types.Token, error) {
	var token types.Token
	if err := c.doJSON(ctx, http.MethodPost, "/login", req, &token); err != nil {
		return nil, err
	}
	c.tokens.SetToken(token)
	return &token, nil
}

// Register creates a student account. The caller still has to log in.
func (c *Client) Register(ctx context.Context, req *types.RegisterRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/register", req, nil)
}

// Logout invalidates the refresh token server-side and clears the local
// credential pair.
func (c *Client) Logout(ctx context.Context) error {
	err := c.doJSON(ctx, http.MethodPost, "/logout", nil, nil)
	c.tokens.Clear()
	return err
}
