package api

import (
	"context"
	"net/http"

	"usha_storefront/internal/models"
	"usha_storefront/internal/session"
)

func (c *Client) Signin(ctx context.Context, creds models.SigninCredentials) (models.AuthResponse, error) {
	var res models.AuthResponse
	err := c.do(ctx, session.Context{}, http.MethodPost, "/auth/signin", creds, &res)
	return res, err
}

func (c *Client) Signup(ctx context.Context, data models.SignupData) (models.AuthResponse, error) {
	var res models.AuthResponse
	err := c.do(ctx, session.Context{}, http.MethodPost, "/auth/signup", data, &res)
	return res, err
}
