package api

import (
	"context"
	"net/http"

	authapp "recyclemart/internal/app/auth"
	"recyclemart/internal/domain/auth"
	"recyclemart/internal/domain/marketplace"
)

type emailRequest struct {
	Email string `json:"email"`
}

type otpRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type planRequest struct {
	PlanID string `json:"planId"`
}

type accessTokenData struct {
	AccessToken string `json:"accessToken"`
}

// SignIn exchanges credentials for a token pair.
func (c *Client) SignIn(ctx context.Context, creds marketplace.Credentials) (auth.Tokens, error) {
	var tokens auth.Tokens
	_, err := c.do(ctx, request{method: http.MethodPost, path: "/user/signin", body: creds}, &tokens)
	return tokens, err
}

// VerifySignupOTP completes registration and signs the user in.
func (c *Client) VerifySignupOTP(ctx context.Context, email, otp string) (auth.Tokens, error) {
	var tokens auth.Tokens
	_, err := c.do(ctx, request{method: http.MethodPost, path: "/user/verify-signup-otp", body: otpRequest{Email: email, OTP: otp}}, &tokens)
	return tokens, err
}

func (c *Client) ResendSignupOTP(ctx context.Context, email string) error {
	_, err := c.do(ctx, request{method: http.MethodPost, path: "/user/send-signup-otp-again", body: emailRequest{Email: email}}, nil)
	return err
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	_, err := c.do(ctx, request{method: http.MethodPost, path: "/user/forgot-password", body: emailRequest{Email: email}}, nil)
	return err
}

// RefreshAccessToken trades a refresh token for a new access token.
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	if err := requireToken(refreshToken); err != nil {
		return "", err
	}
	var data accessTokenData
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/user/access-token", token: refreshToken}, &data); err != nil {
		return "", err
	}
	if data.AccessToken == "" {
		return "", &Error{Status: http.StatusOK, Message: "no access token in response"}
	}
	return data.AccessToken, nil
}

func (c *Client) Profile(ctx context.Context, token string) (marketplace.Profile, error) {
	if err := requireToken(token); err != nil {
		return marketplace.Profile{}, err
	}
	var p marketplace.Profile
	_, err := c.do(ctx, request{method: http.MethodGet, path: "/user/profile", token: token}, &p)
	return p, err
}

func (c *Client) ChangePassword(ctx context.Context, token string, change marketplace.PasswordChange) error {
	if err := requireToken(token); err != nil {
		return err
	}
	_, err := c.do(ctx, request{method: http.MethodPatch, path: "/user/change-password", token: token, body: change}, nil)
	return err
}

func (c *Client) Plans(ctx context.Context) ([]marketplace.Plan, error) {
	var plans []marketplace.Plan
	_, err := c.do(ctx, request{method: http.MethodGet, path: "/subscription/plans"}, &plans)
	return plans, err
}

func (c *Client) MySubscription(ctx context.Context, token string) (marketplace.Subscription, error) {
	if err := requireToken(token); err != nil {
		return marketplace.Subscription{}, err
	}
	var sub marketplace.Subscription
	_, err := c.do(ctx, request{method: http.MethodGet, path: "/subscription/my", token: token}, &sub)
	return sub, err
}

func (c *Client) Invoices(ctx context.Context, token string) ([]marketplace.Invoice, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	var items []marketplace.Invoice
	_, err := c.do(ctx, request{method: http.MethodGet, path: "/subscription/invoice/my", token: token}, &items)
	return items, err
}

func (c *Client) ChangePlan(ctx context.Context, token, planID string) error {
	if err := requireToken(token); err != nil {
		return err
	}
	_, err := c.do(ctx, request{method: http.MethodPost, path: "/subscription/change", token: token, body: planRequest{PlanID: planID}}, nil)
	return err
}

func (c *Client) CancelSubscription(ctx context.Context, token string) error {
	if err := requireToken(token); err != nil {
		return err
	}
	_, err := c.do(ctx, request{method: http.MethodPost, path: "/subscription/cancel", token: token}, nil)
	return err
}

var _ authapp.API = (*Client)(nil)
