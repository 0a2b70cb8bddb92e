package backend

import (
	"context"
	"fmt"
	"net/http"

	"basketbay/internal/models"
)

// AuthClient talks to the OTP login, signup and admin endpoints. OTP
// generation and delivery happen entirely in the backend.
type AuthClient struct {
	c *Client
}

// NewAuthClient creates an auth client
func NewAuthClient(c *Client) *AuthClient {
	return &AuthClient{c: c}
}

type loginResponse struct {
	Message string           `json:"message"`
	Token   string           `json:"token"`
	User    *models.Identity `json:"user"`
}

func (r loginResponse) identity(call string) (models.Identity, error) {
	if r.User == nil || r.User.CustomerID == "" {
		return models.Identity{}, fmt.Errorf("%s: %w: response carried no user", call, models.ErrNetwork)
	}
	id := *r.User
	id.Token = r.Token
	return id, nil
}

// FindEmailByMobile resolves a registered mobile number to its email
func (ac *AuthClient) FindEmailByMobile(ctx context.Context, mobile string) (string, error) {
	var resp struct {
		Email string `json:"email"`
	}
	err := ac.c.do(ctx, request{
		call:   "auth.find_email",
		method: http.MethodPost,
		path:   "/api/auth/find-email-by-mobile",
		body:   map[string]string{"mobile": mobile},
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Email, nil
}

// SendOTP asks the backend to mail a one-time passcode
func (ac *AuthClient) SendOTP(ctx context.Context, email string) error {
	return ac.c.do(ctx, request{
		call:   "auth.send_otp",
		method: http.MethodPost,
		path:   "/api/auth/send-otp",
		body:   map[string]string{"email": email},
	}, nil)
}

// VerifyOTP checks a passcode for email
func (ac *AuthClient) VerifyOTP(ctx context.Context, email, otp string) (bool, error) {
	var resp struct {
		Success bool `json:"success"`
	}
	err := ac.c.do(ctx, request{
		call:   "auth.verify_otp",
		method: http.MethodPost,
		path:   "/api/auth/verify-otp",
		body:   map[string]string{"email": email, "otp": otp},
	}, &resp)
	if err != nil {
		return false, err
	}
	return resp.Success, nil
}

// OTPLogin exchanges a verified email for the user record and token
func (ac *AuthClient) OTPLogin(ctx context.Context, email string) (models.Identity, error) {
	var resp loginResponse
	err := ac.c.do(ctx, request{
		call:   "auth.otp_login",
		method: http.MethodPost,
		path:   "/api/auth/otp-login",
		body:   map[string]string{"email": email},
	}, &resp)
	if err != nil {
		return models.Identity{}, err
	}
	return resp.identity("auth.otp_login")
}

// Signup registers a new customer and returns the backend's welcome message
func (ac *AuthClient) Signup(ctx context.Context, form models.SignupForm) (models.Identity, string, error) {
	var resp loginResponse
	err := ac.c.do(ctx, request{
		call:   "auth.signup",
		method: http.MethodPost,
		path:   "/api/auth/signup",
		body:   form,
	}, &resp)
	if err != nil {
		return models.Identity{}, "", err
	}
	id, err := resp.identity("auth.signup")
	if err != nil {
		return models.Identity{}, "", err
	}
	return id, resp.Message, nil
}

// AdminLogin checks the admin panel password
func (ac *AuthClient) AdminLogin(ctx context.Context, password string) (bool, string, error) {
	var resp struct {
		Success bool   `json:"success"`
		Msg     string `json:"msg"`
		Token   string `json:"token"`
	}
	err := ac.c.do(ctx, request{
		call:   "auth.admin",
		method: http.MethodPost,
		path:   "/api/auth/admin",
		body:   map[string]string{"password": password},
	}, &resp)
	if err != nil {
		return false, "", err
	}
	return resp.Success, resp.Msg, nil
}
