package platform

import (
	"context"
	"strings"
	"time"

	"github.com/channelkit/channelkit/pkg/errors"
	"github.com/channelkit/channelkit/pkg/session"
)

// DeviceCodeResponse contains the response from requesting a device code.
type DeviceCodeResponse struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

// Token is an issued platform access token.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope,omitempty"`
}

// tokenResponse is the wire shape for token polling, which reports
// in-progress states through the error field.
type tokenResponse struct {
	Token
	Error     string `json:"error"`
	ErrorDesc string `json:"error_description"`
}

// RequestDeviceCode initiates the device authorization flow.
// The user must visit the VerificationURI and enter the UserCode.
func (c *Client) RequestDeviceCode(ctx context.Context) (*DeviceCodeResponse, error) {
	var result DeviceCodeResponse
	if err := c.Post(ctx, "/api/auth/device/code", map[string]string{"scope": "channels runs volumes"}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PollForToken polls the platform for the access token after user
// authorization. It respects the interval from the device code response.
// Returns the token when authorized, or an error if expired or denied.
func (c *Client) PollForToken(ctx context.Context, deviceCode string, interval int) (*Token, error) {
	if interval < 5 {
		interval = 5
	}

	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			token, err := c.checkDeviceToken(ctx, deviceCode)
			if err != nil {
				if strings.Contains(err.Error(), "authorization_pending") {
					continue // keep polling
				}
				if strings.Contains(err.Error(), "slow_down") {
					ticker.Reset(time.Duration(interval+5) * time.Second)
					continue
				}
				return nil, err // expired, denied, etc.
			}
			return token, nil
		}
	}
}

func (c *Client) checkDeviceToken(ctx context.Context, deviceCode string) (*Token, error) {
	var result tokenResponse
	err := c.Post(ctx, "/api/auth/device/token", map[string]string{
		"device_code": deviceCode,
		"grant_type":  "urn:ietf:params:oauth:grant-type:device_code",
	}, &result)
	if err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, errors.New(errors.ErrCodeUnauthorized, "%s: %s", result.Error, result.ErrorDesc)
	}
	return &result.Token, nil
}

// FetchUser retrieves the authenticated user's account.
func (c *Client) FetchUser(ctx context.Context) (*session.User, error) {
	var user session.User
	if err := c.Get(ctx, "/api/users/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}
