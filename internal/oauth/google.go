package oauth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"personahub/api/internal/config"
)

const (
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// Profile is the provider-agnostic shape the account linker consumes.
type Profile struct {
	Provider    string
	ProviderID  string
	DisplayName string
	Emails      []string
	AvatarURL   string
}

type googleTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	IDToken     string `json:"id_token"`
}

type googleUserInfo struct {
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// GoogleClient exchanges an authorization code for the user's Google
// profile.
type GoogleClient struct {
	http *resty.Client
	cfg  config.GoogleOAuthConfig
	log  zerolog.Logger
}

func NewGoogleClient(cfg config.GoogleOAuthConfig, log zerolog.Logger) *GoogleClient {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetHeader("Accept", "application/json")

	return &GoogleClient{
		http: client,
		cfg:  cfg,
		log:  log,
	}
}

// Exchange runs the code-for-token exchange and userinfo fetch,
// returning the normalized profile.
func (c *GoogleClient) Exchange(ctx context.Context, code string) (Profile, error) {
	var token googleTokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"code":          code,
			"client_id":     c.cfg.ClientID,
			"client_secret": c.cfg.ClientSecret,
			"redirect_uri":  c.cfg.RedirectURL,
			"grant_type":    "authorization_code",
		}).
		SetResult(&token).
		Post(googleTokenURL)
	if err != nil {
		return Profile{}, fmt.Errorf("google token exchange: %w", err)
	}
	if !resp.IsSuccess() || token.AccessToken == "" {
		return Profile{}, fmt.Errorf("google token exchange: status %d", resp.StatusCode())
	}

	var info googleUserInfo
	resp, err = c.http.R().
		SetContext(ctx).
		SetAuthToken(token.AccessToken).
		SetResult(&info).
		Get(googleUserInfoURL)
	if err != nil {
		return Profile{}, fmt.Errorf("google userinfo: %w", err)
	}
	if !resp.IsSuccess() {
		return Profile{}, fmt.Errorf("google userinfo: status %d", resp.StatusCode())
	}

	profile := Profile{
		Provider:    "google",
		ProviderID:  info.Sub,
		DisplayName: info.Name,
		AvatarURL:   info.Picture,
	}
	if info.Email != "" {
		profile.Emails = []string{info.Email}
	}
	return profile, nil
}
