package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

// ClerkConfig configures the Clerk backend API client.
type ClerkConfig struct {
	BaseURL    string
	SecretKey  string
	HTTPClient *http.Client
	MaxTries   uint
	Logger     zerolog.Logger
}

// ClerkResolver fetches user profiles from the Clerk backend API.
type ClerkResolver struct {
	baseURL  string
	secret   string
	client   *http.Client
	maxTries uint
	logger   zerolog.Logger
}

type clerkUser struct {
	ID        string  `json:"id"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	ImageURL  *string `json:"image_url"`
}

// NewClerkResolver constructs a resolver.
func NewClerkResolver(cfg ClerkConfig) (*ClerkResolver, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, fmt.Errorf("clerk secret key is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.clerk.com/v1"
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	maxTries := cfg.MaxTries
	if maxTries == 0 {
		maxTries = 3
	}

	return &ClerkResolver{
		baseURL:  baseURL,
		secret:   cfg.SecretKey,
		client:   client,
		maxTries: maxTries,
		logger:   cfg.Logger.With().Str("component", "clerk_resolver").Logger(),
	}, nil
}

// Resolve returns the user or ErrUserNotFound. Transient provider failures are retried.
func (r *ClerkResolver) Resolve(ctx context.Context, userID string) (User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return User{}, ErrUserNotFound
	}

	endpoint := fmt.Sprintf("%s/users/%s", r.baseURL, url.PathEscape(userID))

	payload, err := backoff.Retry(ctx, func() (clerkUser, error) {
		return r.fetch(ctx, endpoint)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(r.maxTries),
	)
	if err != nil {
		return User{}, err
	}

	user := User{ID: payload.ID, ImageURL: payload.ImageURL}
	if payload.FirstName != nil {
		user.FirstName = *payload.FirstName
	}
	if payload.LastName != nil {
		user.LastName = *payload.LastName
	}
	if user.ID == "" {
		user.ID = userID
	}
	return user, nil
}

func (r *ClerkResolver) fetch(ctx context.Context, endpoint string) (clerkUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return clerkUser{}, backoff.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+r.secret)
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return clerkUser{}, backoff.Permanent(ctx.Err())
		}
		r.logger.Warn().Err(err).Msg("clerk request failed")
		return clerkUser{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return clerkUser{}, backoff.Permanent(ErrUserNotFound)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return clerkUser{}, fmt.Errorf("clerk responded with status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return clerkUser{}, backoff.Permanent(fmt.Errorf("clerk responded with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var user clerkUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return clerkUser{}, backoff.Permanent(fmt.Errorf("decode clerk user: %w", err))
	}
	return user, nil
}
