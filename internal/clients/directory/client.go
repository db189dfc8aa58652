package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/lukyamuziB/lenken-backend/internal/apperr"
	"github.com/lukyamuziB/lenken-backend/internal/logger"
)

// Client talks to the people directory service. The core only needs user
// resolution for notification recipients and placement lookups.
type Client interface {
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUsersByEmail(ctx context.Context, emails []string) ([]User, error)
}

type Placement struct {
	Status string `json:"status"`
	Client string `json:"client"`
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Placement Placement `json:"placement"`
}

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL: strings.TrimSpace(os.Getenv("DIRECTORY_BASE_URL")),
		Token:   strings.TrimSpace(os.Getenv("DIRECTORY_TOKEN")),
		Timeout: 15 * time.Second,
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("missing DIRECTORY_BASE_URL")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &client{
		log:  log.With("client", "DirectoryClient"),
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log  *logger.Logger
	cfg  Config
	http *http.Client
}

func (c *client) GetUserByID(ctx context.Context, id string) (*User, error) {
	var user User
	status, err := c.getJSON(ctx, "/users/"+url.PathEscape(id), nil, &user)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, apperr.NotFound("directory user %s not found", id)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("directory responded with status %d", status)
	}
	return &user, nil
}

func (c *client) GetUsersByEmail(ctx context.Context, emails []string) ([]User, error) {
	if len(emails) == 0 {
		return []User{}, nil
	}
	q := url.Values{}
	q.Set("email", strings.Join(emails, ","))

	var payload struct {
		Values []User `json:"values"`
	}
	status, err := c.getJSON(ctx, "/users", q, &payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("directory responded with status %d", status)
	}
	return payload.Values, nil
}

func (c *client) getJSON(ctx context.Context, path string, query url.Values, dest interface{}) (int, error) {
	endpoint := c.cfg.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("directory request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		body, rErr := io.ReadAll(resp.Body)
		if rErr != nil {
			return resp.StatusCode, rErr
		}
		if uErr := json.Unmarshal(body, dest); uErr != nil {
			return resp.StatusCode, fmt.Errorf("directory response decode failed: %w", uErr)
		}
	}
	return resp.StatusCode, nil
}
