package timetracker

import (
	"bytes"
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

// Client posts hours to the external time-tracking service. Invoked once per
// session confirmation; callers handle failure with a fallback notification,
// never a retry or rollback.
type Client interface {
	GetUserByEmail(ctx context.Context, email string) (*Account, error)
	PostEntry(ctx context.Context, entry Entry) (*Entry, error)
}

type Account struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type Entry struct {
	ID          int    `json:"id,omitempty"`
	Date        string `json:"date"`
	UserID      int    `json:"user_id"`
	Minutes     int    `json:"minutes"`
	Description string `json:"description"`
	ProjectID   int    `json:"project_id"`
}

type Config struct {
	BaseURL   string
	Token     string
	ProjectID int
	Timeout   time.Duration
}

func ConfigFromEnv(projectID int) Config {
	return Config{
		BaseURL:   strings.TrimSpace(os.Getenv("TIMETRACKER_BASE_URL")),
		Token:     strings.TrimSpace(os.Getenv("TIMETRACKER_TOKEN")),
		ProjectID: projectID,
		Timeout:   15 * time.Second,
	}
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("missing TIMETRACKER_BASE_URL")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("missing TIMETRACKER_TOKEN")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &client{
		log:  log.With("client", "TimeTrackerClient"),
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log  *logger.Logger
	cfg  Config
	http *http.Client
}

func (c *client) GetUserByEmail(ctx context.Context, email string) (*Account, error) {
	q := url.Values{}
	q.Set("email", email)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/users?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("time tracker request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("time tracker responded with status %d", resp.StatusCode)
	}

	var accounts []Account
	if err := decode(resp.Body, &accounts); err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, apperr.NotFound("time tracker account for %s not found", email)
	}
	return &accounts[0], nil
}

func (c *client) PostEntry(ctx context.Context, entry Entry) (*Entry, error) {
	if entry.ProjectID == 0 {
		entry.ProjectID = c.cfg.ProjectID
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/entries", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("time tracker request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("time tracker responded with status %d", resp.StatusCode)
	}

	var created Entry
	if err := decode(resp.Body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Accept", "application/json")
}

func decode(r io.Reader, dest interface{}) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("time tracker response decode failed: %w", err)
	}
	return nil
}
