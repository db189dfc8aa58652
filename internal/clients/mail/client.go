package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lukyamuziB/lenken-backend/internal/logger"
)

// Message is one transactional mail. Template names the dynamic template to
// render on the provider side; Data feeds its substitutions.
type Message struct {
	To       []string
	Subject  string
	Template string
	Data     map[string]interface{}
}

type Client interface {
	Send(ctx context.Context, msg Message) error
}

type Config struct {
	APIKey     string
	BaseURL    string
	FromEmail  string
	FromName   string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:     strings.TrimSpace(os.Getenv("SENDGRID_API_KEY")),
		BaseURL:    strings.TrimSpace(os.Getenv("SENDGRID_BASE_URL")),
		FromEmail:  strings.TrimSpace(os.Getenv("SENDGRID_FROM_EMAIL")),
		FromName:   strings.TrimSpace(os.Getenv("SENDGRID_FROM_NAME")),
		Timeout:    30 * time.Second,
		MaxRetries: 3,
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing SENDGRID_API_KEY")
	}
	if cfg.FromEmail == "" {
		return nil, fmt.Errorf("missing SENDGRID_FROM_EMAIL")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.sendgrid.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &client{
		log:  log.With("client", "MailClient"),
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log  *logger.Logger
	cfg  Config
	http *http.Client
}

type personalization struct {
	To           []address              `json:"to"`
	DynamicData  map[string]interface{} `json:"dynamic_template_data,omitempty"`
	Substitution map[string]string      `json:"substitutions,omitempty"`
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject,omitempty"`
	Content          []content         `json:"content,omitempty"`
	Categories       []string          `json:"categories,omitempty"`
}

func (c *client) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("mail: no recipients")
	}
	to := make([]address, 0, len(msg.To))
	for _, email := range msg.To {
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}
		to = append(to, address{Email: email})
	}
	if len(to) == 0 {
		return fmt.Errorf("mail: no valid recipients")
	}

	data := msg.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	payload := sendRequest{
		Personalizations: []personalization{{To: to, DynamicData: data}},
		From:             address{Email: c.cfg.FromEmail, Name: c.cfg.FromName},
		Subject:          msg.Subject,
		Categories:       []string{msg.Template},
	}
	if msg.Subject != "" {
		// Plain fallback body when no provider-side template renders.
		payload.Content = []content{{Type: "text/plain", Value: msg.Subject}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("mail: marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}
		lastErr = c.post(ctx, body)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
		c.log.Warn("Mail send retrying", "attempt", attempt+1, "error", lastErr)
	}
	return lastErr
}

type httpError struct {
	status int
	body   string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("mail: provider returned %d: %s", e.status, e.body)
}

func retryable(err error) bool {
	if he, ok := err.(*httpError); ok {
		return he.status == http.StatusTooManyRequests || he.status >= 500
	}
	return true
}

func (c *client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("mail: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mail: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &httpError{status: resp.StatusCode, body: strings.TrimSpace(string(raw))}
}
