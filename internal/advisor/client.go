// Package advisor calls Gemini for academic advice and roster parsing.
// Every failure degrades to a fallback.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"unismart/internal/identity"
)

// FallbackAdvice is returned whenever advice cannot be generated.
const FallbackAdvice = "Unable to get advice right now. Please focus on attending your upcoming lectures."

var errDisabled = errors.New("advisor disabled: no api key")

// Recorder receives call outcomes.
type Recorder interface {
	RecordAdvisorCall(kind string, ok bool)
}

// Config selects the endpoint, credentials and models.
type Config struct {
	// BaseURL overrides the Gemini API endpoint; empty uses the SDK default.
	BaseURL     string
	APIKey      string
	AdviceModel string
	RosterModel string
	HTTP        *http.Client
}

// Client calls the Gemini API.
type Client struct {
	AdviceModel string
	RosterModel string
	Metrics     Recorder
	Log         *slog.Logger

	models *genai.Models
}

// New creates a client. Without an API key it makes no calls and every
// operation returns its fallback.
func New(ctx context.Context, cfg Config) (*Client, error) {
	c := &Client{
		AdviceModel: cfg.AdviceModel,
		RosterModel: cfg.RosterModel,
		Log:         slog.Default(),
	}
	if cfg.APIKey == "" {
		return c, nil
	}
	if cfg.HTTP == nil {
		cfg.HTTP = &http.Client{Timeout: 60 * time.Second} // roster parsing on the pro model is slow
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  cfg.HTTP,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	c.models = gc.Models
	return c, nil
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.models != nil
}

// Advice asks for encouraging advice for a student with the given absence
// percentage in subjects.
func (c *Client) Advice(ctx context.Context, absencePercentage int, subjects string) string {
	prompt := fmt.Sprintf("I am a student with an absence percentage of %d%% in these subjects: %s. "+
		"Give me professional academic advice to avoid disqualification and improve my performance. "+
		"Keep it encouraging and bulleted.", absencePercentage, subjects)

	text, err := c.generate(ctx, c.AdviceModel, prompt, &genai.GenerateContentConfig{
		ThinkingConfig: &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)},
	})
	c.record("advice", err)
	if err != nil {
		c.logError("advice", err)
		return FallbackAdvice
	}
	return text
}

// ParseRoster turns free text into account records. It returns nil on any
// failure.
func (c *Client) ParseRoster(ctx context.Context, rawText string) []identity.NewUser {
	prompt := "Process this raw list of names and data into a structured JSON array for university accounts.\n" +
		"Raw Data: " + rawText + "\n" +
		"Rules:\n" +
		"1. Create a unique username (English, lowercase, no spaces).\n" +
		"2. Create a professional university email (@" + identity.EmailDomain + ").\n" +
		"3. Set a temporary password.\n" +
		"4. Identify if they are likely Students or Staff if mentioned.\n" +
		"Return ONLY a JSON array of objects with keys: name, email, username, password, role (STUDENT, TA, or DOCTOR)."

	text, err := c.generate(ctx, c.RosterModel, prompt, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   rosterSchema,
	})
	if err == nil {
		var users []identity.NewUser
		if err = json.Unmarshal([]byte(text), &users); err == nil {
			c.record("roster", nil)
			return users
		}
	}
	c.record("roster", err)
	c.logError("roster", err)
	return nil
}

var rosterSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":     {Type: genai.TypeString},
			"email":    {Type: genai.TypeString},
			"username": {Type: genai.TypeString},
			"password": {Type: genai.TypeString},
			"role":     {Type: genai.TypeString},
		},
		Required: []string{"name", "email", "username", "password", "role"},
	},
}

func (c *Client) generate(ctx context.Context, model, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	if !c.Enabled() {
		return "", errDisabled
	}
	resp, err := c.models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", model, err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("gemini returned no text")
	}
	return text, nil
}

func (c *Client) record(kind string, err error) {
	if c == nil || c.Metrics == nil || errors.Is(err, errDisabled) {
		return
	}
	c.Metrics.RecordAdvisorCall(kind, err == nil)
}

func (c *Client) logError(kind string, err error) {
	if c == nil || c.Log == nil || err == nil || errors.Is(err, errDisabled) {
		return
	}
	c.Log.Warn("advisor call failed", "kind", kind, "error", err)
}
