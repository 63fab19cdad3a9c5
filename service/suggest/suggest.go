// Package suggest asks a Mistral agent for catalog naming ideas. The agent
// receives the shop's name and the names already taken, and answers with a
// single suggestion as a JSON object.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/domain"
)

const (
	defaultBaseURL = "https://api.mistral.ai"
	completionPath = "/v1/agents/completions"
	defaultTimeout = 20 * time.Second

	maxErrorBody = 512
)

// Config selects the agents and credentials for suggestion calls.
type Config struct {
	APIKey           string `yaml:"api_key" envconfig:"MISTRAL_API_KEY"`
	CategoryAgent    string `yaml:"category_agent" envconfig:"MISTRAL_CATEGORY_AGENT"`
	SubcategoryAgent string `yaml:"subcategory_agent" envconfig:"MISTRAL_SUBCATEGORY_AGENT"`
	BaseURL          string `yaml:"base_url" envconfig:"MISTRAL_BASE_URL"`
}

// Enabled reports whether suggestion calls are configured at all.
func (c Config) Enabled() bool { return c.APIKey != "" && c.CategoryAgent != "" }

// Client calls the agent completions endpoint.
type Client struct {
	cfg  Config
	http *http.Client
}

// New builds a suggestion client. httpClient nil means a default client with
// a request timeout.
func New(cfg Config, httpClient *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{cfg: cfg, http: httpClient}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	AgentID  string        `json:"agent_id"`
	Messages []chatMessage `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// agentAnswer is the JSON object the agent embeds in its message content.
type agentAnswer struct {
	Category     string `json:"category"`
	ErrorMessage string `json:"error_message"`
}

// CategoryName suggests a new top-level category for a shop, given the
// names already in use.
func (c *Client) CategoryName(ctx context.Context, shopName string, taken []string) (string, error) {
	payload := map[string]any{
		"shop_name":  shopName,
		"categories": taken,
	}
	return c.ask(ctx, c.cfg.CategoryAgent, payload)
}

// SubcategoryName suggests a child category under a parent.
func (c *Client) SubcategoryName(ctx context.Context, shopName, parent string, taken []string) (string, error) {
	agent := c.cfg.SubcategoryAgent
	if agent == "" {
		agent = c.cfg.CategoryAgent
	}
	payload := map[string]any{
		"shop_name":       shopName,
		"parent_category": parent,
		"subcategories":   taken,
	}
	return c.ask(ctx, agent, payload)
}

func (c *Client) ask(ctx context.Context, agentID string, payload map[string]any) (string, error) {
	if c.cfg.APIKey == "" || agentID == "" {
		return "", domain.Invalid("suggest", "not configured")
	}

	content, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(completionRequest{
		AgentID:  agentID,
		Messages: []chatMessage{{Role: "user", Content: string(content)}},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+completionPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", domain.WrapTransient("suggest.request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		logger.Warn(ctx, "suggest", "request.fail",
			slog.Int("status", resp.StatusCode),
		)
		return "", domain.WrapTransient("suggest.request",
			fmt.Errorf("agent API status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", domain.WrapTransient("suggest.decode", err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", domain.WrapTransient("suggest.decode", fmt.Errorf("empty completion"))
	}

	var answer agentAnswer
	if err := json.Unmarshal([]byte(out.Choices[0].Message.Content), &answer); err != nil {
		return "", domain.WrapTransient("suggest.parse", err)
	}
	if answer.ErrorMessage != "" {
		return "", domain.Invalid("suggest", answer.ErrorMessage)
	}
	name := strings.TrimSpace(answer.Category)
	if name == "" {
		return "", domain.WrapTransient("suggest.parse", fmt.Errorf("agent returned no name"))
	}

	logger.Debug(ctx, "suggest", "request.ok")
	return name, nil
}
