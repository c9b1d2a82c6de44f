package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/nao1215/metahunter/internal/model"
)

// Summarizer produces a free-text commentary on a risk summary.
type Summarizer interface {
	Comment(ctx context.Context, summary model.RiskSummary) (string, error)
}

// Disabled never comments.
type Disabled struct{}

// Comment returns an empty comment.
func (Disabled) Comment(context.Context, model.RiskSummary) (string, error) {
	return "", nil
}

// Defaults for RemoteModel.
const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.4
	DefaultTimeout     = 60 * time.Second

	// maxResponseSize caps how much of the endpoint's answer is read.
	maxResponseSize = 1 << 20
)

// SystemPrompt frames the remote model's answer.
const SystemPrompt = "You are a cybersecurity analyst specialized in document and image metadata."

// RemoteModel calls an OpenAI-compatible chat completions endpoint.
type RemoteModel struct {
	Endpoint    string
	APIKey      string
	Model       string
	Temperature float64

	client *http.Client
	logger *slog.Logger
}

// RemoteOption configures a RemoteModel.
type RemoteOption func(*RemoteModel)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(m *RemoteModel) {
		if c != nil {
			m.client = c
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) RemoteOption {
	return func(m *RemoteModel) {
		if d > 0 {
			m.client = &http.Client{Timeout: d}
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) RemoteOption {
	return func(m *RemoteModel) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewRemoteModel returns a RemoteModel. An empty apiKey is reported as
// ErrNoCredentials; an empty model falls back to DefaultModel.
func NewRemoteModel(endpoint, apiKey, modelName string, opts ...RemoteOption) (*RemoteModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNoCredentials
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	m := &RemoteModel{
		Endpoint:    endpoint,
		APIKey:      apiKey,
		Model:       modelName,
		Temperature: DefaultTemperature,
		client:      &http.Client{Timeout: DefaultTimeout},
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// NewRemoteModelFromEnv reads the API key from the environment variable
// named apiKeyEnv.
func NewRemoteModelFromEnv(endpoint, apiKeyEnv, modelName string, opts ...RemoteOption) (*RemoteModel, error) {
	m, err := NewRemoteModel(endpoint, os.Getenv(apiKeyEnv), modelName, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: $%s is not set", err, apiKeyEnv)
	}
	return m, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Comment asks the endpoint for a short commentary on summary.
func (m *RemoteModel) Comment(ctx context.Context, summary model.RiskSummary) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: m.Model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: BuildPrompt(summary)},
		},
		Temperature: m.Temperature,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build summarizer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.APIKey)

	m.logger.Debug("requesting summary comment", "endpoint", m.Endpoint, "model", m.Model)
	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("summarizer request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("failed to read summarizer response: %w", err)
	}

	var parsed chatResponse
	decodeErr := json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := http.StatusText(resp.StatusCode)
		if decodeErr == nil && parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return "", fmt.Errorf("%w: %d %s", ErrRemoteStatus, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("failed to decode summarizer response: %w", decodeErr)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// BuildPrompt renders the user prompt sent for summary.
func BuildPrompt(summary model.RiskSummary) string {
	var b strings.Builder
	b.WriteString("You are a cybersecurity analyst. Here is a summary of a metadata analysis:\n\n")
	fmt.Fprintf(&b, "- Files analyzed: %d\n", summary.TotalFiles)
	fmt.Fprintf(&b, "- HIGH risk: %d\n", summary.RiskHigh)
	fmt.Fprintf(&b, "- MEDIUM risk: %d\n", summary.RiskMedium)
	fmt.Fprintf(&b, "- LOW risk: %d\n", summary.RiskLow)
	fmt.Fprintf(&b, "- Files detected as AI generated: %d\n", summary.AIGeneratedCount)
	fmt.Fprintf(&b, "- Distribution by extension: %s\n\n", formatExtensions(summary.ByExtension))
	b.WriteString("Write a short comment (2-3 paragraphs) explaining:\n")
	b.WriteString("1) What this result means for the organization's security.\n")
	b.WriteString("2) Which file types should be reviewed first.\n")
	b.WriteString("3) One concrete recommendation for the next step.\n")
	return b.String()
}

func formatExtensions(byExt map[string]int) string {
	keys := make([]string, 0, len(byExt))
	for k := range byExt {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		name := k
		if name == "" {
			name = "(no extension)"
		}
		parts = append(parts, fmt.Sprintf("%s=%d", name, byExt[k]))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}
