package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the generative-language models endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	// DefaultModel is the model used when none is configured.
	DefaultModel = "gemini-2.0-flash"

	maxResponseBytes = 4 << 20
)

// Generator produces text for a prompt. Client is the production
// implementation; tests substitute fakes.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ClientOptions configures a Client.
type ClientOptions struct {
	BaseURL string
	Model   string
	// APIKey is required. It is sent as the "key" query parameter and never logged.
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client calls the remote generateContent endpoint.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	logger   *slog.Logger
}

// NewClient validates opts and returns a Client.
func NewClient(opts ClientOptions) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.HTTPClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		opts.HTTPClient = &http.Client{Timeout: timeout}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		endpoint: strings.TrimRight(opts.BaseURL, "/") + "/" + opts.Model + ":generateContent",
		apiKey:   opts.APIKey,
		http:     opts.HTTPClient,
		logger:   opts.Logger,
	}, nil
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content *content `json:"content"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate issues exactly one request and returns the first candidate's text
// as sent by the assistant (fences included).
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	u := c.endpoint + "?" + url.Values{"key": {c.apiKey}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		// url.Error embeds the request URL, which carries the key.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return "", &RemoteAPIError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &RemoteAPIError{StatusCode: resp.StatusCode, Message: "reading response", Err: err}
	}
	c.logger.Debug("assistant responded", "status", resp.StatusCode, "bytes", len(raw), "elapsed", time.Since(start))

	var data generateResponse
	decodeErr := json.Unmarshal(raw, &data)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := http.StatusText(resp.StatusCode)
		if decodeErr == nil && data.Error != nil && data.Error.Message != "" {
			msg = data.Error.Message
		}
		return "", &RemoteAPIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, decodeErr)
	}
	if data.PromptFeedback != nil && data.PromptFeedback.BlockReason != "" {
		return "", &ContentBlockedError{Reason: data.PromptFeedback.BlockReason}
	}
	if len(data.Candidates) == 0 || data.Candidates[0].Content == nil ||
		len(data.Candidates[0].Content.Parts) == 0 || data.Candidates[0].Content.Parts[0].Text == "" {
		return "", ErrMalformedResponse
	}
	return data.Candidates[0].Content.Parts[0].Text, nil
}
