package engine

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

	"github.com/fakeyudi/codepad/internal/language"
)

// DefaultRemoteEndpoint is the public Piston execute endpoint.
const DefaultRemoteEndpoint = "https://emkc.org/api/v2/piston/execute"

// RemoteStrategy sends code to a Piston-compatible executor.
type RemoteStrategy struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

// NewRemote returns a RemoteStrategy posting to endpoint.
func NewRemote(endpoint string, client *http.Client, logger *slog.Logger) *RemoteStrategy {
	if endpoint == "" {
		endpoint = DefaultRemoteEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RemoteStrategy{endpoint: endpoint, http: client, logger: logger}
}

type pistonFile struct {
	Content string `json:"content"`
}

type pistonRequest struct {
	Language string       `json:"language"`
	Version  string       `json:"version"`
	Files    []pistonFile `json:"files"`
	Stdin    string       `json:"stdin"`
}

type pistonResponse struct {
	Message string `json:"message"`
	Run     *struct {
		Stdout string `json:"stdout"`
		Stderr string `json:"stderr"`
		Output string `json:"output"`
		Code   *int   `json:"code"`
	} `json:"run"`
}

// For binds the strategy to lang.
func (r *RemoteStrategy) For(lang language.Language) Strategy {
	return StrategyFunc(func(ctx context.Context, source, stdin string) Result {
		res, err := r.execute(ctx, lang, source, stdin)
		if err != nil {
			r.logger.Warn("remote execution failed", "lang", lang, "err", err)
			return Result{OutputLines: []string{"Error: " + err.Error()}, IsError: true}
		}
		return res
	})
}

func (r *RemoteStrategy) execute(ctx context.Context, lang language.Language, source, stdin string) (Result, error) {
	body, err := json.Marshal(pistonRequest{
		Language: string(lang),
		Version:  lang.Version(),
		Files:    []pistonFile{{Content: source}},
		Stdin:    stdin,
	})
	if err != nil {
		return Result{}, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return Result{}, fmt.Errorf("execution service unreachable: %w", err)
	}
	defer resp.Body.Close()

	var data pistonResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&data); err != nil {
		return Result{}, fmt.Errorf("decode response (%d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := data.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return Result{}, fmt.Errorf("execution service returned %d: %s", resp.StatusCode, msg)
	}
	if data.Run == nil {
		return Result{}, errors.New("execution service response missing run")
	}

	output := strings.TrimRight(data.Run.Output, "\n")
	lines := []string{}
	if output != "" {
		lines = strings.Split(output, "\n")
	}
	return Result{OutputLines: lines, IsError: data.Run.Stderr != ""}, nil
}
