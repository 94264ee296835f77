// Package backend is the HTTP client for the external inference backend
// (an Ollama-compatible server). It issues generation calls for a named
// model and surfaces results as an ordered sequence of chunks.
package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"modelvault/pkg/types"
)

// Client communicates with the inference backend over HTTP. All requests
// carry context-based deadlines; the http.Client timeout stays 0 so that
// long-lived streaming reads are governed by the per-request deadline only.
type Client struct {
	baseURL    string
	httpClient *http.Client
	reqTimeout time.Duration
	log        zerolog.Logger
}

// New builds a Client for baseURL. reqTimeout bounds a whole generation call
// including time to first chunk; 0 disables the client-side deadline.
func New(baseURL string, reqTimeout time.Duration, log zerolog.Logger) *Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Transport: tr, Timeout: 0},
		reqTimeout: reqTimeout,
		log:        log,
	}
}

// generateRequest is the JSON body for POST /api/generate.
type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"`
	Stream bool     `json:"stream"`
}

// generateLine is one NDJSON line of the streamed generate response.
type generateLine struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Generate runs one generation call for model and delivers chunks to onChunk
// in arrival order with indices 0..n-1; exactly the last chunk has Done set.
// When req.Stream is false the full response is buffered and delivered as a
// single final chunk. The backend call always streams natively so that
// cancellation takes effect promptly.
//
// Failure taxonomy: an unreachable backend yields an unavailable error, a
// deadline before the first chunk yields a timeout error, and any failure
// after chunks were delivered yields a *StreamInterruptedError carrying the
// delivered count.
func (c *Client) Generate(ctx context.Context, model string, req types.GenerateRequest, onChunk func(types.GenerationChunk) error) error {
	if c.reqTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.reqTimeout)
		defer cancel()
	}

	payload := generateRequest{
		Model:  model,
		Prompt: req.Text,
		Stream: true,
	}
	if len(req.Image) > 0 {
		payload.Images = []string{base64.StdEncoding.EncodeToString(req.Image)}
	}
	body, _ := json.Marshal(payload)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return timeoutError{model: model, cause: err}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return unavailableError{cause: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return remoteError{status: resp.Status, body: strings.TrimSpace(string(b))}
	}

	delivered := 0
	emit := func(ch types.GenerationChunk) error {
		if err := onChunk(ch); err != nil {
			return err
		}
		delivered++
		return nil
	}
	var buffered strings.Builder

	dec := json.NewDecoder(resp.Body)
	index := 0
	for {
		var line generateLine
		if err := dec.Decode(&line); err != nil {
			if errors.Is(err, io.EOF) {
				// Stream ended without a done marker.
				err = io.ErrUnexpectedEOF
			}
			return c.streamFailure(ctx, model, delivered, err)
		}
		if line.Error != "" {
			if delivered == 0 {
				return remoteError{status: "stream error", body: line.Error}
			}
			return c.streamFailure(ctx, model, delivered, errors.New(line.Error))
		}
		if line.Done {
			if !req.Stream {
				return emit(types.GenerationChunk{Index: 0, Text: buffered.String() + line.Response, Done: true})
			}
			return emit(types.GenerationChunk{Index: index, Text: line.Response, Done: true})
		}
		if !req.Stream {
			buffered.WriteString(line.Response)
			continue
		}
		if err := emit(types.GenerationChunk{Index: index, Text: line.Response}); err != nil {
			return err
		}
		index++
	}
}

// streamFailure translates a mid-call failure into the error taxonomy based
// on how far the stream got.
func (c *Client) streamFailure(ctx context.Context, model string, delivered int, cause error) error {
	if delivered > 0 {
		c.log.Warn().Str("model", model).Int("chunks_delivered", delivered).Err(cause).
			Msg("generation stream interrupted")
		return &StreamInterruptedError{Delivered: delivered, Cause: cause}
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(cause, context.DeadlineExceeded) {
		return timeoutError{model: model, cause: cause}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return unavailableError{cause: cause}
}

// tagsResponse mirrors the JSON returned by GET /api/tags.
type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels returns the names of all models available on the backend.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, unavailableError{cause: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, remoteError{status: resp.Status}
	}
	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decoding model list: %w", err)
	}
	names := make([]string, len(tags.Models))
	for i, m := range tags.Models {
		names[i] = m.Name
	}
	return names, nil
}

// HasModel reports whether the given model name is present on the backend.
// Names may come back tagged ("llava-phi3:latest"), so a bare name matches
// any tag.
func (c *Client) HasModel(ctx context.Context, name string) bool {
	models, err := c.ListModels(ctx)
	if err != nil {
		return false
	}
	for _, m := range models {
		if m == name || strings.HasPrefix(m, name+":") {
			return true
		}
	}
	return false
}

// Ping returns true if the backend responds to GET /api/tags with 200.
func (c *Client) Ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
