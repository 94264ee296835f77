package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"modelvault/pkg/types"
)

func testLogger() zerolog.Logger { return zerolog.Nop() }

// fakeBackend serves /api/generate with the given NDJSON lines and /api/tags
// with the given model names.
func fakeBackend(t *testing.T, models []string, lines []string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		type entry struct {
			Name string `json:"name"`
		}
		var out struct {
			Models []entry `json:"models"`
		}
		for _, m := range models {
			out.Models = append(out.Models, entry{Name: m})
		}
		json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		f, _ := w.(http.Flusher)
		for _, line := range lines {
			fmt.Fprintln(w, line)
			if f != nil {
				f.Flush()
			}
		}
	})
	return httptest.NewServer(mux)
}

func collectChunks(ch *[]types.GenerationChunk) func(types.GenerationChunk) error {
	return func(c types.GenerationChunk) error {
		*ch = append(*ch, c)
		return nil
	}
}

func TestGenerateStreamsOrderedChunks(t *testing.T) {
	srv := fakeBackend(t, nil, []string{
		`{"response":"Hello"}`,
		`{"response":", "}`,
		`{"response":"world"}`,
		`{"response":"","done":true}`,
	})
	defer srv.Close()
	c := New(srv.URL, time.Second, testLogger())

	var chunks []types.GenerationChunk
	err := c.Generate(context.Background(), "m", types.GenerateRequest{Text: "hi", Stream: true}, collectChunks(&chunks))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(chunks) != 4 {
		t.Fatalf("chunks=%d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Index != i {
			t.Fatalf("chunk %d has index %d", i, ch.Index)
		}
		if ch.Done != (i == len(chunks)-1) {
			t.Fatalf("chunk %d done=%v", i, ch.Done)
		}
	}
}

func TestGenerateBuffersWhenNotStreaming(t *testing.T) {
	srv := fakeBackend(t, nil, []string{
		`{"response":"Hello"}`,
		`{"response":" world"}`,
		`{"response":"","done":true}`,
	})
	defer srv.Close()
	c := New(srv.URL, time.Second, testLogger())

	var chunks []types.GenerationChunk
	err := c.Generate(context.Background(), "m", types.GenerateRequest{Text: "hi"}, collectChunks(&chunks))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("chunks=%d, want single buffered chunk", len(chunks))
	}
	if chunks[0].Text != "Hello world" || !chunks[0].Done || chunks[0].Index != 0 {
		t.Fatalf("unexpected chunk: %+v", chunks[0])
	}
}

func TestGenerateUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close() // nothing listening anymore

	c := New(url, time.Second, testLogger())
	err := c.Generate(context.Background(), "m", types.GenerateRequest{Text: "hi", Stream: true}, collectChunks(&[]types.GenerationChunk{}))
	if !IsUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestGenerateTimeoutBeforeFirstChunk(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body) // drain so the server notices client disconnect
		<-r.Context().Done()
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, 50*time.Millisecond, testLogger())
	err := c.Generate(context.Background(), "m", types.GenerateRequest{Text: "hi", Stream: true}, collectChunks(&[]types.GenerationChunk{}))
	if !IsTimeout(err) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestGenerateInterruptedMidStream(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		f := w.(http.Flusher)
		fmt.Fprintln(w, `{"response":"one"}`)
		f.Flush()
		fmt.Fprintln(w, `{"response":"two"}`)
		f.Flush()
		// Connection closes without a done marker.
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, time.Second, testLogger())
	var chunks []types.GenerationChunk
	err := c.Generate(context.Background(), "m", types.GenerateRequest{Text: "hi", Stream: true}, collectChunks(&chunks))
	var si *StreamInterruptedError
	if !errors.As(err, &si) {
		t.Fatalf("expected stream interrupted, got %v", err)
	}
	if si.Delivered != 2 {
		t.Fatalf("delivered=%d, want 2", si.Delivered)
	}
	// Already-delivered chunks stand.
	if len(chunks) != 2 || chunks[0].Text != "one" || chunks[1].Text != "two" {
		t.Fatalf("unexpected chunks: %+v", chunks)
	}
}

func TestGenerateCancelMidStream(t *testing.T) {
	handlerDone := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body) // drain so the server notices client disconnect
		f := w.(http.Flusher)
		fmt.Fprintln(w, `{"response":"one"}`)
		f.Flush()
		// Hold the stream open until the caller goes away.
		<-r.Context().Done()
		close(handlerDone)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, 0, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var chunks []types.GenerationChunk
	err := c.Generate(ctx, "m", types.GenerateRequest{Text: "hi", Stream: true}, func(ch types.GenerationChunk) error {
		chunks = append(chunks, ch)
		cancel() // caller walks away after the first chunk
		return nil
	})
	var si *StreamInterruptedError
	if !errors.As(err, &si) {
		t.Fatalf("expected stream interrupted, got %v", err)
	}
	if si.Delivered != 1 {
		t.Fatalf("delivered=%d, want 1", si.Delivered)
	}
	// Cancellation must reach the backend: the in-flight call is torn down
	// rather than left running unconsumed.
	select {
	case <-handlerDone:
	case <-time.After(2 * time.Second):
		t.Fatalf("backend call not canceled")
	}
	if len(chunks) != 1 || chunks[0].Text != "one" {
		t.Fatalf("unexpected chunks: %+v", chunks)
	}
}

func TestGenerateBackendErrorLine(t *testing.T) {
	srv := fakeBackend(t, nil, []string{`{"error":"model not loaded"}`})
	defer srv.Close()

	c := New(srv.URL, time.Second, testLogger())
	err := c.Generate(context.Background(), "m", types.GenerateRequest{Text: "hi", Stream: true}, collectChunks(&[]types.GenerationChunk{}))
	if !IsRemote(err) {
		t.Fatalf("expected remote backend error, got %v", err)
	}
}

func TestGenerateSendsImagePayload(t *testing.T) {
	var got generateRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprintln(w, `{"response":"a cat","done":true}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, time.Second, testLogger())
	req := types.GenerateRequest{Text: "describe", Image: []byte{1, 2, 3}, Stream: true}
	if err := c.Generate(context.Background(), "llava", req, collectChunks(&[]types.GenerationChunk{})); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got.Model != "llava" || len(got.Images) != 1 || got.Images[0] == "" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if !got.Stream {
		t.Fatalf("backend call should always stream natively")
	}
}

func TestListModelsAndHasModel(t *testing.T) {
	srv := fakeBackend(t, []string{"llama3.2:3b", "llava-phi3:latest"}, nil)
	defer srv.Close()
	c := New(srv.URL, time.Second, testLogger())

	names, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("list models: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("models=%v", names)
	}
	if !c.HasModel(context.Background(), "llava-phi3") {
		t.Fatalf("bare name should match tagged model")
	}
	if c.HasModel(context.Background(), "mistral") {
		t.Fatalf("unexpected model present")
	}
}

func TestPing(t *testing.T) {
	srv := fakeBackend(t, nil, nil)
	c := New(srv.URL, time.Second, testLogger())
	if !c.Ping(context.Background()) {
		t.Fatalf("ping should succeed against live server")
	}
	srv.Close()
	if c.Ping(context.Background()) {
		t.Fatalf("ping should fail after server close")
	}
}
