package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wei292224644/regdoc"
)

func withTestServer(t *testing.T, handler http.HandlerFunc) *Embedder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	old := baseURL
	baseURL = srv.URL
	t.Cleanup(func() { baseURL = old })

	return New("test-key", "text-embedding-004", 4)
}

func TestEmbed(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	e := withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embedding": map[string]any{"values": []float64{0.1, 0.2, 0.3, 0.4}},
		})
	})

	vecs, err := e.Embed(context.Background(), []string{"铅限量"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vecs) != 1 || len(vecs[0]) != 4 {
		t.Fatalf("vectors = %v", vecs)
	}
	if gotPath != "/models/text-embedding-004:embedContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody["outputDimensionality"] != float64(4) {
		t.Errorf("outputDimensionality = %v", gotBody["outputDimensionality"])
	}
}

func TestEmbedOneVectorPerText(t *testing.T) {
	calls := 0
	e := withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embedding": map[string]any{"values": []float64{1, 0, 0, 0}},
		})
	})

	vecs, err := e.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 3 {
		t.Errorf("got %d vectors, want 3", len(vecs))
	}
	if calls != 3 {
		t.Errorf("server called %d times, want 3", calls)
	}
}

func TestEmbedHTTPError(t *testing.T) {
	e := withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "quota"}}`))
	})

	_, err := e.Embed(context.Background(), []string{"text"})
	var herr *regdoc.ErrHTTP
	if !errors.As(err, &herr) {
		t.Fatalf("error = %v, want ErrHTTP", err)
	}
	if herr.Status != http.StatusTooManyRequests {
		t.Errorf("status = %d", herr.Status)
	}
	if herr.RetryAfter != 7*time.Second {
		t.Errorf("retry after = %v, want 7s", herr.RetryAfter)
	}
}

func TestEmbedMissingEmbedding(t *testing.T) {
	e := withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	if _, err := e.Embed(context.Background(), []string{"text"}); err == nil {
		t.Error("Embed() accepted a response without embedding values")
	}
}

func TestParseRetryInfo(t *testing.T) {
	body := `{"error": {"details": [
		{"@type": "type.googleapis.com/google.rpc.ErrorInfo"},
		{"@type": "type.googleapis.com/google.rpc.RetryInfo", "retryDelay": "21s"}
	]}}`
	if d := parseRetryInfo(body); d != 21*time.Second {
		t.Errorf("parseRetryInfo() = %v, want 21s", d)
	}
	if d := parseRetryInfo("not json"); d != 0 {
		t.Errorf("parseRetryInfo(garbage) = %v", d)
	}
	if d := parseRetryInfo(`{"error": {"details": []}}`); d != 0 {
		t.Errorf("parseRetryInfo(no retry info) = %v", d)
	}
}
