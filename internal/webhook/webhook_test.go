package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// capture records the last request a test server received.
type capture struct {
	body        []byte
	contentType string
	auth        string
}

func server(t *testing.T, status int, c *capture) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.body, _ = io.ReadAll(r.Body)
		c.contentType = r.Header.Get("Content-Type")
		c.auth = r.Header.Get("Authorization")
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSendJSONPayload(t *testing.T) {
	var c capture
	srv := server(t, http.StatusOK, &c)

	err := Send(context.Background(), Target{URL: srv.URL}, "ignored", []byte(`{"title":"standup"}`))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if string(c.body) != `{"title":"standup"}` {
		t.Errorf("body = %q, want payload verbatim", c.body)
	}
	if c.contentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", c.contentType)
	}
}

func TestSendChatFormats(t *testing.T) {
	tests := []struct {
		format Format
		key    string
	}{
		{FormatSlack, "text"},
		{FormatDiscord, "content"},
	}
	for _, tt := range tests {
		var c capture
		srv := server(t, http.StatusNoContent, &c)
		if err := Send(context.Background(), Target{URL: srv.URL, Format: tt.format}, "standup: Starts in 15 min", nil); err != nil {
			t.Fatalf("%s: Send: %v", tt.format, err)
		}
		var got map[string]string
		if err := json.Unmarshal(c.body, &got); err != nil {
			t.Fatalf("%s: body %q: %v", tt.format, c.body, err)
		}
		if got[tt.key] != "standup: Starts in 15 min" {
			t.Errorf("%s: %s = %q", tt.format, tt.key, got[tt.key])
		}
	}
}

func TestSendExpandsHeaders(t *testing.T) {
	t.Setenv("TEST_WEBHOOK_TOKEN", "secret123")
	var c capture
	srv := server(t, http.StatusOK, &c)

	target := Target{URL: srv.URL, Headers: map[string]string{"Authorization": "Bearer $TEST_WEBHOOK_TOKEN"}}
	if err := Send(context.Background(), target, "", []byte("{}")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if c.auth != "Bearer secret123" {
		t.Errorf("Authorization = %q, want %q", c.auth, "Bearer secret123")
	}
}

func TestSendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad payload"))
	}))
	defer srv.Close()

	err := Send(context.Background(), Target{URL: srv.URL, Format: FormatSlack}, "x", nil)
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if !strings.Contains(err.Error(), "slack: webhook returned 400: bad payload") {
		t.Errorf("error = %v", err)
	}
}

func TestSendHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Send(ctx, Target{URL: "http://127.0.0.1:1"}, "", nil); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJSON, "JSON": FormatJSON, "Slack": FormatSlack, "discord": FormatDiscord} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v, want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("telegram"); err == nil {
		t.Error("ParseFormat(telegram) should fail")
	}
}

func TestReadSnippet(t *testing.T) {
	if got := readSnippet(strings.NewReader("")); got != "(empty body)" {
		t.Errorf("readSnippet(empty) = %q", got)
	}
	long := strings.Repeat("x", 300)
	if got := readSnippet(strings.NewReader(long)); got != strings.Repeat("x", 200)+"..." {
		t.Errorf("readSnippet(long) = %d bytes", len(got))
	}
}
