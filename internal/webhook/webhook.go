// Package webhook posts reminders to HTTP endpoints: a generic JSON
// webhook or the incoming-webhook formats of Slack and Discord.
package webhook

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
)

// Client is shared by every target so an unresponsive server cannot
// stall a delivery indefinitely.
var Client = &http.Client{Timeout: 30 * time.Second}

// Format selects the request body shape.
type Format string

const (
	FormatJSON    Format = "json"    // the payload as given
	FormatSlack   Format = "slack"   // {"text": ...}
	FormatDiscord Format = "discord" // {"content": ...}
)

// ParseFormat accepts a format name in any case; empty means json.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatSlack, FormatDiscord:
		return f, nil
	}
	return "", fmt.Errorf("unknown webhook format %q (want json, slack or discord)", s)
}

// Target is one endpoint. Header values are expanded with os.ExpandEnv
// so secrets can live in the environment as $VAR.
type Target struct {
	URL     string
	Format  Format
	Headers map[string]string
}

// body renders the request body: payload verbatim for json, text wrapped
// in the chat service's message envelope otherwise.
func (t Target) body(text string, payload []byte) ([]byte, error) {
	switch t.Format {
	case FormatSlack:
		return json.Marshal(map[string]string{"text": text})
	case FormatDiscord:
		return json.Marshal(map[string]string{"content": text})
	}
	return payload, nil
}

func (t Target) name() string {
	if t.Format == "" {
		return string(FormatJSON)
	}
	return string(t.Format)
}

// Send posts to t. text is used by the chat formats, payload by json.
// Custom headers are applied after the default Content-Type so callers
// can override it.
func Send(ctx context.Context, t Target, text string, payload []byte) error {
	body, err := t.body(text, payload)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", t.name(), err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: new request: %w", t.name(), err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range t.Headers {
		req.Header.Set(k, os.ExpandEnv(v))
	}

	resp, err := Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: post: %w", t.name(), err)
	}
	defer resp.Body.Close()
	return checkStatus(resp, t.name()+": webhook")
}

// checkStatus returns an error if the response status code is not 2xx.
func checkStatus(resp *http.Response, prefix string) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned %d: %s", prefix, resp.StatusCode, readSnippet(resp.Body))
	}
	return nil
}

// readSnippet reads up to 200 bytes from r for inclusion in error messages.
func readSnippet(r io.Reader) string {
	buf := make([]byte, 200)
	n, _ := io.ReadFull(r, buf)
	if n == 0 {
		return "(empty body)"
	}
	s := string(buf[:n])
	if n == 200 {
		s += "..."
	}
	return s
}
