package utils

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPClient is shared by outbound calls. The timeout is deliberately short:
// link delivery must never hang on a slow collaborator.
var HTTPClient = &http.Client{
	Timeout: 5 * time.Second,
}

// Shortener shortens outbound referral URLs. Any failure degrades to the
// original URL, so callers can use the result unconditionally.
type Shortener struct {
	API    string
	Client *http.Client
}

func NewShortener(api string) *Shortener {
	return &Shortener{API: api, Client: HTTPClient}
}

// Shorten posts the URL to a clck.ru-style endpoint that answers with the
// short URL as plain text. Non-200, network errors and timeouts all fall
// back to the unshortened input.
func (s *Shortener) Shorten(ctx context.Context, longURL string) string {
	form := url.Values{"url": {longURL}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.API, strings.NewReader(form.Encode()))
	if err != nil {
		return longURL
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.Client.Do(req)
	if err != nil {
		log.Printf("[Shortener] request failed: %v", err)
		return longURL
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Shortener] unexpected status %d", resp.StatusCode)
		return longURL
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return longURL
	}
	short := strings.TrimSpace(string(body))
	if short == "" || !strings.HasPrefix(short, "http") {
		return longURL
	}
	return short
}
