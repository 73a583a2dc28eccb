package token

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// expiryLayouts are the accepted formats for the validation endpoint's
// expiration field, tried in order.
var expiryLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// Manager owns the lifecycle of the persisted bearer token: it
// validates the stored credential against the token service, renews it
// when its remaining lifetime drops below the renew window, and
// persists renewals atomically. Any failure is fatal for the run —
// there is no fallback to a stale token, since it would fail
// downstream anyway and masking that here would hide the real cause.
type Manager struct {
	StorePath   string
	ValidateURL string
	RenewURL    string
	RenewWithin time.Duration
	Client      *http.Client

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// Ensure returns a token that is valid for at least the renew window,
// renewing and persisting first when necessary. The returned token is
// never expired; an expired credential that cannot be renewed is an
// error, raised before any scrape is attempted.
func (m *Manager) Ensure(ctx context.Context) (Token, error) {
	now := m.clock()

	tok, err := ReadFile(m.StorePath)
	if err != nil {
		return Token{}, err
	}

	expiry, err := m.validate(ctx, tok.ID)
	if err != nil {
		return Token{}, err
	}
	tok.Expiry = expiry

	if tok.Remaining(now) < m.RenewWithin {
		slog.Info("token: renewing",
			"id", tok.ID, "remaining", tok.Remaining(now).Round(time.Second))

		renewed, err := m.renew(ctx, tok.Value)
		if err != nil {
			return Token{}, err
		}
		if err := WriteFile(m.StorePath, renewed); err != nil {
			return Token{}, err
		}

		// The renewal response carries no expiry; validate the new id
		// so the returned token reflects its real lifetime.
		expiry, err := m.validate(ctx, renewed.ID)
		if err != nil {
			return Token{}, err
		}
		renewed.Expiry = expiry
		if err := WriteFile(m.StorePath, renewed); err != nil {
			return Token{}, err
		}
		tok = renewed

		slog.Info("token: renewed and persisted", "id", tok.ID, "expiry", tok.Expiry)
	}

	if tok.Expired(m.clock()) {
		return Token{}, fmt.Errorf("token: credential %q expired at %s and could not be refreshed",
			tok.ID, tok.Expiry.Format(time.RFC3339))
	}
	return tok, nil
}

// validate queries the validation endpoint for the given token id and
// returns the server-side expiration time.
func (m *Manager) validate(ctx context.Context, id string) (time.Time, error) {
	u := m.ValidateURL + "?id=" + url.QueryEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("token: build validate request: %w", err)
	}

	resp, err := m.Client.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("token: validate %q: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("token: validate %q: unexpected status %d", id, resp.StatusCode)
	}

	var body struct {
		Expiration string `json:"expiration"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return time.Time{}, fmt.Errorf("token: validate %q: decode response: %w", id, err)
	}
	if body.Expiration == "" {
		return time.Time{}, fmt.Errorf("token: validate %q: response has no expiration field", id)
	}

	expiry, err := parseExpiry(body.Expiration)
	if err != nil {
		return time.Time{}, fmt.Errorf("token: validate %q: %w", id, err)
	}
	return expiry, nil
}

// renew exchanges the current token string for a fresh credential.
func (m *Manager) renew(ctx context.Context, current string) (Token, error) {
	payload, err := json.Marshal(map[string]string{"token_string": current})
	if err != nil {
		return Token{}, fmt.Errorf("token: marshal renew request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.RenewURL, bytes.NewReader(payload))
	if err != nil {
		return Token{}, fmt.Errorf("token: build renew request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.Client.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("token: renew: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return Token{}, fmt.Errorf("token: renew rejected with status %d: %s",
			resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var body struct {
		Value string `json:"token_string"`
		ID    string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Token{}, fmt.Errorf("token: renew: decode response: %w", err)
	}
	if body.Value == "" || body.ID == "" {
		return Token{}, fmt.Errorf("token: renew: response missing token_string or id")
	}

	return Token{Value: body.Value, ID: body.ID}, nil
}

func (m *Manager) clock() time.Time {
	if m.now != nil {
		return m.now()
	}
	return time.Now()
}

// parseExpiry tries each accepted expiry layout in order.
func parseExpiry(s string) (time.Time, error) {
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable expiration %q", s)
}
