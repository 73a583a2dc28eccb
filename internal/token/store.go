package token

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Token is one persisted bearer credential.
type Token struct {
	// Value is the bearer string presented to the metrics source.
	Value string `json:"token_string"`

	// ID identifies the token at the validation endpoint.
	ID string `json:"id"`

	// Expiry is the server-side expiration time, refreshed on every
	// successful validation.
	Expiry time.Time `json:"expiration"`
}

// Remaining returns the token lifetime left at now.
func (t Token) Remaining(now time.Time) time.Duration {
	return t.Expiry.Sub(now)
}

// Expired reports whether the token is past its expiry at now.
func (t Token) Expired(now time.Time) bool {
	return !t.Expiry.After(now)
}

// ReadFile loads a persisted token from path.
func ReadFile(path string) (Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Token{}, fmt.Errorf("token: read store: %w", err)
	}
	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return Token{}, fmt.Errorf("token: parse store %q: %w", path, err)
	}
	if tok.Value == "" || tok.ID == "" {
		return Token{}, fmt.Errorf("token: store %q missing token_string or id", path)
	}
	return tok, nil
}

// WriteFile persists tok to path atomically: the token is written to a
// temp file in the same directory and renamed into place, so a crash
// mid-write never corrupts the stored credential.
func WriteFile(path string, tok Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("token: marshal store: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("token: create temp store: %w", err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("token: chmod temp store: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("token: write temp store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("token: close temp store: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("token: replace store: %w", err)
	}
	return nil
}
