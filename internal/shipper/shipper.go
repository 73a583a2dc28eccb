package shipper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxRejectBody bounds how much of a rejection response is kept for
// the error message.
const maxRejectBody = 512

// StatusError reports that the sink answered but refused the corpus.
// It is distinct from a transport failure so the caller can classify
// the two differently.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("sink rejected corpus with status %d", e.Status)
	}
	return fmt.Sprintf("sink rejected corpus with status %d: %s", e.Status, e.Body)
}

// Shipper pushes the enriched corpus to the sink's bulk-import
// endpoint as one request.
type Shipper struct {
	url    string
	client *http.Client
}

// New builds a Shipper for the given sink URL.
func New(url string, timeout time.Duration) *Shipper {
	return &Shipper{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Push sends corpus as a single text body. Only 200 and 204 count as
// success; any other status is a *StatusError. No retry is attempted —
// failure aborts the run and the next scheduled invocation starts
// fresh.
func (s *Shipper) Push(ctx context.Context, corpus string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, strings.NewReader(corpus))
	if err != nil {
		return fmt.Errorf("shipper: build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("shipper: push to %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxRejectBody))
	return fmt.Errorf("shipper: %w", &StatusError{
		Status: resp.StatusCode,
		Body:   string(bytes.TrimSpace(snippet)),
	})
}
