package shipper

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPush_Success(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusNoContent} {
		var gotBody string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			gotBody = string(b)
			w.WriteHeader(status)
		}))

		s := New(srv.URL, 5*time.Second)
		if err := s.Push(context.Background(), "up 1 1756400000\n"); err != nil {
			t.Errorf("Push() with sink status %d: %v", status, err)
		}
		if gotBody != "up 1 1756400000\n" {
			t.Errorf("sink received %q", gotBody)
		}
		srv.Close()
	}
}

func TestPush_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "ingestion disabled", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := New(srv.URL, 5*time.Second)
	err := s.Push(context.Background(), "up 1\n")
	if err == nil {
		t.Fatal("Push() succeeded on 500")
	}

	var rejected *StatusError
	if !errors.As(err, &rejected) {
		t.Fatalf("error %v is not a *StatusError", err)
	}
	if rejected.Status != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", rejected.Status)
	}
	if rejected.Body != "ingestion disabled" {
		t.Errorf("Body = %q", rejected.Body)
	}
}

func TestPush_AcceptedButOddStatus_IsRejection(t *testing.T) {
	// 202 looks friendly but is not one of the two success codes.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := New(srv.URL, 5*time.Second)
	var rejected *StatusError
	if err := s.Push(context.Background(), "up 1\n"); !errors.As(err, &rejected) {
		t.Fatalf("Push() on 202 = %v, want *StatusError", err)
	}
}

func TestPush_Unreachable_NotAStatusError(t *testing.T) {
	s := New("http://127.0.0.1:1", time.Second)
	err := s.Push(context.Background(), "up 1\n")
	if err == nil {
		t.Fatal("Push() succeeded against an unreachable sink")
	}
	var rejected *StatusError
	if errors.As(err, &rejected) {
		t.Error("transport failure classified as a sink rejection")
	}
}
