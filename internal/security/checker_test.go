package security

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestInspect_PlainHTTP_Nil(t *testing.T) {
	if info := Inspect(context.Background(), "http://ha.internal:8123/api/prometheus", false); info != nil {
		t.Errorf("Inspect() on plain HTTP = %+v, want nil", info)
	}
}

func TestInspect_SelfSigned(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer srv.Close()

	info := Inspect(context.Background(), srv.URL, true)
	if info == nil {
		t.Fatal("Inspect() returned nil for an HTTPS endpoint")
	}
	if info.Status != "valid" {
		t.Errorf("Status = %q for the test server's certificate", info.Status)
	}
	if info.NotAfter.IsZero() {
		t.Error("NotAfter not populated")
	}
}

func TestInspect_Unreachable(t *testing.T) {
	info := Inspect(context.Background(), "https://127.0.0.1:1/metrics", true)
	if info == nil {
		t.Fatal("Inspect() returned nil for an unreachable HTTPS endpoint")
	}
	if info.Status != "unreachable" {
		t.Errorf("Status = %q, want unreachable", info.Status)
	}
}
