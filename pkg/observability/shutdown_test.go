package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestShutdownManager_ReverseOrder(t *testing.T) {
	sm := NewShutdownManager(NewLogger(ErrorLevel, io.Discard), time.Second)

	var order []string
	for _, name := range []string{"database", "redis", "otel"} {
		name := name
		sm.RegisterShutdownFunc(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	if err := sm.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	want := []string{"otel", "redis", "database"}
	if len(order) != len(want) {
		t.Fatalf("Expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Step %d: expected %s, got %s", i, want[i], order[i])
		}
	}
}

func TestShutdownManager_JoinsErrors(t *testing.T) {
	sm := NewShutdownManager(NewLogger(ErrorLevel, io.Discard), 0)
	errA := errors.New("a failed")

	ran := false
	sm.RegisterShutdownFunc("first", func(context.Context) error {
		ran = true
		return nil
	})
	sm.RegisterShutdownFunc("second", func(context.Context) error { return errA })

	err := sm.Shutdown(context.Background())
	if !errors.Is(err, errA) {
		t.Errorf("Expected joined error to wrap errA, got %v", err)
	}
	if !ran {
		t.Error("Expected later steps to run after a failure")
	}
}

func TestShutdownManager_StopsServers(t *testing.T) {
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Start()
	defer srv.Close()

	sm := NewShutdownManager(NewLogger(ErrorLevel, io.Discard), time.Second)
	sm.RegisterServer("api", srv.Config)

	if err := sm.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	if _, err := http.Get(srv.URL); err == nil {
		t.Error("Expected request to fail after shutdown")
	}
}

func TestPanicError(t *testing.T) {
	if PanicError(nil) != nil {
		t.Error("Expected nil for nil value")
	}
	cause := errors.New("bad")
	if err := PanicError(cause); !errors.Is(err, cause) {
		t.Errorf("Expected wrapped cause, got %v", err)
	}
	if err := PanicError("oops"); err == nil || err.Error() != "panic: oops" {
		t.Errorf("Unexpected error %v", err)
	}
}

func TestRecoverPanic(t *testing.T) {
	logger := NewLogger(ErrorLevel, io.Discard)
	func() {
		defer RecoverPanic(logger, "test")
		panic("boom")
	}()
}
