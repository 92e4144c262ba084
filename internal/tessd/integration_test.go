package tessd

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/openglam/masthead/internal/testutil"
)

// TestContainerLifecycle exercises the full container lifecycle against a
// real Docker daemon. Skipped in -short mode and when Docker is absent.
func TestContainerLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping docker integration test in short mode")
	}
	testutil.DockerClient(t)

	mgr, err := NewManager(Config{
		ContainerName: testutil.UniqueContainerName(t, "tess"),
		HostPort:      testutil.FreePort(t),
		Labels:        testutil.ContainerLabels(t),
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer mgr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := mgr.WaitReady(ctx, 2*time.Minute); err != nil {
		t.Fatalf("WaitReady: %v", err)
	}

	status, err := mgr.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != StatusRunning {
		t.Fatalf("status = %s, want %s", status, StatusRunning)
	}

	// The OCR server answers its health endpoint once ready.
	resp, err := http.Get(mgr.URL() + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}

	if err := mgr.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	status, err = mgr.Status(ctx)
	if err != nil {
		t.Fatalf("Status after stop: %v", err)
	}
	if status != StatusStopped {
		t.Fatalf("status after stop = %s, want %s", status, StatusStopped)
	}
}
