package daemon

import (
	"context"
	"testing"
	"time"

	"quickscribe/internal/testsupport"
)

func TestSecondInstanceRefused(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = "127.0.0.1:0"

	first, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("first instance: %v", err)
	}
	defer first.cleanup()

	if _, err := New(cfg, nil); err == nil {
		t.Fatal("expected second instance to be refused")
	}
}

func TestStatusReportsCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = "127.0.0.1:0"

	d, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	defer d.cleanup()

	status, err := d.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Running || status.PID == 0 {
		t.Errorf("status = %+v", status)
	}
	if status.JobDBPath == "" || status.LockFilePath == "" {
		t.Errorf("paths missing: %+v", status)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = "127.0.0.1:0"

	d, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
}
