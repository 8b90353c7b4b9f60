package main

import (
	"errors"
	"testing"

	"murmur/internal/domain"
)

func TestRequireReady(t *testing.T) {
	t.Parallel()

	app := &App{}
	if err := app.requireReady(); err == nil {
		t.Fatalf("expected uninitialized error")
	}

	bootErr := errors.New("boot failed")
	app.bootErr = bootErr
	if err := app.requireReady(); !errors.Is(err, bootErr) {
		t.Fatalf("expected boot error, got %v", err)
	}
}

func TestGetStatusBeforeStartup(t *testing.T) {
	t.Parallel()

	app := &App{}
	if status := app.GetStatus(); status.Phase != domain.PhaseIdle {
		t.Fatalf("expected idle before startup, got %s", status.Phase)
	}

	app.bootErr = errors.New("no microphone")
	status := app.GetStatus()
	if status.Phase != domain.PhaseError || status.Message != "no microphone" {
		t.Fatalf("expected error status, got %+v", status)
	}
}

func TestGetRuntimeInfoReportsBootError(t *testing.T) {
	t.Parallel()

	app := &App{bootErr: errors.New("bad config")}
	info := app.GetRuntimeInfo()
	if info["error"] != "bad config" {
		t.Fatalf("expected boot error in runtime info, got %+v", info)
	}
}

func TestGetRecentJobsBeforeStartup(t *testing.T) {
	t.Parallel()

	app := &App{}
	if jobs := app.GetRecentJobs(); jobs != nil {
		t.Fatalf("expected no jobs before startup, got %+v", jobs)
	}
}
