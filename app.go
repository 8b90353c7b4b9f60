package main

import (
	"context"
	"fmt"
	"os"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"murmur/internal/bootstrap"
	"murmur/internal/config"
	"murmur/internal/domain"
	"murmur/internal/eventbus"
	"murmur/internal/usecase"
)

// App is the Wails application root. Backend events are forwarded to
// the frontend under "murmur:<event name>".
type App struct {
	ctx context.Context

	manager *usecase.Manager
	bus     *eventbus.Bus
	cfg     config.Config
	bootErr error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(os.Stderr, &clipboardSink{app: a})
	if err != nil {
		a.bootErr = err
		runtime.EventsEmit(ctx, "murmur:"+domain.EventRecordingError, map[string]string{
			"code":    string(domain.ErrorCodeStartup),
			"message": err.Error(),
		})
		return
	}

	a.manager = services.Manager
	a.bus = services.Bus
	a.cfg = services.Config

	for _, name := range domain.EventNames() {
		name := name
		a.bus.Subscribe(name, func(payload any) {
			runtime.EventsEmit(a.ctx, "murmur:"+name, payload)
		})
	}
}

// StartDictation begins recording in the given language.
func (a *App) StartDictation(language string) (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	return a.manager.StartRecording(a.ctx, language)
}

// StopDictation ends recording and blocks until every outstanding
// chunk has been transcribed and the assembled result delivered.
func (a *App) StopDictation() (domain.SessionResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.SessionResult{}, err
	}
	return a.manager.StopRecording(a.ctx).Wait(a.ctx)
}

// AbortDictation discards the in-progress session.
func (a *App) AbortDictation() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.manager.Abort(a.ctx)
}

// ResetSession recovers from the error phase.
func (a *App) ResetSession() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.manager.Reset()
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.manager == nil {
		if a.bootErr != nil {
			return domain.Status{Phase: domain.PhaseError, Message: a.bootErr.Error()}
		}
		return domain.Status{Phase: domain.PhaseIdle}
	}
	return a.manager.Status()
}

// GetRecentJobs returns recently resolved transcription jobs for the
// diagnostics view.
func (a *App) GetRecentJobs() []domain.JobRecord {
	if a.manager == nil {
		return nil
	}
	return a.manager.RecentJobs()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"captureBackend": a.cfg.Capture.Backend,
		"transcriber":    a.cfg.Transcriber.Backend,
		"language":       a.cfg.Language,
		"rulesFile":      a.cfg.Rules.Path,
		"chunkDir":       a.cfg.Capture.OutputDir,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.manager == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// clipboardSink copies the finished transcript to the system clipboard.
type clipboardSink struct {
	app *App
}

// Deliver writes through the Wails runtime, which needs the app
// context rather than the session context.
func (c *clipboardSink) Deliver(_ context.Context, result domain.SessionResult) error {
	if c.app.ctx == nil {
		return fmt.Errorf("clipboard is not available before startup")
	}
	return runtime.ClipboardSetText(c.app.ctx, result.Text)
}
