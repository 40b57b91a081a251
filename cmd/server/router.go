package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/ignition/internal/startup"
)

// startupStatusResponse is the JSON shape of the run state exposed to
// clients while the server is booting or degraded.
type startupStatusResponse struct {
	State     string `json:"state"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Error     string `json:"error,omitempty"`
}

// setupRouter creates and configures the application router. The startup
// endpoints are always available; the API group responds 503 with the
// current snapshot until the run reaches ready.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/startup", app.handleStartupStatus)
	r.Post("/startup/retry", app.handleStartupRetry)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if app.startup.Snapshot().State != startup.StateReady {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(app.requireReady)
		r.Get("/status", app.handleAPIStatus)
	})

	return r
}

// requireReady gates API routes on the startup run having completed.
func (app *application) requireReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		snap := app.startup.Snapshot()
		if snap.State != startup.StateReady {
			writeJSON(w, http.StatusServiceUnavailable, snapshotResponse(snap))
			return
		}
		next.ServeHTTP(w, req)
	})
}

// handleStartupStatus reports the current run snapshot.
func (app *application) handleStartupStatus(w http.ResponseWriter, req *http.Request) {
	snap := app.startup.Snapshot()
	status := http.StatusOK
	if snap.State != startup.StateReady {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, snapshotResponse(snap))
}

// handleStartupRetry re-runs the startup sequence from the error state.
func (app *application) handleStartupRetry(w http.ResponseWriter, req *http.Request) {
	snap := app.startup.Snapshot()
	if snap.State != startup.StateError {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": "retry is only available from the error state",
			"state": string(snap.State),
		})
		return
	}

	// The run must outlive the request; it gets its own context.
	go func() {
		if err := app.startup.Start(context.Background()); err != nil {
			app.logger.Error("startup retry failed", "error", err)
		}
	}()
	w.WriteHeader(http.StatusAccepted)
}

// handleAPIStatus lists the capabilities initialized during startup. It is
// only reachable once the run is ready.
func (app *application) handleAPIStatus(w http.ResponseWriter, req *http.Request) {
	snap := app.startup.Snapshot()
	capabilities := make([]string, 0, len(snap.Overrides))
	for key := range snap.Overrides {
		capabilities = append(capabilities, key)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":        string(snap.State),
		"capabilities": capabilities,
	})
}

func snapshotResponse(snap startup.Snapshot) startupStatusResponse {
	resp := startupStatusResponse{
		State:     string(snap.State),
		Completed: snap.Completed,
		Total:     snap.Total,
	}
	if snap.Err != nil {
		resp.Error = snap.Err.Error()
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
