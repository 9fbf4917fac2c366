package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// healthHandler reports liveness.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("health check endpoint hit", "remote_addr", r.RemoteAddr)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// metricsHandler serves the engine's counter snapshot as JSON.
func (a *App) metricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(a.engine.GetMetrics()); err != nil {
		a.logger.Error("failed to encode metrics", "error", err)
	}
}

// graphHandler serves a diagnostic view of the loaded workflow graph.
func (a *App) graphHandler(w http.ResponseWriter, r *http.Request) {
	order, acyclic := a.graph.TopologicalOrder()
	payload := map[string]any{
		"node_count":   a.graph.NodeCount(),
		"acyclic":      acyclic,
		"order":        order,
		"merge_points": a.graph.MergePoints(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Error("failed to encode graph view", "error", err)
	}
}

// startStatusServer runs the health/metrics HTTP server in a goroutine.
func (a *App) startStatusServer(ctx context.Context, port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)
	mux.HandleFunc("/metrics", a.metricsHandler)
	mux.HandleFunc("/graph", a.graphHandler)

	addr := fmt.Sprintf(":%d", port)
	a.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		a.logger.Info("status server starting", "address", fmt.Sprintf("http://localhost%s", addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("status server failed unexpectedly", "error", err)
		}
	}()
}

func (a *App) closeStatusServer() error {
	if a.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a.logger.Info("shutting down status server")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("status server shutdown failed", "error", err)
		return err
	}
	return nil
}
