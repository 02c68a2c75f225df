package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"finboard/internal/core"
	"finboard/internal/credentials"
	"finboard/internal/log"
	"finboard/internal/services"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady probes templates and every registered dependency.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	for name, check := range s.checks {
		if check == nil {
			continue
		}
		if err := check.HealthCheck(ctx); err != nil {
			checks[name] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	if s.creds != nil {
		checks["credentials"] = map[string]any{"configured": s.creds.IsComplete()}
	}
	checks["rate_limiter"] = map[string]any{"active_clients": s.rateLimiter.ActiveClients()}
	checks["requests"] = map[string]any{
		"total":         s.tracer.GetMetrics().TotalRequests,
		"server_errors": s.tracer.GetMetrics().ServerErrors,
		"suspicious":    s.detector.GetMetrics().SuspiciousRequests,
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleIndex renders the dashboard shell; figures are fetched by the page
// from /api/summary.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())
	if s.templates == nil {
		logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	var current credentials.Credentials
	if s.creds != nil {
		current = s.creds.Current()
	}
	data := struct {
		Config configView
		Empty  core.Summary
	}{
		Config: newConfigView(current, s.transport),
		Empty:  core.EmptySummary(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		logger.ErrorContext(r.Context(), "Dashboard template execution failed", log.FieldError, err)
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

// handleSummary runs one load cycle with the stored credentials. On failure
// the response still carries an all-zero summary so the page resets.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	ctx := r.Context()
	sl := log.NewStructuredLogger(log.FromContext(ctx).WithComponent(log.ComponentDashboard))

	creds := s.creds.Current()
	sum, err := s.dashboard.Load(ctx, creds)
	if err != nil {
		kind := services.ErrorKind(err)
		sl.LogDashboardLoad(ctx, 0, 0, 0, err, kind)
		writeJSON(w, statusForKind(kind), summaryErrorResponse{
			Error:   services.UserMessage(err),
			Kind:    kind,
			Summary: newSummaryView(core.EmptySummary()),
		})
		return
	}

	sl.LogDashboardLoad(ctx, sum.IncomeEntries, sum.ExpenseEntries, len(sum.Categories), nil, "")
	writeJSON(w, http.StatusOK, summaryResponse{Summary: newSummaryView(sum)})
}

// handleConfig shows, saves or clears the stored credentials.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentCredentials)

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, newConfigView(s.creds.Current(), s.transport))

	case http.MethodPost:
		var req configRequest
		r.Body = http.MaxBytesReader(w, r.Body, maxConfigBody)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "request body must be a JSON object"})
			return
		}

		saved, err := s.creds.Save(ctx, req.Token, req.IncomeDatabaseID, req.ExpensesDatabaseID)
		if err != nil {
			var verr *credentials.ValidationError
			if errors.As(err, &verr) {
				writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
					Error: services.UserMessage(err),
					Kind:  services.KindValidation,
					Field: verr.Field,
				})
				return
			}
			logger.ErrorContext(ctx, "Failed to save credentials", log.FieldOperation, log.OpSave, log.FieldError, err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not save the configuration", Kind: services.KindInternal})
			return
		}
		writeJSON(w, http.StatusOK, newConfigView(saved, s.transport))

	case http.MethodDelete:
		if err := s.creds.Clear(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to clear credentials", log.FieldOperation, log.OpClear, log.FieldError, err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not clear the configuration", Kind: services.KindInternal})
			return
		}
		writeJSON(w, http.StatusOK, newConfigView(credentials.Credentials{}, s.transport))

	default:
		methodNotAllowed(w, "GET, POST, DELETE")
	}
}
