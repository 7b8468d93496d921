package httpapi

import (
	"fmt"
	"net/http"

	"github.com/rosterlab/perfect-roster/internal/usecase"
)

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz runs every configured readiness probe. The first failing probe
// turns the whole endpoint into a 503 naming the component.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Readyz")
	defer span.End()

	components := make([]readinessComponentDTO, 0, len(h.readiness))
	for _, check := range h.readiness {
		if check.Probe == nil {
			continue
		}
		if err := check.Probe(ctx); err != nil {
			h.logger.WarnContext(ctx, "readiness probe failed", "component", check.Name, "error", err)
			writeError(ctx, w, fmt.Errorf("%w: %s is not ready: %v", usecase.ErrDependencyUnavailable, check.Name, err))
			return
		}
		components = append(components, readinessComponentDTO{Name: check.Name, Status: "ok"})
	}

	writeSuccess(ctx, w, http.StatusOK, readinessDTO{
		Status:     "ready",
		Components: components,
	})
}
