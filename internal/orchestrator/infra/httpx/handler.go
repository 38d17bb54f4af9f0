package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jcmexdev/globalbooks-orchestrator/internal/coordinator"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/coordinator/sagalog"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/core/domain/entity"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/core/ports"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/pkg/interceptors"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/pkg/interceptors/constants"
)

// HealthMessage is the fixed body of the liveness probe.
const HealthMessage = "Orchestration Service is running"

// Handler serves both entry protocols. Neither knows about the engine; they
// only see the OrderPlacer port.
type Handler struct {
	placer ports.OrderPlacer
	sagas  sagalog.Reader // nil when the saga log is disabled
}

func NewHandler(placer ports.OrderPlacer, sagas sagalog.Reader) *Handler {
	return &Handler{placer: placer, sagas: sagas}
}

// PlaceOrder is the REST entry point.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	order, err := req.toEntity()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := h.submit(w, r, order)
	if err != nil {
		switch status := statusFor(err); status {
		case http.StatusInternalServerError:
			w.WriteHeader(status)
		case http.StatusConflict:
			writeError(w, status, "duplicate_request", err.Error())
		default:
			writeError(w, status, "invalid_request", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, mapResultToResponse(result))
}

// Health is the liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, HealthMessage)
}

// GetSaga returns the latest saga log entry for a saga id.
func (h *Handler) GetSaga(w http.ResponseWriter, r *http.Request) {
	sagaID := chi.URLParam(r, "id")
	if sagaID == "" {
		writeError(w, http.StatusBadRequest, "saga_id_required", "")
		return
	}
	if h.sagas == nil {
		writeError(w, http.StatusNotFound, "saga_log_disabled", "")
		return
	}

	entry, err := h.sagas.GetLatest(r.Context(), sagaID)
	if errors.Is(err, sagalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "saga_not_found", err.Error())
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "reading saga log", "saga_id", sagaID, "error", err)
		writeError(w, http.StatusInternalServerError, "saga_log_error", "")
		return
	}

	writeJSON(w, http.StatusOK, mapSagaToResponse(entry))
}

// submit runs the order through the placer under a fresh saga id. The saga
// is detached from the request so a client disconnect does not abort it
// halfway through.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request, order entity.OrderRequest) (entity.OrderResult, error) {
	sagaID := uuid.NewString()
	w.Header().Set(constants.HeaderXSagaId, sagaID)

	ctx := coordinator.WithSagaID(context.WithoutCancel(r.Context()), sagaID)
	slog.InfoContext(ctx, "placing order",
		"saga_id", sagaID,
		"request_id", interceptors.RequestIDFromContext(ctx),
		"customer_id", order.CustomerID,
		"items", len(order.Items),
	)

	result, err := h.placer.PlaceOrder(ctx, order)
	if err != nil {
		attrs := []any{"saga_id", sagaID, "error", err}
		if stage, ok := coordinator.IsDownstreamFailure(err); ok {
			attrs = append(attrs, "stage", string(stage))
		}
		slog.ErrorContext(ctx, "order placement failed", attrs...)
		return entity.OrderResult{}, err
	}
	return result, nil
}

// statusFor maps a placement error to the status code both protocols use.
func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrMalformedRequest):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrDuplicateRequest):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func mapSagaToResponse(entry *sagalog.SagaLog) SagaStatusResponse {
	var errs []string
	_ = json.Unmarshal([]byte(entry.ErrorMessages), &errs)
	return SagaStatusResponse{
		SagaID:      entry.SagaID,
		OrderID:     entry.OrderID,
		Status:      string(entry.Status),
		CurrentStep: entry.CurrentStep,
		Errors:      errs,
		TraceID:     entry.TraceID,
		UpdatedAt:   entry.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
