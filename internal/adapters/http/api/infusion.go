package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	service "github.com/okian/glucommander/internal/app"
	"github.com/okian/glucommander/internal/domain/model"
	"github.com/okian/glucommander/pkg/logger"
)

// maxBodyBytes caps request bodies. Requests are a handful of numbers.
const maxBodyBytes = 4 << 10

// InfusionHandler serves the dosing calculations.
type InfusionHandler struct {
	deps Dependencies
}

// NewInfusionHandler creates a new infusion handler.
func NewInfusionHandler(deps Dependencies) *InfusionHandler {
	return &InfusionHandler{deps: deps}
}

// HandleStart handles POST /v1/infusion/start requests.
func (h *InfusionHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	const op = "api.infusion_start"
	if !allowPost(w, r) {
		return
	}
	var req model.StartRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	rec, err := h.deps.Initial(r.Context(), req)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleAdjust handles POST /v1/infusion/adjust requests.
func (h *InfusionHandler) HandleAdjust(w http.ResponseWriter, r *http.Request) {
	const op = "api.infusion_adjust"
	if !allowPost(w, r) {
		return
	}
	var req model.AdjustRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	rec, err := h.deps.Adjust(r.Context(), req)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *InfusionHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		logger.Get().Error(r.Context(), "calculation failed", logger.String("op", op), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", nil)
	}
}

func allowPost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodPost {
		return true
	}
	w.Header().Set("Allow", http.MethodPost)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	return false
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}
