package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/spaceai-safety-engine/internal/console/service"
	"github.com/xela07ax/spaceai-safety-engine/internal/policy"
	"go.uber.org/zap"
)

type RuleHandler struct {
	service *service.RuleService
	logger  *zap.Logger
}

func NewRuleHandler(s *service.RuleService, logger *zap.Logger) *RuleHandler {
	return &RuleHandler{service: s, logger: logger.Named("rule-handler")}
}

// List GET /v1/rules
func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.service.List())
}

// Enable POST /v1/rules/{id}/enable
func (h *RuleHandler) Enable(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, true)
}

// Disable POST /v1/rules/{id}/disable
func (h *RuleHandler) Disable(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, false)
}

func (h *RuleHandler) toggle(w http.ResponseWriter, r *http.Request, enabled bool) {
	id := chi.URLParam(r, "id")

	if err := h.service.SetEnabled(r.Context(), id, enabled); err != nil {
		if errors.Is(err, policy.ErrRuleNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "rule not found")
			return
		}
		h.logger.Error("rule toggle failed", zap.String("rule_id", id), zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "failed to update rule")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]any{"id": id, "enabled": enabled})
}
