package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/xela07ax/spaceai-safety-engine/internal/domain"
	"github.com/xela07ax/spaceai-safety-engine/internal/engine"
	"go.uber.org/zap"
)

// OperatorHeader: идентификатор оператора. Аутентификацию выполняет внешний слой.
const OperatorHeader = "X-Operator-ID"

// SafetyGate: поверхность движка, которую использует слой запросов.
type SafetyGate interface {
	ValidateAction(actionType string, ctx map[string]any) domain.SafetyCheck
	ValidateMission(m domain.Mission) domain.SafetyCheck
	ValidateMissionExecution(m domain.MissionExecution) domain.SafetyCheck
	EmergencyStop(operatorID string)
	DeactivateEmergencyStop(operatorID string) error
	Status() domain.Status
}

type SafetyHandler struct {
	gate   SafetyGate
	logger *zap.Logger
}

func NewSafetyHandler(gate SafetyGate, logger *zap.Logger) *SafetyHandler {
	return &SafetyHandler{gate: gate, logger: logger.Named("safety-handler")}
}

type validateActionRequest struct {
	ActionType string         `json:"action_type"`
	Context    map[string]any `json:"context"`
}

// ValidateAction POST /v1/actions/validate
func (h *SafetyHandler) ValidateAction(w http.ResponseWriter, r *http.Request) {
	var req validateActionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.ActionType) == "" {
		writeError(w, h.logger, http.StatusBadRequest, "action_type is required")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, h.gate.ValidateAction(req.ActionType, req.Context))
}

// ValidateMission POST /v1/missions/validate
func (h *SafetyHandler) ValidateMission(w http.ResponseWriter, r *http.Request) {
	var m domain.Mission
	if err := decodeJSON(w, r, &m); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid mission body")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, h.gate.ValidateMission(m))
}

// ValidateMissionExecution POST /v1/missions/execution/validate
func (h *SafetyHandler) ValidateMissionExecution(w http.ResponseWriter, r *http.Request) {
	var m domain.MissionExecution
	if err := decodeJSON(w, r, &m); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid mission body")
		return
	}
	if m.ID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "id is required")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, h.gate.ValidateMissionExecution(m))
}

// EmergencyStop POST /v1/emergency-stop
func (h *SafetyHandler) EmergencyStop(w http.ResponseWriter, r *http.Request) {
	operatorID := r.Header.Get(OperatorHeader)
	h.gate.EmergencyStop(operatorID)
	writeJSON(w, h.logger, http.StatusOK, h.gate.Status())
}

// DeactivateEmergencyStop POST /v1/emergency-stop/deactivate
func (h *SafetyHandler) DeactivateEmergencyStop(w http.ResponseWriter, r *http.Request) {
	operatorID := r.Header.Get(OperatorHeader)
	if err := h.gate.DeactivateEmergencyStop(operatorID); err != nil {
		if errors.Is(err, engine.ErrOperatorRequired) {
			writeError(w, h.logger, http.StatusBadRequest, "operator id is required")
			return
		}
		h.logger.Error("deactivate emergency stop failed", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "failed to deactivate emergency stop")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, h.gate.Status())
}

// Status GET /v1/status
func (h *SafetyHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.gate.Status())
}
