package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// writeJSON: заголовок уже отправлен, поэтому ошибка кодирования (обычно обрыв
// соединения клиентом) только логируется.
func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write response body", zap.Int("status", status), zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, status int, msg string) {
	writeJSON(w, logger, status, map[string]string{"error": msg})
}

// decodeJSON читает тело с UseNumber, чтобы числа в контексте не теряли точность.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.UseNumber()
	return dec.Decode(v)
}
