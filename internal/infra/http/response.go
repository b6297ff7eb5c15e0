package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"food-diary/internal/domain"
)

// CodePayloadTooLarge тело запроса превышает лимит.
const CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"

// Envelope общий формат ответа API.
type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
	Timestamp string `json:"timestamp"`
	Path      string `json:"path"`
}

// WriteJSON отдаёт успешный ответ в конверте.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, data any, message string) {
	write(w, status, Envelope{
		Success:   true,
		Data:      data,
		Message:   message,
		Timestamp: timestamp(),
		Path:      r.URL.Path,
	})
}

// WriteError отдаёт ошибку домена с подходящим статусом. Подробности
// нетипизированных ошибок наружу не попадают.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		WriteErrorCode(w, r, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "request body too large")
		return
	}
	WriteErrorCode(w, r, StatusOf(err), domain.CodeOf(err), domain.MessageOf(err))
}

// WriteErrorCode отдаёт ошибку с явным статусом и кодом.
func WriteErrorCode(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	write(w, status, Envelope{
		Success:   false,
		Message:   message,
		ErrorCode: code,
		Timestamp: timestamp(),
		Path:      r.URL.Path,
	})
}

// StatusOf сопоставляет вид ошибки и HTTP статус.
func StatusOf(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrClientInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNormalization):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func write(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
