// Package rest HTTP-обработчики API дневника питания.
package rest

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"food-diary/internal/domain"
	apphttp "food-diary/internal/infra/http"
)

// Handler связывает HTTP маршруты с сервисами.
type Handler struct {
	food      domain.FoodAnalysisService
	diaries   domain.DiaryService
	log       zerolog.Logger
	maxUpload int64
}

// NewHandler создаёт обработчик. maxUpload лимит размера одного файла.
func NewHandler(food domain.FoodAnalysisService, diaries domain.DiaryService, maxUpload int64, logger zerolog.Logger) *Handler {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	return &Handler{food: food, diaries: diaries, maxUpload: maxUpload, log: logger}
}

// Mount регистрирует маршруты /api под проверкой токена.
func (h *Handler) Mount(r chi.Router, verifier *apphttp.TokenVerifier) {
	r.Route("/api", func(r chi.Router) {
		r.Use(apphttp.RequireAuth(verifier))
		r.Post("/food/analyze", h.analyzeFood)
		r.Route("/diaries", func(r chi.Router) {
			r.Post("/", h.createDiary)
			r.Get("/", h.listDiaries)
			r.Get("/{id}", h.getDiary)
			r.Put("/{id}", h.updateDiary)
			r.Delete("/{id}", h.deleteDiary)
		})
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := apphttp.StatusOf(err)
	event := h.log.Warn()
	if status >= http.StatusInternalServerError {
		event = h.log.Error()
	}
	event.Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
	apphttp.WriteError(w, r, err)
}

func userID(r *http.Request) string {
	id, _ := apphttp.UserIDFromContext(r.Context())
	return id
}
