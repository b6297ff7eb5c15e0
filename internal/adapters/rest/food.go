package rest

import (
	"net/http"
	"strings"

	"food-diary/internal/domain"
	apphttp "food-diary/internal/infra/http"
)

// analyzeFood POST /api/food/analyze
func (h *Handler) analyzeFood(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(r); err != nil {
		h.fail(w, r, err)
		return
	}
	img, err := h.readImage(r, "image")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if img == nil || img.Empty() {
		h.fail(w, r, domain.ClientInput(domain.CodeInvalidImage, "image file is required"))
		return
	}
	description := strings.TrimSpace(r.FormValue("description"))

	analysis, err := h.food.AnalyzeFoodImage(r.Context(), *img, description, userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	apphttp.WriteJSON(w, r, http.StatusCreated, analysis, "Food analysis completed successfully")
}
