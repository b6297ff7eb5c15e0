package rest

import (
	"encoding/json"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"

	"food-diary/internal/domain"
	apphttp "food-diary/internal/infra/http"
)

const dateOnly = "2006-01-02"

// diaryForm поля создания и обновления. nil означает «не передано».
type diaryForm struct {
	Content          *string              `json:"content"`
	TotalCalories    *float64             `json:"totalCalories"`
	CalorieBreakdown *domain.FoodAnalysis `json:"calorieBreakdown"`
	Image            *domain.Image        `json:"-"`
}

// createDiary POST /api/diaries
func (h *Handler) createDiary(w http.ResponseWriter, r *http.Request) {
	form, err := h.readDiaryForm(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	in := domain.CreateDiaryInput{
		UserID:           userID(r),
		Image:            form.Image,
		TotalCalories:    form.TotalCalories,
		CalorieBreakdown: form.CalorieBreakdown,
	}
	if form.Content != nil {
		in.Content = *form.Content
	}
	created, err := h.diaries.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	apphttp.WriteJSON(w, r, http.StatusCreated, diaryChangedResponse{ID: created.ID, Message: "Diary created successfully"}, "")
}

// listDiaries GET /api/diaries?startDate=&endDate=
func (h *Handler) listDiaries(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	rawStart, rawEnd := strings.TrimSpace(query.Get("startDate")), strings.TrimSpace(query.Get("endDate"))

	var (
		diaries []domain.Diary
		err     error
	)
	switch {
	case rawStart == "" && rawEnd == "":
		diaries, err = h.diaries.ListByUser(r.Context(), userID(r))
	case rawStart == "" || rawEnd == "":
		err = domain.ClientInput("", "startDate and endDate must be provided together")
	default:
		var period domain.DiaryPeriod
		period, err = parsePeriod(rawStart, rawEnd)
		if err == nil {
			diaries, err = h.diaries.ListByPeriod(r.Context(), userID(r), period)
		}
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	apphttp.WriteJSON(w, r, http.StatusOK, toDiaryList(diaries), "")
}

// getDiary GET /api/diaries/{id}
func (h *Handler) getDiary(w http.ResponseWriter, r *http.Request) {
	d, err := h.diaries.GetByID(r.Context(), chi.URLParam(r, "id"), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	apphttp.WriteJSON(w, r, http.StatusOK, toDiaryResponse(d), "")
}

// updateDiary PUT /api/diaries/{id}
func (h *Handler) updateDiary(w http.ResponseWriter, r *http.Request) {
	form, err := h.readDiaryForm(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	updated, err := h.diaries.Update(r.Context(), domain.UpdateDiaryInput{
		ID:               chi.URLParam(r, "id"),
		UserID:           userID(r),
		Content:          form.Content,
		Image:            form.Image,
		TotalCalories:    form.TotalCalories,
		CalorieBreakdown: form.CalorieBreakdown,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	apphttp.WriteJSON(w, r, http.StatusOK, diaryChangedResponse{ID: updated.ID, Message: "Diary updated successfully"}, "")
}

// deleteDiary DELETE /api/diaries/{id}
func (h *Handler) deleteDiary(w http.ResponseWriter, r *http.Request) {
	if err := h.diaries.Delete(r.Context(), chi.URLParam(r, "id"), userID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	apphttp.WriteJSON(w, r, http.StatusOK, messageResponse{Message: "Diary deleted successfully"}, "")
}

// readDiaryForm принимает multipart/form-data или JSON без файла.
func (h *Handler) readDiaryForm(r *http.Request) (diaryForm, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var form diaryForm
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			return diaryForm{}, domain.ClientInput("", "malformed JSON body")
		}
		return form, nil
	}

	if err := parseMultipart(r); err != nil {
		return diaryForm{}, err
	}
	var form diaryForm
	if values, ok := r.MultipartForm.Value["content"]; ok && len(values) > 0 {
		content := values[0]
		form.Content = &content
	}
	if raw := strings.TrimSpace(r.FormValue("totalCalories")); raw != "" {
		total, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return diaryForm{}, domain.ClientInput("", "totalCalories must be a number")
		}
		form.TotalCalories = &total
	}
	if raw := strings.TrimSpace(r.FormValue("calorieBreakdown")); raw != "" {
		var analysis domain.FoodAnalysis
		if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
			return diaryForm{}, domain.ClientInput("", "calorieBreakdown must be valid JSON")
		}
		form.CalorieBreakdown = &analysis
	}
	img, err := h.readImage(r, "image")
	if err != nil {
		return diaryForm{}, err
	}
	form.Image = img
	return form, nil
}

// parsePeriod принимает RFC3339 или YYYY-MM-DD. Дата без времени в конце
// интервала покрывает весь день.
func parsePeriod(rawStart, rawEnd string) (domain.DiaryPeriod, error) {
	start, _, err := parseDate(rawStart)
	if err != nil {
		return domain.DiaryPeriod{}, domain.ClientInput("", "startDate is not a valid date")
	}
	end, dateOnlyEnd, err := parseDate(rawEnd)
	if err != nil {
		return domain.DiaryPeriod{}, domain.ClientInput("", "endDate is not a valid date")
	}
	if dateOnlyEnd {
		end = end.Add(24*time.Hour - time.Nanosecond)
	}
	return domain.DiaryPeriod{Start: start, End: end}, nil
}

func parseDate(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.Parse(dateOnly, raw)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}
