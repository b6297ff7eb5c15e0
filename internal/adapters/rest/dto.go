package rest

import (
	"time"

	"food-diary/internal/domain"
)

type diaryResponse struct {
	ID               string               `json:"id"`
	Content          string               `json:"content"`
	ImageURL         *string              `json:"imageUrl"`
	UserID           string               `json:"userId"`
	TotalCalories    *float64             `json:"totalCalories,omitempty"`
	CalorieBreakdown *domain.FoodAnalysis `json:"calorieBreakdown,omitempty"`
	CreatedAt        string               `json:"createdAt"`
	UpdatedAt        string               `json:"updatedAt"`
}

type diaryListResponse struct {
	Diaries []diaryResponse `json:"diaries"`
	Total   int             `json:"total"`
}

type diaryChangedResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func toDiaryResponse(d domain.Diary) diaryResponse {
	return diaryResponse{
		ID:               d.ID,
		Content:          d.Content,
		ImageURL:         d.ImageURL,
		UserID:           d.UserID,
		TotalCalories:    d.TotalCalories,
		CalorieBreakdown: d.CalorieBreakdown,
		CreatedAt:        d.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:        d.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toDiaryList(diaries []domain.Diary) diaryListResponse {
	out := diaryListResponse{Diaries: make([]diaryResponse, 0, len(diaries)), Total: len(diaries)}
	for _, d := range diaries {
		out.Diaries = append(out.Diaries, toDiaryResponse(d))
	}
	return out
}
