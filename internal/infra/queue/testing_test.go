package queue

import (
	"time"

	"food-diary/internal/domain"
)

func sampleEvent() domain.FoodAnalyzedEvent {
	return domain.FoodAnalyzedEvent{
		UserID:      "user-1",
		ImageURL:    "file:///uploads/1.jpg",
		Description: "맛있는 피자",
		Analysis: domain.FoodAnalysis{
			Ingredients:   []string{"페퍼로니"},
			TotalCalories: 444,
			Breakdown: domain.Breakdown{
				"페퍼로니": {Protein: domain.Grams(20, 80), Fat: domain.Grams(40, 360), Carbohydrate: domain.Grams(1, 4)},
			},
		},
		AnalyzedAt: time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC),
	}
}
