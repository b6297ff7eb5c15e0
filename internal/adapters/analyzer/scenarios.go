package analyzer

import "food-diary/internal/domain"

// scenario заранее подготовленный ответ заглушки.
type scenario struct {
	name     string
	keywords []string
	analysis domain.FoodAnalysis
}

func split(protein, proteinCal, fat, fatCal, carb, carbCal float64) domain.MacroSplit {
	return domain.MacroSplit{
		Protein:      domain.Grams(protein, proteinCal),
		Fat:          domain.Grams(fat, fatCal),
		Carbohydrate: domain.Grams(carb, carbCal),
	}
}

// scenarios проверяются по порядку, первое совпадение выигрывает.
var scenarios = []scenario{
	{
		name:     "pizza",
		keywords: []string{"피자", "pizza"},
		analysis: domain.FoodAnalysis{
			Ingredients:   []string{"피자 도우", "토마토 소스", "모짜렐라 치즈", "페퍼로니"},
			TotalCalories: 854,
			Breakdown: domain.Breakdown{
				"피자 도우":   split(12, 48, 4, 36, 80, 320),
				"토마토 소스":  split(2, 8, 0.2, 1.8, 8, 32),
				"모짜렐라 치즈": split(25, 100, 22, 198, 2, 8),
				"페퍼로니":    split(20, 80, 40, 360, 1, 4),
			},
		},
	},
	{
		name:     "salad",
		keywords: []string{"샐러드", "salad"},
		analysis: domain.FoodAnalysis{
			Ingredients:   []string{"양상추", "토마토", "오이", "올리브 오일"},
			TotalCalories: 183,
			Breakdown: domain.Breakdown{
				"양상추":    split(2, 8, 0.2, 1.8, 4, 16),
				"토마토":    split(1, 4, 0.2, 1.8, 4, 16),
				"오이":     split(1, 4, 0.1, 0.9, 4, 16),
				"올리브 오일": split(0, 0, 15, 135, 0, 0),
			},
		},
	},
}

// defaultScenario отдаётся, если ни одно ключевое слово не совпало.
var defaultScenario = scenario{
	name: "default",
	analysis: domain.FoodAnalysis{
		Ingredients:   []string{"닭가슴살", "브로콜리", "현미밥"},
		TotalCalories: 448,
		Breakdown: domain.Breakdown{
			"닭가슴살": split(25, 100, 2, 18, 0, 0),
			"브로콜리": split(3, 12, 0.5, 4.5, 7, 28),
			"현미밥":  split(5, 20, 2, 18, 70, 280),
		},
	},
}

// errorKeywords включают намеренный сбой заглушки.
var errorKeywords = []string{"에러", "error"}
