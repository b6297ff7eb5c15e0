package domain

import (
	"fmt"
	"strings"
	"time"
)

// UnitGram единица измерения макронутриентов.
const UnitGram = "g"

// Macro описывает количество одного макронутриента и его калорийность.
type Macro struct {
	Amount   float64 `json:"amount"`
	Unit     string  `json:"unit"`
	Calories float64 `json:"calories"`
}

// Grams создаёт Macro в граммах.
func Grams(amount, calories float64) Macro {
	return Macro{Amount: amount, Unit: UnitGram, Calories: calories}
}

// MacroSplit раскладка ингредиента по белкам, жирам и углеводам.
type MacroSplit struct {
	Protein      Macro `json:"protein"`
	Fat          Macro `json:"fat"`
	Carbohydrate Macro `json:"carbohydrate"`
}

// Breakdown раскладка по ингредиентам.
type Breakdown map[string]MacroSplit

// FoodAnalysis результат анализа блюда. После создания не изменяется:
// наружу значение отдаётся через Clone.
type FoodAnalysis struct {
	Ingredients   []string  `json:"ingredients"`
	TotalCalories float64   `json:"totalCalories"`
	Breakdown     Breakdown `json:"breakdown"`
}

// Clone возвращает глубокую копию анализа.
func (a FoodAnalysis) Clone() FoodAnalysis {
	out := FoodAnalysis{TotalCalories: a.TotalCalories}
	if a.Ingredients != nil {
		out.Ingredients = append(make([]string, 0, len(a.Ingredients)), a.Ingredients...)
	}
	if a.Breakdown != nil {
		out.Breakdown = make(Breakdown, len(a.Breakdown))
		for name, split := range a.Breakdown {
			out.Breakdown[name] = split
		}
	}
	return out
}

// Validate проверяет неотрицательность значений и непустые имена ингредиентов.
// Соответствие Ingredients и ключей Breakdown не проверяется.
func (a FoodAnalysis) Validate() error {
	if a.TotalCalories < 0 {
		return fmt.Errorf("totalCalories is negative: %v", a.TotalCalories)
	}
	for i, name := range a.Ingredients {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("ingredient %d has empty name", i)
		}
	}
	for name, split := range a.Breakdown {
		for label, m := range map[string]Macro{"protein": split.Protein, "fat": split.Fat, "carbohydrate": split.Carbohydrate} {
			if m.Amount < 0 || m.Calories < 0 {
				return fmt.Errorf("breakdown %q: %s is negative", name, label)
			}
		}
	}
	return nil
}

// Image загруженное изображение вместе с исходными метаданными.
type Image struct {
	Data        []byte
	Size        int64
	Filename    string
	ContentType string
}

// Empty сообщает, что буфер изображения пуст.
func (i Image) Empty() bool {
	return len(i.Data) == 0
}

// Diary запись дневника питания.
type Diary struct {
	ID               string
	Content          string
	ImageURL         *string
	UserID           string
	TotalCalories    *float64
	CalorieBreakdown *FoodAnalysis
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// OwnedBy сообщает, принадлежит ли запись пользователю.
func (d Diary) OwnedBy(userID string) bool {
	return d.UserID != "" && d.UserID == userID
}

// HasImage сообщает, что к записи прикреплено изображение.
func (d Diary) HasImage() bool {
	return d.ImageURL != nil && *d.ImageURL != ""
}

// DiaryPatch набор изменяемых полей. nil означает «не менять».
// Владельца записи изменить нельзя.
type DiaryPatch struct {
	Content          *string
	ImageURL         *string
	TotalCalories    *float64
	CalorieBreakdown *FoodAnalysis
}

// Empty сообщает, что патч ничего не меняет.
func (p DiaryPatch) Empty() bool {
	return p.Content == nil && p.ImageURL == nil && p.TotalCalories == nil && p.CalorieBreakdown == nil
}

// CreateDiaryInput параметры создания записи.
type CreateDiaryInput struct {
	Content          string
	Image            *Image
	UserID           string
	TotalCalories    *float64
	CalorieBreakdown *FoodAnalysis
}

// UpdateDiaryInput параметры обновления записи.
type UpdateDiaryInput struct {
	ID               string
	UserID           string
	Content          *string
	Image            *Image
	TotalCalories    *float64
	CalorieBreakdown *FoodAnalysis
}

// DiaryPeriod включительный интервал по времени создания.
type DiaryPeriod struct {
	Start time.Time
	End   time.Time
}
