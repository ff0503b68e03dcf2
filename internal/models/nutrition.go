package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Number decodes LLM numeric output, which sometimes arrives as a string
// ("12.5", "12 g") or null. Anything unparseable becomes 0.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Number(leadingFloat(s))
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = Number(f)
	return nil
}

func leadingFloat(s string) float64 {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] == '.' || s[end] == '-' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return f
}

type NutrientDetail struct {
	Name          string  `json:"name"`
	Amount        Number  `json:"amount"`
	Unit          string  `json:"unit"`
	DailyValuePct *Number `json:"daily_value_pct"`
}

type FoodItem struct {
	Name      string           `json:"name"`
	Portion   string           `json:"portion"`
	Calories  Number           `json:"calories"`
	ProteinG  Number           `json:"protein_g"`
	CarbsG    Number           `json:"carbs_g"`
	FatG      Number           `json:"fat_g"`
	FiberG    Number           `json:"fiber_g"`
	SugarG    Number           `json:"sugar_g"`
	SodiumMg  Number           `json:"sodium_mg"`
	Nutrients []NutrientDetail `json:"nutrients"`
}

type NutritionTotals struct {
	Calories Number `json:"calories"`
	ProteinG Number `json:"protein_g"`
	CarbsG   Number `json:"carbs_g"`
	FatG     Number `json:"fat_g"`
	FiberG   Number `json:"fiber_g"`
	SugarG   Number `json:"sugar_g"`
	SodiumMg Number `json:"sodium_mg"`
}

type HealthKitSample struct {
	Identifier string `json:"identifier"`
	Value      Number `json:"value"`
	Unit       string `json:"unit"`
}

// NutritionBreakdown is the structured object the gateway is asked to produce.
type NutritionBreakdown struct {
	Description      string            `json:"description"`
	FoodItems        []FoodItem        `json:"food_items"`
	Totals           NutritionTotals   `json:"totals"`
	HealthKitSamples []HealthKitSample `json:"healthkit_samples"`
}

type AnalyzeNutritionRequest struct {
	Text          string `json:"text" validate:"required_without=ImageBase64,max=4000"`
	ImageBase64   string `json:"image_base64" validate:"omitempty,base64"`
	ImageMimeType string `json:"image_mime_type" validate:"omitempty,oneof=image/jpeg image/png image/webp image/heic image/heif"`
}

type NutritionAnalysisResponse struct {
	MealID           int64             `json:"meal_id"`
	Timestamp        string            `json:"timestamp"`
	Description      string            `json:"description"`
	FoodItems        []FoodItem        `json:"food_items"`
	Totals           NutritionTotals   `json:"totals"`
	HealthKitSamples []HealthKitSample `json:"healthkit_samples"`
}

type MealNutrient struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

type MealEntry struct {
	ID            int64          `json:"id"`
	Date          string         `json:"date"`
	Timestamp     string         `json:"timestamp"`
	Description   string         `json:"description"`
	AnalysisJSON  string         `json:"analysis_json,omitempty"`
	TotalCalories float64        `json:"total_calories"`
	TotalProteinG float64        `json:"total_protein_g"`
	TotalCarbsG   float64        `json:"total_carbs_g"`
	TotalFatG     float64        `json:"total_fat_g"`
	Nutrients     []MealNutrient `json:"nutrients"`
	CreatedAt     string         `json:"created_at"`
	UpdatedAt     string         `json:"updated_at"`
}

// UpdateMealRequest carries a user correction. Nil fields are left unchanged;
// a non-nil Nutrients replaces the whole nutrient set.
type UpdateMealRequest struct {
	Description   *string         `json:"description" validate:"omitempty,max=1000"`
	TotalCalories *float64        `json:"total_calories" validate:"omitempty,gte=0"`
	TotalProteinG *float64        `json:"total_protein_g" validate:"omitempty,gte=0"`
	TotalCarbsG   *float64        `json:"total_carbs_g" validate:"omitempty,gte=0"`
	TotalFatG     *float64        `json:"total_fat_g" validate:"omitempty,gte=0"`
	Nutrients     *[]MealNutrient `json:"nutrients" validate:"omitempty"`
}

type NutrientTotal struct {
	NutrientName string  `json:"nutrient_name"`
	TotalAmount  float64 `json:"total_amount"`
	Unit         string  `json:"unit"`
}

type DailyNutritionSummary struct {
	Date      string          `json:"date"`
	MealCount int             `json:"meal_count"`
	Totals    MealTotals      `json:"totals"`
	Nutrients []NutrientTotal `json:"nutrients"`
}

type MealTotals struct {
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}
