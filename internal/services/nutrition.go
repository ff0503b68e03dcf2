package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"healthbridge-backend/internal/logging"
	"healthbridge-backend/internal/metrics"
	"healthbridge-backend/internal/models"
	"healthbridge-backend/internal/repository"
	"healthbridge-backend/internal/validation"
)

const analysisPrompt = `You are a nutritionist AI. Analyze the following food description and return ONLY a JSON object. No markdown, no explanation, just raw JSON.

Food description: %s

Return this exact JSON structure (fill in real values):
{
  "description": "<brief summary of what was eaten>",
  "food_items": [
    {
      "name": "<food name>",
      "portion": "<portion description, e.g. '1 cup' or '200g'>",
      "calories": <number>,
      "protein_g": <number>,
      "carbs_g": <number>,
      "fat_g": <number>,
      "fiber_g": <number>,
      "sugar_g": <number>,
      "sodium_mg": <number>,
      "nutrients": [
        {"name": "<nutrient>", "amount": <number>, "unit": "<unit>", "daily_value_pct": <number or null>}
      ]
    }
  ],
  "totals": {
    "calories": <sum>,
    "protein_g": <sum>,
    "carbs_g": <sum>,
    "fat_g": <sum>,
    "fiber_g": <sum>,
    "sugar_g": <sum>,
    "sodium_mg": <sum>
  },
  "healthkit_samples": [
%s
  ]
}

Use your best nutritional knowledge to estimate values. Be realistic and accurate.`

type healthKitNutrient struct {
	Identifier string
	Name       string
	Unit       string
}

// Dietary sample identifiers the client can write back to HealthKit.
var healthKitNutrients = []healthKitNutrient{
	{"dietaryEnergyConsumed", "Energy", "kcal"},
	{"dietaryProtein", "Protein", "g"},
	{"dietaryCarbohydrates", "Carbohydrates", "g"},
	{"dietaryFatTotal", "Fat Total", "g"},
	{"dietaryFatSaturated", "Saturated Fat", "g"},
	{"dietaryFiber", "Fiber", "g"},
	{"dietarySugar", "Sugar", "g"},
	{"dietarySodium", "Sodium", "mg"},
	{"dietaryCholesterol", "Cholesterol", "mg"},
	{"dietaryCalcium", "Calcium", "mg"},
	{"dietaryIron", "Iron", "mg"},
	{"dietaryVitaminC", "Vitamin C", "mg"},
	{"dietaryVitaminD", "Vitamin D", "IU"},
	{"dietaryPotassium", "Potassium", "mg"},
	{"dietaryMagnesium", "Magnesium", "mg"},
	{"dietaryVitaminA", "Vitamin A", "IU"},
	{"dietaryVitaminB6", "Vitamin B6", "mg"},
	{"dietaryVitaminB12", "Vitamin B12", "mcg"},
	{"dietaryFolate", "Folate", "mcg"},
	{"dietaryZinc", "Zinc", "mg"},
}

func buildAnalysisPrompt(description string, image *Image) string {
	samples := make([]string, len(healthKitNutrients))
	for i, n := range healthKitNutrients {
		samples[i] = fmt.Sprintf(`    {"identifier": %q, "value": <%s>, "unit": %q}`, n.Identifier, n.Unit, n.Unit)
	}
	if strings.TrimSpace(description) == "" {
		description = "(no description, see the attached image)"
	}
	prompt := fmt.Sprintf(analysisPrompt, description, strings.Join(samples, ",\n"))
	if image != nil {
		prompt = fmt.Sprintf("I have provided a food image (%s) along with this description.\n\n%s", image.MimeType, prompt)
	}
	return prompt
}

type mealStore interface {
	Create(ctx context.Context, m *models.MealEntry) error
	GetByID(ctx context.Context, id int64) (*models.MealEntry, error)
	Update(ctx context.Context, id int64, req *models.UpdateMealRequest) (*models.MealEntry, error)
	Delete(ctx context.Context, id int64) error
	ListByDateRange(ctx context.Context, since, until string) ([]*models.MealEntry, error)
	DailySummary(ctx context.Context, date string) (*models.DailyNutritionSummary, error)
}

type NutritionService struct {
	client  CompletionClient
	breaker *gobreaker.CircuitBreaker[string]
	store   mealStore
	clock   Clock
	timeout time.Duration
}

// NewNutritionService wires the meal store to an optional completion client.
// With a nil client, Analyze reports the feature as unavailable while the
// meal read and edit operations keep working.
func NewNutritionService(client CompletionClient, store mealStore, clock Clock, timeout time.Duration) *NutritionService {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &NutritionService{
		client:  client,
		breaker: newGatewayBreaker("nutrition_gateway"),
		store:   store,
		clock:   clock,
		timeout: timeout,
	}
}

// Analyze calls the gateway once, stores the meal and returns the breakdown.
// Nothing is stored unless the gateway output parsed.
func (s *NutritionService) Analyze(ctx context.Context, req *models.AnalyzeNutritionRequest) (*models.NutritionAnalysisResponse, error) {
	if s.client == nil {
		return nil, &UnavailableError{Message: "Nutrition analysis is not configured"}
	}
	if err := validation.ValidateStruct(req); err != nil {
		return nil, asValidationError(err)
	}

	var image *Image
	if req.ImageBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			return nil, &BadRequestError{Message: "image_base64 is not valid base64"}
		}
		mime := req.ImageMimeType
		if mime == "" {
			mime = "image/jpeg"
		}
		image = &Image{Data: data, MimeType: mime}
	}

	now := s.clock.Current()
	raw, err := s.complete(ctx, buildAnalysisPrompt(req.Text, image), image)
	if err != nil {
		return nil, err
	}

	breakdown, err := ExtractJSON[models.NutritionBreakdown](raw)
	if err != nil {
		metrics.GatewayCallsTotal.WithLabelValues("parse_error").Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("response", truncate(raw, 200)).Msg("unparseable nutrition response")
		return nil, err
	}

	description := breakdown.Description
	if description == "" {
		description = req.Text
	}

	meal := &models.MealEntry{
		Date:          now.Format(time.DateOnly),
		Timestamp:     now.Format(time.RFC3339),
		Description:   description,
		AnalysisJSON:  raw,
		TotalCalories: float64(breakdown.Totals.Calories),
		TotalProteinG: float64(breakdown.Totals.ProteinG),
		TotalCarbsG:   float64(breakdown.Totals.CarbsG),
		TotalFatG:     float64(breakdown.Totals.FatG),
		Nutrients:     mealNutrients(&breakdown),
	}
	if err := s.store.Create(ctx, meal); err != nil {
		return nil, &PersistenceError{Op: "store meal", Err: err}
	}

	logging.Ctx(ctx).Info().
		Int64("meal_id", meal.ID).
		Int("food_items", len(breakdown.FoodItems)).
		Float64("calories", meal.TotalCalories).
		Msg("meal analyzed")

	resp := &models.NutritionAnalysisResponse{
		MealID:           meal.ID,
		Timestamp:        meal.Timestamp,
		Description:      description,
		FoodItems:        breakdown.FoodItems,
		Totals:           breakdown.Totals,
		HealthKitSamples: breakdown.HealthKitSamples,
	}
	if resp.FoodItems == nil {
		resp.FoodItems = []models.FoodItem{}
	}
	if resp.HealthKitSamples == nil {
		resp.HealthKitSamples = []models.HealthKitSample{}
	}
	return resp, nil
}

type completion struct {
	text string
	err  error
}

// complete runs the gateway call in its own goroutine and gives up once the
// timeout elapses, even if the client ignores cancellation.
func (s *NutritionService) complete(ctx context.Context, prompt string, image *Image) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan completion, 1)
	go func() {
		text, err := s.breaker.Execute(func() (string, error) {
			return s.client.Complete(ctx, prompt, image)
		})
		done <- completion{text: text, err: err}
	}()

	select {
	case res := <-done:
		if res.err == nil {
			metrics.RecordGatewayCall("ok", time.Since(start))
			return res.text, nil
		}
		if errors.Is(res.err, context.DeadlineExceeded) {
			metrics.RecordGatewayCall("timeout", time.Since(start))
			return "", &GatewayTimeoutError{Message: fmt.Sprintf("Nutrition gateway did not answer within %s", s.timeout)}
		}
		if errors.Is(res.err, context.Canceled) {
			metrics.RecordGatewayCall("canceled", time.Since(start))
			return "", fmt.Errorf("nutrition analysis canceled: %w", res.err)
		}
		metrics.RecordGatewayCall("error", time.Since(start))
		logging.Ctx(ctx).Error().Err(res.err).Msg("nutrition gateway call failed")
		if errors.Is(res.err, gobreaker.ErrOpenState) || errors.Is(res.err, gobreaker.ErrTooManyRequests) {
			return "", &GatewayError{Message: "Nutrition gateway is temporarily unavailable", Err: res.err}
		}
		return "", &GatewayError{Message: "Nutrition gateway call failed", Err: res.err}
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			metrics.RecordGatewayCall("canceled", time.Since(start))
			logging.Ctx(ctx).Info().Msg("nutrition analysis canceled by caller")
			return "", fmt.Errorf("nutrition analysis canceled: %w", ctx.Err())
		}
		metrics.RecordGatewayCall("timeout", time.Since(start))
		logging.Ctx(ctx).Warn().Dur("timeout", s.timeout).Msg("nutrition gateway timed out")
		return "", &GatewayTimeoutError{Message: fmt.Sprintf("Nutrition gateway did not answer within %s", s.timeout)}
	}
}

// mealNutrients flattens per-item nutrients and appends HealthKit samples
// whose nutrient name is not already present.
func mealNutrients(b *models.NutritionBreakdown) []models.MealNutrient {
	out := []models.MealNutrient{}
	seen := map[string]bool{}
	for _, item := range b.FoodItems {
		for _, n := range item.Nutrients {
			out = append(out, models.MealNutrient{Name: n.Name, Amount: float64(n.Amount), Unit: n.Unit})
			seen[n.Name] = true
		}
	}

	byID := make(map[string]healthKitNutrient, len(healthKitNutrients))
	for _, n := range healthKitNutrients {
		byID[n.Identifier] = n
	}
	for _, sample := range b.HealthKitSamples {
		n, ok := byID[sample.Identifier]
		if !ok || seen[n.Name] {
			continue
		}
		out = append(out, models.MealNutrient{Name: n.Name, Amount: float64(sample.Value), Unit: n.Unit})
		seen[n.Name] = true
	}
	return out
}

func (s *NutritionService) History(ctx context.Context, days int) ([]*models.MealEntry, error) {
	since, until := s.clock.Window(days)
	meals, err := s.store.ListByDateRange(ctx, since, until)
	if err != nil {
		return nil, &PersistenceError{Op: "read meal history", Err: err}
	}
	return meals, nil
}

// Summary aggregates one calendar date; an empty date means today.
func (s *NutritionService) Summary(ctx context.Context, rawDate string) (*models.DailyNutritionSummary, error) {
	date, err := s.clock.ParseDate(rawDate)
	if err != nil {
		return nil, err
	}
	summary, err := s.store.DailySummary(ctx, date)
	if err != nil {
		return nil, &PersistenceError{Op: "read nutrition summary", Err: err}
	}
	return summary, nil
}

func (s *NutritionService) GetMeal(ctx context.Context, id int64) (*models.MealEntry, error) {
	meal, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, mealError(err, "read meal")
	}
	return meal, nil
}

func (s *NutritionService) UpdateMeal(ctx context.Context, id int64, req *models.UpdateMealRequest) (*models.MealEntry, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, asValidationError(err)
	}
	meal, err := s.store.Update(ctx, id, req)
	if err != nil {
		return nil, mealError(err, "update meal")
	}
	return meal, nil
}

func (s *NutritionService) DeleteMeal(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return mealError(err, "delete meal")
	}
	return nil
}

func mealError(err error, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{Message: "Meal not found"}
	}
	return &PersistenceError{Op: op, Err: err}
}
