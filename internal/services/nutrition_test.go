package services

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthbridge-backend/internal/models"
	"healthbridge-backend/internal/repository"
)

type fakeCompletion struct {
	mu     sync.Mutex
	text   string
	err    error
	block  chan struct{}
	calls  int
	prompt string
	image  *Image
}

func (f *fakeCompletion) Complete(ctx context.Context, prompt string, image *Image) (string, error) {
	f.mu.Lock()
	f.calls++
	f.prompt = prompt
	f.image = image
	f.mu.Unlock()
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

const eggsAndToast = "Here is the analysis:\n```json\n" + `{
  "description": "2 eggs and toast",
  "food_items": [
    {"name": "Egg", "portion": "2 large", "calories": 156, "protein_g": 12.6, "carbs_g": 1.1, "fat_g": 10.6,
     "fiber_g": 0, "sugar_g": 1.1, "sodium_mg": 142,
     "nutrients": [{"name": "Cholesterol", "amount": 372, "unit": "mg", "daily_value_pct": 124}]},
    {"name": "Toast", "portion": "1 slice", "calories": "80 kcal", "protein_g": 3, "carbs_g": 14, "fat_g": 1,
     "fiber_g": 1, "sugar_g": 1.5, "sodium_mg": 150, "nutrients": []}
  ],
  "totals": {"calories": 236, "protein_g": 15.6, "carbs_g": 15.1, "fat_g": 11.6, "fiber_g": 1, "sugar_g": 2.6, "sodium_mg": 292},
  "healthkit_samples": [
    {"identifier": "dietaryEnergyConsumed", "value": 236, "unit": "kcal"},
    {"identifier": "dietaryCholesterol", "value": 372, "unit": "mg"},
    {"identifier": "dietaryUnknownThing", "value": 1, "unit": "g"}
  ]
}` + "\n```\nEnjoy!"

func newNutritionService(t *testing.T, client CompletionClient, timeout time.Duration) (*NutritionService, *repository.MealRepo) {
	t.Helper()
	repo := repository.NewMealRepo(newTestDB(t))
	clock := fixedClock(t, "2025-03-02T12:30:00Z")
	return NewNutritionService(client, repo, clock, timeout), repo
}

func TestAnalyze_FencedResponse(t *testing.T) {
	ctx := context.Background()
	client := &fakeCompletion{text: eggsAndToast}
	svc, repo := newNutritionService(t, client, time.Second)

	resp, err := svc.Analyze(ctx, &models.AnalyzeNutritionRequest{Text: "2 eggs and toast"})
	require.NoError(t, err)

	assert.Equal(t, 1, client.calls)
	assert.Contains(t, client.prompt, "Food description: 2 eggs and toast")
	assert.Nil(t, client.image)

	assert.NotZero(t, resp.MealID)
	assert.Equal(t, "2025-03-02T12:30:00Z", resp.Timestamp)
	assert.Equal(t, "2 eggs and toast", resp.Description)
	require.Len(t, resp.FoodItems, 2)
	assert.Equal(t, models.Number(80), resp.FoodItems[1].Calories)
	assert.Equal(t, models.Number(236), resp.Totals.Calories)
	assert.Len(t, resp.HealthKitSamples, 3)

	meal, err := repo.GetByID(ctx, resp.MealID)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-02", meal.Date)
	assert.Equal(t, eggsAndToast, meal.AnalysisJSON)
	assert.Equal(t, 236.0, meal.TotalCalories)
	assert.Equal(t, []models.MealNutrient{
		{Name: "Cholesterol", Amount: 372, Unit: "mg"},
		{Name: "Energy", Amount: 236, Unit: "kcal"},
	}, meal.Nutrients)
}

func TestAnalyze_WithImage(t *testing.T) {
	client := &fakeCompletion{text: `{"description": "salad", "totals": {"calories": 120}}`}
	svc, _ := newNutritionService(t, client, time.Second)

	img := base64.StdEncoding.EncodeToString([]byte("fake-png-bytes"))
	resp, err := svc.Analyze(context.Background(), &models.AnalyzeNutritionRequest{
		ImageBase64:   img,
		ImageMimeType: "image/png",
	})
	require.NoError(t, err)

	require.NotNil(t, client.image)
	assert.Equal(t, "image/png", client.image.MimeType)
	assert.Equal(t, []byte("fake-png-bytes"), client.image.Data)
	assert.True(t, strings.HasPrefix(client.prompt, "I have provided a food image (image/png)"))
	assert.NotNil(t, resp.FoodItems)
	assert.NotNil(t, resp.HealthKitSamples)
}

func TestAnalyze_TimeoutStoresNothing(t *testing.T) {
	ctx := context.Background()
	client := &fakeCompletion{text: eggsAndToast, block: make(chan struct{})}
	t.Cleanup(func() { close(client.block) })
	svc, repo := newNutritionService(t, client, 50*time.Millisecond)

	_, err := svc.Analyze(ctx, &models.AnalyzeNutritionRequest{Text: "2 eggs and toast"})
	var te *GatewayTimeoutError
	require.True(t, errors.As(err, &te), "got %T", err)

	meals, err := repo.ListByDateRange(ctx, "2000-01-01", "2100-01-01")
	require.NoError(t, err)
	assert.Empty(t, meals)
}

func TestAnalyze_ParseErrorStoresNothing(t *testing.T) {
	ctx := context.Background()
	client := &fakeCompletion{text: "Sorry, I cannot help with that."}
	svc, repo := newNutritionService(t, client, time.Second)

	_, err := svc.Analyze(ctx, &models.AnalyzeNutritionRequest{Text: "a sandwich"})
	var pe *ParseError
	require.True(t, errors.As(err, &pe), "got %T", err)

	meals, err := repo.ListByDateRange(ctx, "2000-01-01", "2100-01-01")
	require.NoError(t, err)
	assert.Empty(t, meals)
}

func TestAnalyze_GatewayFailure(t *testing.T) {
	client := &fakeCompletion{err: errors.New("quota exceeded")}
	svc, _ := newNutritionService(t, client, time.Second)

	_, err := svc.Analyze(context.Background(), &models.AnalyzeNutritionRequest{Text: "soup"})
	var ge *GatewayError
	require.True(t, errors.As(err, &ge), "got %T", err)
}

func TestAnalyze_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	client := &fakeCompletion{err: errors.New("503 from upstream")}
	svc, _ := newNutritionService(t, client, time.Second)

	for i := 0; i < 7; i++ {
		_, _ = svc.Analyze(context.Background(), &models.AnalyzeNutritionRequest{Text: "soup"})
	}
	assert.Equal(t, 5, client.calls)
}

func TestAnalyze_CallerCancelIsNotTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &fakeCompletion{text: eggsAndToast, block: make(chan struct{})}
	t.Cleanup(func() { close(client.block) })
	svc, repo := newNutritionService(t, client, time.Minute)

	cancel()
	for i := 0; i < 7; i++ {
		_, err := svc.Analyze(ctx, &models.AnalyzeNutritionRequest{Text: "soup"})
		require.ErrorIs(t, err, context.Canceled)
		var te *GatewayTimeoutError
		assert.False(t, errors.As(err, &te))
	}

	assert.Eventually(t, func() bool {
		return svc.breaker.Counts().Requests == 7
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, gobreaker.StateClosed, svc.breaker.State())
	assert.Zero(t, svc.breaker.Counts().TotalFailures)

	meals, err := repo.ListByDateRange(context.Background(), "2000-01-01", "2100-01-01")
	require.NoError(t, err)
	assert.Empty(t, meals)
}

func TestAnalyze_Validation(t *testing.T) {
	svc, _ := newNutritionService(t, &fakeCompletion{}, time.Second)

	_, err := svc.Analyze(context.Background(), &models.AnalyzeNutritionRequest{})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "got %T", err)
	assert.Contains(t, ve.Fields, "text")
}

func TestAnalyze_NotConfigured(t *testing.T) {
	svc, _ := newNutritionService(t, nil, time.Second)

	_, err := svc.Analyze(context.Background(), &models.AnalyzeNutritionRequest{Text: "rice"})
	var ue *UnavailableError
	assert.True(t, errors.As(err, &ue))
}

func TestMealOperations(t *testing.T) {
	ctx := context.Background()
	svc, _ := newNutritionService(t, &fakeCompletion{text: eggsAndToast}, time.Second)

	resp, err := svc.Analyze(ctx, &models.AnalyzeNutritionRequest{Text: "2 eggs and toast"})
	require.NoError(t, err)

	cal := 300.0
	meal, err := svc.UpdateMeal(ctx, resp.MealID, &models.UpdateMealRequest{TotalCalories: &cal})
	require.NoError(t, err)
	assert.Equal(t, 300.0, meal.TotalCalories)

	history, err := svc.History(ctx, 7)
	require.NoError(t, err)
	require.Len(t, history, 1)

	summary, err := svc.Summary(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-02", summary.Date)
	assert.Equal(t, 1, summary.MealCount)
	assert.Equal(t, 300.0, summary.Totals.Calories)

	_, err = svc.Summary(ctx, "March 2")
	var bre *BadRequestError
	assert.True(t, errors.As(err, &bre))

	require.NoError(t, svc.DeleteMeal(ctx, resp.MealID))

	var nf *NotFoundError
	_, err = svc.GetMeal(ctx, resp.MealID)
	assert.True(t, errors.As(err, &nf))
	err = svc.DeleteMeal(ctx, resp.MealID)
	assert.True(t, errors.As(err, &nf))
}
