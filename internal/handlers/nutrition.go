package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"healthbridge-backend/internal/models"
)

type nutritionAPI interface {
	Analyze(ctx context.Context, req *models.AnalyzeNutritionRequest) (*models.NutritionAnalysisResponse, error)
	History(ctx context.Context, days int) ([]*models.MealEntry, error)
	Summary(ctx context.Context, rawDate string) (*models.DailyNutritionSummary, error)
	GetMeal(ctx context.Context, id int64) (*models.MealEntry, error)
	UpdateMeal(ctx context.Context, id int64, req *models.UpdateMealRequest) (*models.MealEntry, error)
	DeleteMeal(ctx context.Context, id int64) error
}

type NutritionHandler struct {
	nutrition nutritionAPI
	maxBody   int64
}

func NewNutritionHandler(nutrition nutritionAPI, maxBody int64) *NutritionHandler {
	return &NutritionHandler{nutrition: nutrition, maxBody: maxBody}
}

func (h *NutritionHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyzeNutritionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	stripDataURL(&req)

	resp, err := h.nutrition.Analyze(r.Context(), &req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// stripDataURL accepts "data:image/png;base64,..." as sent by web clients.
func stripDataURL(req *models.AnalyzeNutritionRequest) {
	if !strings.HasPrefix(req.ImageBase64, "data:") {
		return
	}
	header, data, ok := strings.Cut(req.ImageBase64, ",")
	if !ok {
		return
	}
	req.ImageBase64 = data
	if req.ImageMimeType == "" {
		mime := strings.TrimPrefix(header, "data:")
		mime, _, _ = strings.Cut(mime, ";")
		req.ImageMimeType = mime
	}
}

func (h *NutritionHandler) History(w http.ResponseWriter, r *http.Request) {
	days, ok := daysParam(w, r)
	if !ok {
		return
	}
	meals, err := h.nutrition.History(r.Context(), days)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.MealHistoryResponse{Days: days, Meals: meals})
}

func (h *NutritionHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.nutrition.Summary(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *NutritionHandler) GetMeal(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid meal ID", r))
		return
	}
	meal, err := h.nutrition.GetMeal(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meal)
}

func (h *NutritionHandler) UpdateMeal(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid meal ID", r))
		return
	}

	var req models.UpdateMealRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	meal, err := h.nutrition.UpdateMeal(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meal)
}

func (h *NutritionHandler) DeleteMeal(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid meal ID", r))
		return
	}
	if err := h.nutrition.DeleteMeal(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "deleted", "id": id})
}
