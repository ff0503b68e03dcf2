package models

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

// SyncResponse acknowledges a committed sync.
type SyncResponse struct {
	Status string `json:"status"`
	SyncID int64  `json:"sync_id"`
}

// StatusResponse is returned by ping and by latest when nothing is stored.
type StatusResponse struct {
	Status string `json:"status"`
}

type SummariesResponse struct {
	Days      int             `json:"days"`
	Summaries []*DailySummary `json:"summaries"`
}

type WorkoutsResponse struct {
	Days     int              `json:"days"`
	Workouts []*WorkoutRecord `json:"workouts"`
}

type MoodResponse struct {
	Days int            `json:"days"`
	Mood []*MoodRecord `json:"mood"`
}

type SleepResponse struct {
	Days  int            `json:"days"`
	Sleep []*SleepRecord `json:"sleep"`
}

type MealHistoryResponse struct {
	Days  int          `json:"days"`
	Meals []*MealEntry `json:"meals"`
}
