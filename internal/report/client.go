package report

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"healthbridge-backend/internal/models"
)

// Client reads the query endpoints of a running server.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) get(ctx context.Context, path string, days int, out any) error {
	u := c.baseURL + path + "?" + url.Values{"days": {strconv.Itoa(days)}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return nil
}

// Fetch loads everything the report needs for the last days days.
func (c *Client) Fetch(ctx context.Context, days int) (*Data, error) {
	var (
		summaries models.SummariesResponse
		workouts  models.WorkoutsResponse
		sleep     models.SleepResponse
		mood      models.MoodResponse
	)
	if err := c.get(ctx, "/api/health/summary", days, &summaries); err != nil {
		return nil, err
	}
	if err := c.get(ctx, "/api/health/workouts", days, &workouts); err != nil {
		return nil, err
	}
	if err := c.get(ctx, "/api/health/sleep", days, &sleep); err != nil {
		return nil, err
	}
	if err := c.get(ctx, "/api/health/mood", days, &mood); err != nil {
		return nil, err
	}
	return &Data{
		Summaries: summaries.Summaries,
		Workouts:  workouts.Workouts,
		Sleep:     sleep.Sleep,
		Mood:      mood.Mood,
	}, nil
}
