package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"

	"healthbridge-backend/internal/logging"
	"healthbridge-backend/internal/report"
)

func main() {
	_ = godotenv.Load()

	baseURL := flag.String("url", envOr("HEALTHBRIDGE_URL", "http://localhost:8099"), "server base URL")
	apiKey := flag.String("api-key", os.Getenv("HEALTHBRIDGE_API_KEY"), "value of the X-API-Key header")
	days := flag.Int("days", 7, "number of days to include")
	flag.Parse()

	logging.Init(logging.Config{Level: "warn", Format: "console"})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	data, err := report.NewClient(*baseURL, *apiKey).Fetch(ctx, *days)
	if err != nil {
		logging.Fatal().Err(err).Msg("error fetching health data")
	}
	if err := report.Render(os.Stdout, data, time.Now()); err != nil {
		logging.Fatal().Err(err).Msg("error writing report")
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
