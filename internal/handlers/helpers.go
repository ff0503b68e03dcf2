package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"

	"healthbridge-backend/internal/logging"
	"healthbridge-backend/internal/models"
	"healthbridge-backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: logging.RequestIDFromContext(r.Context()),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	resp := errorResp(code, message, r)
	resp.Error.Fields = fields
	return resp
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr  *services.ValidationError
		badRequestErr  *services.BadRequestError
		unauthorized   *services.UnauthorizedError
		notFoundErr    *services.NotFoundError
		persistenceErr *services.PersistenceError
		timeoutErr     *services.GatewayTimeoutError
		gatewayErr     *services.GatewayError
		parseErr       *services.ParseError
		unavailableErr *services.UnavailableError
	)

	switch {
	case errors.Is(err, context.Canceled):
		// The caller has gone away; there is nobody to answer.
		logging.Ctx(r.Context()).Debug().Err(err).Msg("request canceled")
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", validationErr.Fields, r))
	case errors.As(err, &badRequestErr):
		writeJSON(w, http.StatusBadRequest, errorResp("BAD_REQUEST", badRequestErr.Message, r))
	case errors.As(err, &unauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", unauthorized.Message, r))
	case errors.As(err, &notFoundErr):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", notFoundErr.Message, r))
	case errors.As(err, &persistenceErr):
		logging.Ctx(r.Context()).Error().Err(err).Msg("storage failure")
		writeJSON(w, http.StatusInternalServerError, errorResp("PERSISTENCE_ERROR", "Storage failure, nothing was saved. Please retry.", r))
	case errors.As(err, &timeoutErr):
		writeJSON(w, http.StatusGatewayTimeout, errorResp("GATEWAY_TIMEOUT", timeoutErr.Message, r))
	case errors.As(err, &gatewayErr):
		writeJSON(w, http.StatusBadGateway, errorResp("GATEWAY_ERROR", gatewayErr.Message, r))
	case errors.As(err, &parseErr):
		writeJSON(w, http.StatusBadGateway, errorResp("PARSE_ERROR", "Could not read the nutrition analysis", r))
	case errors.As(err, &unavailableErr):
		writeJSON(w, http.StatusServiceUnavailable, errorResp("UNAVAILABLE", unavailableErr.Message, r))
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("unhandled error")
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
