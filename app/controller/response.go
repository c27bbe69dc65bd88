package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"storefront/models"
	"storefront/repository"
	"storefront/service"
)

func writeJSON(w http.ResponseWriter, code int, resp models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeData(w http.ResponseWriter, code int, data interface{}) {
	writeJSON(w, code, models.APIResponse{Success: true, Data: data})
}

func writeList(w http.ResponseWriter, data interface{}, count int) {
	writeJSON(w, http.StatusOK, models.APIResponse{Success: true, Count: &count, Data: data})
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, models.APIResponse{Success: false, Message: message})
}

// statusFor maps service and repository errors to an HTTP status
func statusFor(err error) int {
	switch {
	case service.IsInputError(err):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrDuplicate), errors.Is(err, repository.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, service.ErrTotalMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrImagesUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail logs err and answers with the matching status. Internal errors are
// not echoed to the client.
func fail(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError && code != http.StatusServiceUnavailable {
		logger.Error("❌ "+op+" failed", zap.Error(err))
		writeError(w, code, "internal server error")
		return
	}
	logger.Info("⚠️ "+op+" rejected", zap.Int("status", code), zap.Error(err))
	writeError(w, code, err.Error())
}
