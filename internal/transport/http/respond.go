package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/flora-agent/flora/internal/domain"
	"github.com/flora-agent/flora/internal/service/auth"
)

// errorBody — единый конверт ошибки API.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// validationSentinels — доменные ошибки валидации, которые API отдаёт как 400.
var validationSentinels = []error{
	domain.ErrCustomerRequired,
	domain.ErrItemsRequired,
	domain.ErrItemQtyInvalid,
	domain.ErrItemPriceInvalid,
	domain.ErrFlowerIDRequired,
	domain.ErrOrderStatusInvalid,
	domain.ErrFlowerNameRequired,
	domain.ErrFlowerPriceInvalid,
	domain.ErrStockNegative,
	domain.ErrCustomerFirstNameRequired,
	domain.ErrCustomerLastNameRequired,
	domain.ErrCustomerEmailRequired,
	domain.ErrUsernameRequired,
	domain.ErrUserEmailRequired,
	domain.ErrPasswordTooWeak,
}

// respondDomainError переводит доменную ошибку в HTTP-ответ.
func respondDomainError(w http.ResponseWriter, logger *log.Entry, err error) {
	switch {
	case domain.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case domain.IsInsufficientStock(err):
		writeError(w, http.StatusConflict, "insufficient_stock", err.Error())
	case domain.IsIntegrityConflict(err):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case domain.IsConstraintBlocked(err):
		writeError(w, http.StatusConflict, "constraint_blocked", err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
	case errors.Is(err, auth.ErrTokenInvalid), errors.Is(err, auth.ErrTokenWrongType):
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
	case errors.Is(err, auth.ErrUserInactive):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	default:
		logger.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

func isValidationError(err error) bool {
	for _, sentinel := range validationSentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
