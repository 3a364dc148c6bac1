package api

import (
	"encoding/json"
	"net/http"

	"github.com/xraph/apothecary"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// StatusFor maps a shop error to its HTTP status.
func StatusFor(err error) int {
	switch apothecary.KindOf(err) {
	case apothecary.KindCartNotFound, apothecary.KindItemNotFound, apothecary.KindTransactionNotFound:
		return http.StatusNotFound
	case apothecary.KindCartAlreadySettled:
		return http.StatusConflict
	case apothecary.KindInvalidQuantity, apothecary.KindInvalidInput:
		return http.StatusBadRequest
	case apothecary.KindInsufficientStock:
		return http.StatusUnprocessableEntity
	case apothecary.KindStorageFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondShopError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	code := string(apothecary.KindOf(err))
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "code", code, "error", err)
	}
	if code == "" {
		code = "internal_error"
	}
	respondError(w, status, code, err.Error())
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}
