package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wonny/sectorcast/internal/contracts"
)

var validate = validator.New()

// FieldError 요청 검증 실패 항목
type FieldError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ErrorResponse 에러 응답 본문
type ErrorResponse struct {
	Error  string       `json:"error"`
	Fields []FieldError `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondDomainError 파이프라인 에러를 HTTP 상태로 매핑
func respondDomainError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, contracts.ErrModelNotTrained),
		errors.Is(err, contracts.ErrInsufficientHistory),
		errors.Is(err, contracts.ErrNoResolvedPredictions):
		return http.StatusNotFound
	case errors.Is(err, contracts.ErrAlreadyResolved):
		return http.StatusConflict
	case errors.Is(err, contracts.ErrTrainingDataInsufficient):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// readAndValidate 본문 디코딩 → 검증
// 실패 시 400 응답을 쓰고 false 반환
func readAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	if err := validate.StructCtx(r.Context(), req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			respondError(w, http.StatusBadRequest, err.Error())
			return false
		}
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{
				Code:    "ERR_" + strings.ToUpper(fe.Tag()),
				Field:   fe.Field(),
				Message: fieldMessage(fe),
			})
		}
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation failed", Fields: fields})
		return false
	}
	return true
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "datetime":
		return fmt.Sprintf("%s must be a date in %s format", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

// periodParam ?period=N (없으면 def), 양수가 아니면 에러
func periodParam(r *http.Request, def int) (int, error) {
	s := r.URL.Query().Get("period")
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("period must be a positive integer, got %q", s)
	}
	return n, nil
}
