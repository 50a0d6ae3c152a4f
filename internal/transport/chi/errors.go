package chi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gomtr72/question-generator/internal/domain"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		validationHandler,
		contentHandler,
		synthesisHandler,
		sentinelHandler(domain.ErrQuotaExceeded, http.StatusServiceUnavailable, CodeQuotaExceeded),
		backendHandler,
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, CodeTimeout),
	}
}

func validationHandler(w http.ResponseWriter, err error) bool {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	var details map[string]any
	if ve.Field != "" {
		details = map[string]any{"field": ve.Field}
	}
	writeErrorDetails(w, http.StatusBadRequest, CodeValidation, ve.Error(), details)
	return true
}

func contentHandler(w http.ResponseWriter, err error) bool {
	var ce *domain.ContentError
	if !errors.As(err, &ce) {
		return false
	}
	writeErrorDetails(w, http.StatusUnprocessableEntity, CodeContentProcessing,
		ce.Message, map[string]any{"type": string(ce.Type)})
	return true
}

func synthesisHandler(w http.ResponseWriter, err error) bool {
	var se *domain.SynthesisError
	if !errors.As(err, &se) {
		return false
	}

	details := map[string]any{
		"stage": string(se.Stage),
		"kind":  string(se.Kind),
	}
	for k, v := range se.Details {
		details[k] = v
	}

	code, msg := synthesisCode(se)
	writeErrorDetails(w, http.StatusInternalServerError, code, msg, details)
	return true
}

func synthesisCode(se *domain.SynthesisError) (ErrorCode, string) {
	switch se.Kind {
	case domain.KindMalformedJSON:
		return CodeJSONParse, "model response is not valid JSON"
	case domain.KindShapeMismatch:
		if se.Stage == domain.StageQuestions {
			return CodeInvalidQuestions, "model returned questions in an unexpected format"
		}
		return CodeInvalidSummary, "model returned a summary in an unexpected format"
	case domain.KindInvariantViolation:
		return CodeInvariantViolation, "correct answer is not the highest-scored choice"
	default:
		if se.Stage == domain.StageFeedback {
			return CodeFeedbackGeneration, "failed to generate feedback"
		}
		return CodeSummaryGeneration, "failed to generate a summary"
	}
}

func backendHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrBackend) {
		return false
	}
	details := map[string]any{}
	var be *domain.BackendError
	if errors.As(err, &be) {
		details["provider"] = be.Provider
		if be.StatusCode > 0 {
			details["status_code"] = be.StatusCode
		}
	}
	if errors.Is(err, domain.ErrRateLimited) {
		details["rate_limited"] = true
	}
	writeErrorDetails(w, http.StatusServiceUnavailable, CodeBackend, "LLM backend unavailable", details)
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}
