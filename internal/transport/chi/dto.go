package chi

import (
	"time"

	"github.com/gomtr72/question-generator/internal/domain"
)

// ErrorCode is the machine-readable error_code of an error envelope.
type ErrorCode string

// Error codes.
const (
	CodeValidation          ErrorCode = "VALIDATION_ERROR"
	CodeContentProcessing   ErrorCode = "CONTENT_PROCESSING_ERROR"
	CodeJSONParse           ErrorCode = "JSON_PARSE_ERROR"
	CodeInvalidSummary      ErrorCode = "INVALID_SUMMARY_FORMAT"
	CodeInvalidQuestions    ErrorCode = "INVALID_QUESTIONS_FORMAT"
	CodeInvariantViolation  ErrorCode = "QUESTION_INVARIANT_VIOLATION"
	CodeSummaryGeneration   ErrorCode = "SUMMARY_GENERATION_ERROR"
	CodeFeedbackGeneration  ErrorCode = "FEEDBACK_GENERATION_ERROR"
	CodeQuotaExceeded       ErrorCode = "LLM_QUOTA_EXCEEDED"
	CodeBackend             ErrorCode = "LLM_BACKEND_ERROR"
	CodeTimeout             ErrorCode = "TIMEOUT"
	CodeNotFound            ErrorCode = "NOT_FOUND"
	CodeMethodNotAllowed    ErrorCode = "METHOD_NOT_ALLOWED"
	CodeInternalServerError ErrorCode = "INTERNAL_SERVER_ERROR"
)

// ErrorResponse is the error envelope of every non-2xx response.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    ErrorCode      `json:"error_code"`
	Details map[string]any `json:"details,omitempty"`
}

// ProcessRequest is the JSON (or multipart form) body of POST /process.
type ProcessRequest struct {
	Type    string `json:"type" validate:"required,oneof=text pdf image youtube website"`
	Content string `json:"content"`
}

// ProcessResponse is the quiz returned by POST /process.
type ProcessResponse struct {
	Summary   string            `json:"summary"`
	Topics    []string          `json:"topics"`
	Questions []domain.Question `json:"questions"`
}

// FeedbackRequest is the body of POST /feedback.
type FeedbackRequest struct {
	Question  string `json:"question" validate:"required"`
	GPTLevel  string `json:"gpt_level" validate:"required"`
	UserLevel string `json:"user_level" validate:"required"`
}

// FeedbackResponse is the body returned by POST /feedback.
type FeedbackResponse struct {
	Feedback string `json:"feedback"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// UsageMetrics is the consumption part of a usage report.
type UsageMetrics struct {
	CompletionRequests int  `json:"completion_requests"`
	Tokens             int  `json:"tokens"`
	CostMillidollars   *int `json:"cost_millidollars,omitempty"`
}

// BudgetStatus is the limit part of a usage report.
type BudgetStatus struct {
	Unlimited       bool       `json:"unlimited"`
	TokensLimit     int        `json:"tokens_limit"`
	TokensUsed      int        `json:"tokens_used"`
	TokensRemaining int        `json:"tokens_remaining"`
	IsExhausted     bool       `json:"is_exhausted"`
	ResetsAt        *time.Time `json:"resets_at,omitempty"`
}

// UsageResponse is the body of GET /usage.
type UsageResponse struct {
	Period        string       `json:"period"`
	Provider      string       `json:"provider,omitempty"`
	PeriodStartAt *time.Time   `json:"period_start_at,omitempty"`
	PeriodEndAt   *time.Time   `json:"period_end_at,omitempty"`
	Usage         UsageMetrics `json:"usage"`
	Budget        BudgetStatus `json:"budget"`
}
