package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gomtr72/question-generator/internal/domain"
	domusage "github.com/gomtr72/question-generator/internal/domain/usage"
	"github.com/gomtr72/question-generator/internal/logger"
	"github.com/gomtr72/question-generator/internal/metrics"
	healthuc "github.com/gomtr72/question-generator/internal/usecase/health"
	usageuc "github.com/gomtr72/question-generator/internal/usecase/usage"
	"github.com/gomtr72/question-generator/internal/version"
)

// DefaultMaxUploadBytes caps POST /process bodies.
const DefaultMaxUploadBytes = 16 << 20

// multipart parts beyond this are spooled to disk by net/http.
const multipartMemory = 8 << 20

// Server serves the question generator HTTP API.
type Server struct {
	pipeline       Pipeline
	feedback       FeedbackGenerator
	usage          *usageuc.Service
	health         *healthuc.Service
	logger         *zap.Logger
	validate       *validator.Validate
	maxUploadBytes int64
	errorHandlers  []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	pipeline Pipeline,
	feedback FeedbackGenerator,
	usage *usageuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		pipeline:       pipeline,
		feedback:       feedback,
		usage:          usage,
		health:         health,
		logger:         logger,
		validate:       newValidator(),
		maxUploadBytes: DefaultMaxUploadBytes,
		errorHandlers:  defaultErrorHandlers(),
	}
}

// WithMaxUploadBytes overrides the POST /process body limit.
func (s *Server) WithMaxUploadBytes(n int64) *Server {
	if n > 0 {
		s.maxUploadBytes = n
	}
	return s
}

// Routes registers the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/process", s.Process)
	r.Post("/feedback", s.Feedback)
	r.Get("/health", s.HealthCheck)
	r.Get("/usage", s.GetUsage)
	r.Get("/version", s.Version)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
	})
}

// Process handles POST /process.
func (s *Server) Process(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	src, err := s.decodeSource(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	r = r.WithContext(logger.With(r.Context(), zap.String("content_type", string(src.Type))))

	ctx, usage := domain.NewContextWithUsage(r.Context())
	quiz, err := s.pipeline.Process(ctx, src)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, ProcessResponse{
		Summary:   quiz.Summary,
		Topics:    quiz.Topics,
		Questions: quiz.Questions,
	})
}

// Feedback handles POST /feedback.
func (s *Server) Feedback(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.handleDomainError(w, r, s.bodyError(err, "question"))
		return
	}
	if err := s.validateStruct(&req); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	fb, err := s.feedback.Generate(ctx, req.Question, req.GPTLevel, req.UserLevel)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, FeedbackResponse{Feedback: fb.Text})
}

// GetUsage handles GET /usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	var raw *string
	if err := runtime.BindQueryParameter("form", true, false, "period", r.URL.Query(), &raw); err != nil {
		s.handleDomainError(w, r, domain.NewValidationError("period", "invalid period parameter"))
		return
	}
	periodStr := ""
	if raw != nil {
		periodStr = *raw
	}
	period, ok := domusage.ParsePeriod(periodStr)
	if !ok {
		s.handleDomainError(w, r, domain.NewValidationError("period", "period must be one of day, month, total"))
		return
	}

	report := s.usage.GetReport(r.Context(), period)

	resp := UsageResponse{
		Period:   string(report.Period()),
		Provider: report.Provider(),
		Usage: UsageMetrics{
			CompletionRequests: report.Metrics().CompletionRequests(),
			Tokens:             report.Metrics().Tokens(),
		},
		Budget: BudgetStatus{
			Unlimited:       report.Budget().Unlimited(),
			TokensLimit:     report.Budget().TokensLimit(),
			TokensUsed:      report.Budget().TokensUsed(),
			TokensRemaining: report.Budget().TokensRemaining(),
			IsExhausted:     report.Budget().IsExhausted(),
		},
	}

	if cost := report.Metrics().CostMillidollars(); cost > 0 {
		resp.Usage.CostMillidollars = &cost
	}

	if report.PeriodStart() > 0 {
		start := time.UnixMilli(report.PeriodStart()).UTC()
		end := time.UnixMilli(report.PeriodEnd()).UTC()
		resp.PeriodStartAt = &start
		resp.PeriodEndAt = &end
	}

	if report.Budget().ResetsAt() > 0 {
		resetsAt := time.UnixMilli(report.Budget().ResetsAt()).UTC()
		resp.Budget.ResetsAt = &resetsAt
	}

	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Version handles GET /version.
func (s *Server) Version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, version.Get())
}

// decodeSource reads a JSON or multipart body into a pipeline source.
func (s *Server) decodeSource(r *http.Request) (domain.Source, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		req  ProcessRequest
		file *domain.File
	)
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return domain.Source{}, s.bodyError(err, "file")
		}
		req.Type = r.FormValue("type")
		req.Content = r.FormValue("content")

		f, err := formFile(r)
		if err != nil {
			return domain.Source{}, s.bodyError(err, "file")
		}
		file = f
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return domain.Source{}, s.bodyError(err, "file")
		}
	}

	if err := s.validateStruct(&req); err != nil {
		return domain.Source{}, err
	}

	return domain.Source{
		Type:    domain.ContentType(req.Type),
		Content: req.Content,
		File:    file,
	}, nil
}

func formFile(r *http.Request) (*domain.File, error) {
	f, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read form file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read form file: %w", err)
	}
	return &domain.File{Name: header.Filename, Data: data}, nil
}

func (s *Server) bodyError(err error, field string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return domain.NewValidationError(field,
			fmt.Sprintf("request body exceeds %d MB", s.maxUploadBytes>>20))
	}
	return domain.NewValidationError("", "invalid request body")
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct converts the first validator failure into a domain.ValidationError.
func (s *Server) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return domain.NewValidationError(fe.Field(), fe.Field()+" is required")
		case "oneof":
			return domain.NewValidationError(fe.Field(), "must be one of: "+fe.Param())
		default:
			return domain.NewValidationError(fe.Field(), "failed "+fe.Tag()+" validation")
		}
	}
	return domain.NewValidationError("", err.Error())
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.CompletionUsage) {
	if usage != nil && usage.Calls() > 0 {
		w.Header().Set(metrics.LLMTokensHeader, strconv.Itoa(usage.TotalTokens()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeErrorDetails(w, status, code, message, nil)
}

func writeErrorDetails(w http.ResponseWriter, status int, code ErrorCode, message string, details map[string]any) {
	writeJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("request failed", zap.Error(err))
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalServerError, "internal error")
}
