package questiongen

import "github.com/gomtr72/question-generator/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrValidation        = domain.ErrValidation
	ErrContentProcessing = domain.ErrContentProcessing
	ErrSynthesis         = domain.ErrSynthesis
	ErrBackend           = domain.ErrBackend
	ErrRateLimited       = domain.ErrRateLimited
	ErrQuotaExceeded     = domain.ErrQuotaExceeded
)

// Typed errors carrying details. Use errors.As() to inspect.
type (
	ValidationError = domain.ValidationError
	SynthesisError  = domain.SynthesisError
	BackendError    = domain.BackendError
)
