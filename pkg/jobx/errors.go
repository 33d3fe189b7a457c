package jobx

import "github.com/Abraxas-365/authbuilder/pkg/errx"

var jobxErrors = errx.NewRegistry("JOBX")

var (
	ErrEncodePayload  = jobxErrors.Register("ENCODE_PAYLOAD", errx.TypeInternal, 500, "Failed to encode job payload")
	ErrDecodePayload  = jobxErrors.Register("DECODE_PAYLOAD", errx.TypeValidation, 400, "Failed to decode job payload")
	ErrInvalidJob     = jobxErrors.Register("INVALID_JOB", errx.TypeValidation, 400, "Invalid job definition")
	ErrAlreadyRunning = jobxErrors.Register("ALREADY_RUNNING", errx.TypeConflict, 409, "Worker is already running")
)
