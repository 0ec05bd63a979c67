package errors

// ErrorCode identifies a failure category across the service.
type ErrorCode int

// Code ranges:
// 10000-10999: system & common errors
// 12000-12999: problem catalog errors
// 13000-13999: judge & sandbox errors
const (
	Success ErrorCode = 10000

	// Generic (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	ServiceUnavailable  ErrorCode = 10004
	Timeout             ErrorCode = 10005

	// Cache (10200-10299)
	CacheError ErrorCode = 10200
	CacheMiss  ErrorCode = 10201

	// Validation (10300-10399)
	ValidationFailed ErrorCode = 10300

	// Problem catalog (12000-12099)
	ProblemNotFound    ErrorCode = 12000
	ProblemPackInvalid ErrorCode = 12001

	// Judge & sandbox (13000-13199)
	LanguageNotSupported ErrorCode = 13003
	JudgeSystemError     ErrorCode = 13101
	CompilationError     ErrorCode = 13102
	RuntimeError         ErrorCode = 13103
	TimeLimitExceeded    ErrorCode = 13104
	MemoryLimitExceeded  ErrorCode = 13105
	SandboxError         ErrorCode = 13107
	HarnessError         ErrorCode = 13108
)

var errorMessages = map[ErrorCode]string{
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	CacheError: "Cache operation failed",
	CacheMiss:  "Cache miss",

	ValidationFailed: "Validation failed",

	ProblemNotFound:    "Problem not found",
	ProblemPackInvalid: "Problem pack is invalid",

	LanguageNotSupported: "Programming language not supported",
	JudgeSystemError:     "Judge system error",
	CompilationError:     "Compilation error",
	RuntimeError:         "Runtime error",
	TimeLimitExceeded:    "Time limit exceeded",
	MemoryLimitExceeded:  "Memory limit exceeded",
	SandboxError:         "Sandbox infrastructure error",
	HarnessError:         "Harness synthesis failed",
}

// Message returns the default message for the error code.
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code.
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == NotFound, c == ProblemNotFound:
		return 404
	case c == InvalidParams, c == ValidationFailed, c == LanguageNotSupported:
		return 400
	case c == ServiceUnavailable:
		return 503
	default:
		return 500
	}
}
