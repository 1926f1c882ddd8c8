package llm

import (
	"fmt"
	"strings"
)

// ErrorKind enumerates the provider error taxonomy. The base kind is
// KindProviderError; everything else narrows it by status code or
// message content.
type ErrorKind string

const (
	KindProviderError      ErrorKind = "provider_error"
	KindAuthentication     ErrorKind = "authentication_error"
	KindAccessDenied       ErrorKind = "access_denied_error"
	KindNotFound           ErrorKind = "not_found_error"
	KindInvalidRequest     ErrorKind = "invalid_request_error"
	KindRateLimit          ErrorKind = "rate_limit_error"
	KindServerError        ErrorKind = "server_error"
	KindContentFilter      ErrorKind = "content_filter_error"
	KindContextLength      ErrorKind = "context_length_error"
	KindQuotaExceeded      ErrorKind = "quota_exceeded_error"
	KindRequestTimeout     ErrorKind = "request_timeout_error"
	KindAbort              ErrorKind = "abort_error"
	KindNetwork            ErrorKind = "network_error"
	KindStream             ErrorKind = "stream_error"
	KindInvalidToolCall    ErrorKind = "invalid_tool_call_error"
	KindNoObjectGenerated  ErrorKind = "no_object_generated_error"
	KindConfiguration      ErrorKind = "configuration_error"
)

// ProviderError is the single concrete error type for every kind in the
// taxonomy; Kind discriminates.
type ProviderError struct {
	Kind       ErrorKind
	Provider   string
	StatusCode int
	ErrorCode  string
	Raw        string
	Retryable  bool
	RetryAfter float64 // seconds; 0 means absent
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Provider, e.Message)
	}
	return fmt.Sprintf("[%s] %s (status=%d)", e.Kind, e.Provider, e.StatusCode)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

func (e *ProviderError) IsRetryable() bool {
	return e.Retryable
}

var contextLengthPhrases = []string{"context length", "too many tokens"}

var substringKindTable = []struct {
	substr string
	kind   ErrorKind
}{
	{"not found", KindNotFound},
	{"unauthorized", KindAuthentication},
	{"invalid key", KindAuthentication},
	{"context length", KindContextLength},
	{"too many tokens", KindContextLength},
	{"content filter", KindContentFilter},
	{"safety", KindContentFilter},
}

// ClassifyError maps a raw provider error (HTTP status code, when known,
// plus the raw message) to a ProviderError with the correct kind and
// retryability. statusCode == 0 means unknown/not HTTP-shaped.
func ClassifyError(provider string, statusCode int, message string, raw string, cause error) *ProviderError {
	lower := strings.ToLower(message)

	if statusCode == 400 || statusCode == 422 {
		if containsAny(lower, contextLengthPhrases) {
			return &ProviderError{Kind: KindContextLength, Provider: provider, StatusCode: statusCode, Message: message, Raw: raw, Cause: cause}
		}
	}
	if statusCode == 413 && containsAny(lower, contextLengthPhrases) {
		return &ProviderError{Kind: KindContextLength, Provider: provider, StatusCode: statusCode, Message: message, Raw: raw, Cause: cause}
	}

	switch statusCode {
	case 401:
		return &ProviderError{Kind: KindAuthentication, Provider: provider, StatusCode: statusCode, Message: message, Raw: raw, Cause: cause}
	case 403:
		return &ProviderError{Kind: KindAccessDenied, Provider: provider, StatusCode: statusCode, Message: message, Raw: raw, Cause: cause}
	case 404:
		return &ProviderError{Kind: KindNotFound, Provider: provider, StatusCode: statusCode, Message: message, Raw: raw, Cause: cause}
	case 400, 422:
		return &ProviderError{Kind: KindInvalidRequest, Provider: provider, StatusCode: statusCode, Message: message, Raw: raw, Cause: cause}
	case 408:
		return &ProviderError{Kind: KindRequestTimeout, Provider: provider, StatusCode: statusCode, Message: message, Raw: raw, Retryable: true, Cause: cause}
	case 429:
		return &ProviderError{Kind: KindRateLimit, Provider: provider, StatusCode: statusCode, Message: message, Raw: raw, Retryable: true, Cause: cause}
	}
	if statusCode >= 500 && statusCode < 600 {
		return &ProviderError{Kind: KindServerError, Provider: provider, StatusCode: statusCode, Message: message, Raw: raw, Retryable: true, Cause: cause}
	}

	for _, e := range substringKindTable {
		if strings.Contains(lower, e.substr) {
			return &ProviderError{Kind: e.kind, Provider: provider, StatusCode: statusCode, Message: message, Raw: raw, Cause: cause}
		}
	}

	// Unknown status, unknown message shape: retryable base ProviderError.
	return &ProviderError{Kind: KindProviderError, Provider: provider, StatusCode: statusCode, Message: message, Raw: raw, Retryable: true, Cause: cause}
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func NewAbortError(provider, message string) *ProviderError {
	return &ProviderError{Kind: KindAbort, Provider: provider, Message: message}
}

func NewConfigurationError(message string) *ProviderError {
	return &ProviderError{Kind: KindConfiguration, Message: message}
}

func NewNetworkError(provider, message string, cause error) *ProviderError {
	return &ProviderError{Kind: KindNetwork, Provider: provider, Message: message, Retryable: true, Cause: cause}
}

func NewStreamError(provider, message string, cause error) *ProviderError {
	return &ProviderError{Kind: KindStream, Provider: provider, Message: message, Cause: cause}
}

func NewInvalidToolCallError(message string) *ProviderError {
	return &ProviderError{Kind: KindInvalidToolCall, Message: message}
}

func NewNoObjectGeneratedError(message string) *ProviderError {
	return &ProviderError{Kind: KindNoObjectGenerated, Message: message}
}

func NewQuotaExceededError(provider, message string) *ProviderError {
	return &ProviderError{Kind: KindQuotaExceeded, Provider: provider, Message: message}
}
