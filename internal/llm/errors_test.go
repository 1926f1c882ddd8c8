package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyErrorStatusCodeMapping(t *testing.T) {
	cases := []struct {
		status int
		msg    string
		want   ErrorKind
		retry  bool
	}{
		{401, "bad key", KindAuthentication, false},
		{403, "denied", KindAccessDenied, false},
		{404, "missing", KindNotFound, false},
		{400, "bad request", KindInvalidRequest, false},
		{422, "unprocessable", KindInvalidRequest, false},
		{408, "timed out", KindRequestTimeout, true},
		{429, "slow down", KindRateLimit, true},
		{500, "oops", KindServerError, true},
		{503, "oops", KindServerError, true},
	}
	for _, c := range cases {
		err := ClassifyError("openai", c.status, c.msg, "", nil)
		assert.Equal(t, c.want, err.Kind, "status %d", c.status)
		assert.Equal(t, c.retry, err.Retryable, "status %d", c.status)
	}
}

func TestClassifyErrorContextLengthOverridesGenericStatus(t *testing.T) {
	err := ClassifyError("anthropic", 400, "This request exceeds the context length limit", "", nil)
	assert.Equal(t, KindContextLength, err.Kind)

	err2 := ClassifyError("anthropic", 422, "too many tokens in prompt", "", nil)
	assert.Equal(t, KindContextLength, err2.Kind)
}

func TestClassifyErrorUnknownStatusFallsBackToMessageSubstring(t *testing.T) {
	err := ClassifyError("gemini", 0, "resource not found upstream", "", nil)
	assert.Equal(t, KindNotFound, err.Kind)

	err2 := ClassifyError("gemini", 0, "blocked for safety reasons", "", nil)
	assert.Equal(t, KindContentFilter, err2.Kind)
}

func TestClassifyErrorUnknownEverythingIsRetryableProviderError(t *testing.T) {
	err := ClassifyError("gemini", 0, "something weird happened", "", nil)
	assert.Equal(t, KindProviderError, err.Kind)
	assert.True(t, err.Retryable)
}
