package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeVideoRef(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("dQw4w9WgXcQ", NormalizeVideoRef("dQw4w9WgXcQ"))
	assert.Equal("dQw4w9WgXcQ", NormalizeVideoRef("https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=10"))
	assert.Equal("dQw4w9WgXcQ", NormalizeVideoRef("https://youtu.be/dQw4w9WgXcQ"))
	assert.Equal("dQw4w9WgXcQ", NormalizeVideoRef("  https://www.youtube.com/shorts/dQw4w9WgXcQ "))
	assert.Equal("short", NormalizeVideoRef("short"))
}

func TestFormatDuration(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("00:00", FormatDuration(-5))
	assert.Equal("03:33", FormatDuration(213))
	assert.Equal("1:01:01", FormatDuration(3661))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", TruncateString("abc", 5))
	assert.Equal(t, "ab...", TruncateString("abcdefgh", 5))
}

func TestStatusCode(t *testing.T) {
	assert := assert.New(t)

	bad := BadRequestError("bad id", nil)
	assert.Equal(http.StatusBadRequest, StatusCode(bad))
	assert.Equal(http.StatusBadRequest, StatusCode(fmt.Errorf("%w: short", bad)))
	assert.Equal(http.StatusBadGateway, StatusCode(NewAppError(errors.New("up"), "upstream", http.StatusBadGateway)))
	assert.Equal(http.StatusInternalServerError, StatusCode(errors.New("boom")))
}

func TestFormatValidationErrors(t *testing.T) {
	type query struct {
		Limit int `query:"limit" validate:"min=1,max=50"`
	}
	errs := FormatValidationErrors(Validate(query{Limit: 90}))
	assert.Equal(t, "Value must be less than or equal to 50", errs["limit"])

	assert.Nil(t, FormatValidationErrors(nil))
	assert.Equal(t, map[string]string{"general": "boom"}, FormatValidationErrors(errors.New("boom")))
}

func TestGetRequestIP(t *testing.T) {
	r, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", GetRequestIP(r))

	r.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	assert.Equal(t, "1.2.3.4", GetRequestIP(r))
}
