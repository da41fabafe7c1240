package apperr

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_MatchesKindAndCause(t *testing.T) {
	err := Wrap(ErrFormat, io.ErrUnexpectedEOF, "parse pdf")
	assert.ErrorIs(t, err, ErrFormat)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, "format error: parse pdf: unexpected EOF", err.Error())
}

func TestError_WrappedFurther(t *testing.T) {
	err := fmt.Errorf("document a.pdf: %w", New(ErrSizeLimit, "too big"))
	assert.ErrorIs(t, err, ErrSizeLimit)
	assert.Equal(t, "size_limit_exceeded", Kind(err))
	assert.Equal(t, http.StatusRequestEntityTooLarge, HTTPStatus(err))
}

func TestKind(t *testing.T) {
	assert.Equal(t, "", Kind(nil))
	assert.Equal(t, "format_error", Kind(Newf(ErrFormat, "bad %s", "docx")))
	assert.Equal(t, "remote_service_error", Kind(New(ErrRemoteService, "x")))
	assert.Equal(t, "remote_service_unavailable", Kind(New(ErrRemoteUnavailable, "x")))
	assert.Equal(t, "internal_error", Kind(errors.New("boom")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnsupportedMediaType, HTTPStatus(New(ErrFormat, "x")))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(New(ErrRemoteService, "x")))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(New(ErrRemoteUnavailable, "x")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}
