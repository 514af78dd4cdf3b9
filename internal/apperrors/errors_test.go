package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorKeepsFirstReason(t *testing.T) {
	v := NewValidationError("title", "Title is required")
	v.Add("title", "second")
	v.Add("media", "At least one media file is required")

	assert.Equal(t, "Title is required", v.Fields["title"])
	assert.Equal(t, "validation failed: media: At least one media file is required; title: Title is required", v.Error())
	assert.Error(t, v.OrNil())

	var empty *ValidationError
	assert.NoError(t, empty.OrNil())
}

func TestGatewayDoesNotDoubleWrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := Gateway("insert media", inner)
	assert.Same(t, err, Gateway("again", err))
	assert.ErrorIs(t, err, inner)
	assert.ErrorIs(t, Gateway("get entry", ErrNotFound), ErrNotFound)
	assert.NoError(t, Gateway("noop", nil))
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NewValidationError("f", "r"), http.StatusBadRequest},
		{&AuthError{}, http.StatusUnauthorized},
		{fmt.Errorf("load: %w", ErrNotFound), http.StatusNotFound},
		{&GatewayError{Op: "x", Err: errors.New("boom")}, http.StatusBadGateway},
		{&PartialUploadError{EntryID: "e"}, http.StatusMultiStatus},
		{&MetadataError{StoragePath: "e/images/1.png", Err: errors.New("bad header")}, http.StatusUnprocessableEntity},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
		assert.NotEmpty(t, UserMessage(tc.err))
	}
}

func TestPartialUploadUnwrapsFailures(t *testing.T) {
	cause := NewValidationError("media", "too big")
	err := &PartialUploadError{EntryID: "e1", Uploaded: 1, Skipped: 1, Failures: []FileFailure{{Index: 1, Name: "b.png", Err: cause}}}

	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Contains(t, err.Error(), "b.png")
}
