package errs_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pbaille/notable/internal/errs"
)

func TestCodeOf(t *testing.T) {
	err := errs.New(errs.CodeStoreNoteNotFound, "note missing")
	assert.Equal(t, errs.CodeStoreNoteNotFound, errs.CodeOf(err))
	assert.Equal(t, errs.Code(""), errs.CodeOf(errors.New("plain")))
	assert.Equal(t, errs.Code(""), errs.CodeOf(nil))
}

func TestWrapPreservesNil(t *testing.T) {
	assert.NoError(t, errs.Wrap(nil, errs.CodeStoreDatabase, "x"))
	assert.NoError(t, errs.Wrapf(nil, errs.CodeStoreDatabase, "x %d", 1))
}

func TestPredicates(t *testing.T) {
	assert.True(t, errs.IsNotFound(errs.New(errs.CodeStoreNoteNotFound, "x")))
	assert.False(t, errs.IsNotFound(errs.New(errs.CodeStoreDatabase, "x")))

	assert.True(t, errs.IsInvalidInput(errs.New(errs.CodeNormalizeInput, "x")))
	assert.True(t, errs.IsInvalidInput(errs.New(errs.CodeEmbedDimsInvalid, "x")))
	assert.False(t, errs.IsInvalidInput(errs.New(errs.CodeEmbedUpstream, "x")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, errs.HTTPStatus(errs.New(errs.CodeStoreNoteNotFound, "x")))
	assert.Equal(t, http.StatusBadRequest, errs.HTTPStatus(errs.New(errs.CodeNormalizeInput, "x")))
	assert.Equal(t, http.StatusBadGateway, errs.HTTPStatus(errs.New(errs.CodeEmbedUpstream, "x")))
	assert.Equal(t, http.StatusInternalServerError, errs.HTTPStatus(errors.New("plain")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := errs.Wrap(cause, errs.CodeStoreDatabase, "writing note")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, errs.CodeStoreDatabase, errs.CodeOf(err))
}
