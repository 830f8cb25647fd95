// Package errs carries coded errors across package boundaries so that the
// CLI and API layers can map failures without string matching.
package errs

import (
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeStoreNoteNotFound Code = "store.note.get.not_found"
	CodeStoreTagNotFound  Code = "store.tag.get.not_found"
	CodeStoreDatabase     Code = "store.database.failure"
	CodeStoreInvalidInput Code = "store.invalid_input"
	CodeStoreTxFailure    Code = "store.transaction.failure"

	CodeEmbedDimsInvalid   Code = "embedding.dimensions.invalid"
	CodeEmbedUpstream      Code = "embedding.upstream.failure"
	CodeEmbedConfigMissing Code = "embedding.config.missing"

	CodeNormalizeApply Code = "normalize.apply.failure"
	CodeNormalizeInput Code = "normalize.request.invalid_input"

	CodeConfigLoad    Code = "config.load.failure"
	CodeConfigInvalid Code = "config.validate.invalid_value"

	CodeFetchInvalid  Code = "fetch.url.invalid_input"
	CodeFetchUpstream Code = "fetch.upstream.failure"

	CodeServerRequest  Code = "server.request.invalid_input"
	CodeServerInternal Code = "server.internal.failure"
)

func New(code Code, msg string) error {
	return oops.Code(code).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return oops.Code(code).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return oops.Code(code).Wrapf(err, format, args...)
}

// CodeOf extracts the Code from an error chain, or "" when it has none.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	switch c := oopsErr.Code().(type) {
	case Code:
		return c
	case string:
		return Code(c)
	default:
		return ""
	}
}

func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value"
}

// HTTPStatus maps an error to the status code the API layer should answer with.
func HTTPStatus(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case strings.Contains(string(CodeOf(err)), "upstream"):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func reason(code Code) string {
	if code == "" {
		return ""
	}
	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
