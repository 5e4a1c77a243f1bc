package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// Error is a response the backend rejected.
type Error struct {
	Status  int
	Message string
	// Fields holds per-field validation messages, when the backend sent any.
	Fields map[string]string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend returned status %d", e.Status)
}

// newError extracts what it can from an error body of any shape.
func newError(status int, body []byte) *Error {
	e := &Error{Status: status}
	if gjson.ValidBytes(body) {
		parsed := gjson.ParseBytes(body)
		e.Message = parsed.Get("message").String()
		if e.Message == "" {
			e.Message = parsed.Get("error").String()
		}
		if errs := parsed.Get("errors"); errs.IsObject() {
			e.Fields = make(map[string]string)
			errs.ForEach(func(k, v gjson.Result) bool {
				e.Fields[k.String()] = v.String()
				return true
			})
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

// StatusOf returns the backend status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// Message is the text to show a user for err.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
