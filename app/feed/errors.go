package feed

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindInvalidInput  ErrorKind = "invalid_input"
	KindNetwork       ErrorKind = "network"
	KindHTTP          ErrorKind = "http"
	KindFormat        ErrorKind = "format"
	KindSummarization ErrorKind = "summarization"
	KindStorage       ErrorKind = "storage"
)

// Error classifies a pipeline failure. URL names the source or item the
// failure belongs to; Status is set for KindHTTP only.
type Error struct {
	Kind   ErrorKind
	URL    string
	Status int
	Err    error
}

func NewError(kind ErrorKind, url string, err error) *Error {
	return &Error{Kind: kind, URL: url, Err: err}
}

func NewHTTPError(url string, status int) *Error {
	return &Error{
		Kind:   KindHTTP,
		URL:    url,
		Status: status,
		Err:    fmt.Errorf("unexpected HTTP status %d", status),
	}
}

func (e *Error) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error for %s: %v", e.Kind, e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is the short, user-facing form used in batch error lists.
func (e *Error) Message() string {
	var msg string
	switch e.Kind {
	case KindInvalidInput:
		msg = "invalid source"
	case KindNetwork:
		msg = "failed to fetch"
	case KindHTTP:
		msg = fmt.Sprintf("HTTP error %d", e.Status)
	case KindFormat:
		msg = "not a valid RSS or Atom feed"
	case KindSummarization:
		msg = "summarization failed"
	case KindStorage:
		msg = "storage unavailable"
	default:
		msg = "unexpected error"
	}

	if e.URL == "" {
		return msg
	}
	return e.URL + ": " + msg
}

func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Message renders any error for a batch error list, preferring the
// classified short form.
func Message(url string, err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.URL == "" {
			e = &Error{Kind: e.Kind, URL: url, Status: e.Status, Err: e.Err}
		}
		return e.Message()
	}
	return fmt.Sprintf("%s: %v", url, err)
}
