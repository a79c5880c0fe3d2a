// Package apperr classifies failures into a small taxonomy and decides
// which of them are worth retrying.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Kind buckets a failure by what the caller can do about it.
type Kind int

const (
	KindInternal Kind = iota
	KindNetwork
	KindRateLimited
	KindUnavailable
	KindMissingConfig
	KindValidation
	KindNotFound
	KindConflict
	KindExtraction
	KindChunking
	KindEmbedding
	KindVectorSearch
	KindGeneration
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindRateLimited:
		return "rate_limited"
	case KindUnavailable:
		return "unavailable"
	case KindMissingConfig:
		return "missing_config"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindExtraction:
		return "extraction"
	case KindChunking:
		return "chunking"
	case KindEmbedding:
		return "embedding"
	case KindVectorSearch:
		return "vector_search"
	case KindGeneration:
		return "generation"
	default:
		return "internal"
	}
}

// Retryable reports whether failures of this kind are transient. Everything
// else needs operator action, a caller fix, or an explicit resync.
func (k Kind) Retryable() bool {
	return k == KindNetwork || k == KindRateLimited || k == KindUnavailable
}

// Error carries a kind alongside the wrapped cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a kind and the operation that produced it.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds a new classified error from a format string.
func Newf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of err. Errors created by this package keep their
// assigned kind; anything else is classified from transport-level signals.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return classify(err)
}

// Retryable reports whether err should be retried.
func Retryable(err error) bool {
	return KindOf(err).Retryable()
}

// classify maps a raw transport or service error onto the taxonomy using
// its message. Raw text is used only here, never shown to end users.
func classify(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case contains(msg, "429", "rate limit", "too many requests", "quota"):
		return KindRateLimited
	case contains(msg, "502", "503", "504", "unavailable", "overloaded", "bad gateway"):
		return KindUnavailable
	case contains(msg, "timeout", "timed out", "connection refused", "connection reset", "no such host", "broken pipe", "eof"):
		return KindNetwork
	case contains(msg, "401", "403", "api key", "unauthorized", "authentication"):
		return KindMissingConfig
	case contains(msg, "404", "not found", "no rows"):
		return KindNotFound
	case contains(msg, "conflict", "duplicate key"):
		return KindConflict
	case contains(msg, "invalid", "validation", "malformed", "bad request"):
		return KindValidation
	default:
		return KindInternal
	}
}

func contains(msg string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(msg, n) {
			return true
		}
	}
	return false
}
