package pregen

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"scenegen/internal/domain"
)

// ErrorClass buckets story generation failures.
type ErrorClass int

const (
	ClassOther ErrorClass = iota
	ClassSafety
	ClassTransient
)

func (c ErrorClass) String() string {
	switch c {
	case ClassSafety:
		return "safety"
	case ClassTransient:
		return "transient"
	default:
		return "other"
	}
}

// ErrorClassifier decides how the engine reacts to a story failure. Only
// ClassSafety triggers the sanitized in-attempt retry.
type ErrorClassifier interface {
	Classify(err error) ErrorClass
}

// ClassifierFunc adapts a function to ErrorClassifier.
type ClassifierFunc func(err error) ErrorClass

func (f ClassifierFunc) Classify(err error) ErrorClass { return f(err) }

var (
	safetyKeywords    = []string{"safety", "content", "policy", "blocked", "filtered"}
	transientKeywords = []string{
		"timeout", "deadline", "temporarily", "unavailable", "rate limit",
		"429", "500", "502", "503", "504", "connection reset", "eof",
	}
)

// KeywordClassifier recognizes typed errors first and then falls back to
// matching keywords in the lowercased message. Vendor SDKs rarely expose a
// stable type for policy rejections, so the message match is the primary
// signal for safety failures.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(err error) ErrorClass {
	if err == nil {
		return ClassOther
	}
	var blocked *genai.BlockedError
	if errors.Is(err, domain.ErrContentBlocked) || errors.As(err, &blocked) {
		return ClassSafety
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrIncompleteStoryText) {
		return ClassTransient
	}
	msg := strings.ToLower(err.Error())
	if containsAny(msg, safetyKeywords) {
		return ClassSafety
	}
	if containsAny(msg, transientKeywords) {
		return ClassTransient
	}
	return ClassOther
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
