package pregen

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"scenegen/internal/domain"
)

func TestKeywordClassifier(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{name: "nil", err: nil, want: ClassOther},
		{name: "typed blocked", err: fmt.Errorf("story: %w", domain.ErrContentBlocked), want: ClassSafety},
		{name: "sdk blocked", err: &genai.BlockedError{}, want: ClassSafety},
		{name: "safety keyword", err: errors.New("Response was blocked due to SAFETY"), want: ClassSafety},
		{name: "policy keyword", err: errors.New("violates usage policy"), want: ClassSafety},
		{name: "filtered keyword", err: errors.New("output filtered"), want: ClassSafety},
		{name: "deadline", err: fmt.Errorf("call: %w", context.DeadlineExceeded), want: ClassTransient},
		{name: "incomplete", err: domain.ErrIncompleteStoryText, want: ClassTransient},
		{name: "rate limit", err: errors.New("gemini status 429: Resource exhausted"), want: ClassTransient},
		{name: "unavailable", err: errors.New("service temporarily unavailable"), want: ClassTransient},
		{name: "eof", err: errors.New("unexpected EOF"), want: ClassTransient},
		{name: "other", err: errors.New("invalid api key"), want: ClassOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (KeywordClassifier{}).Classify(tt.err); got != tt.want {
				t.Fatalf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestCustomClassifierDisablesSafetyRetry(t *testing.T) {
	story := &scriptedStory{results: []error{errors.New("content blocked"), nil}}
	opts := testOptions(&sleepRecorder{})
	opts.Classifier = ClassifierFunc(func(error) ErrorClass { return ClassOther })
	engine := New(Ports{Story: story}, opts)

	task := engine.GenerateOne(context.Background(), m1Warrior)
	if !task.IsSuccessful || task.RetryCount != 1 {
		t.Fatalf("task = successful %v retry %d; want success on attempt 1", task.IsSuccessful, task.RetryCount)
	}
}
