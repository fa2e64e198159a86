package services

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func TestExtractText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("Hello "), genai.Text("world")}}},
			{Content: nil},
		},
	}

	if got := extractText(resp); got != "Hello world" {
		t.Fatalf("expected concatenated candidate text, got %q", got)
	}

	if got := extractText(&genai.GenerateContentResponse{}); got != "" {
		t.Fatalf("expected empty text for a response with no candidates, got %q", got)
	}
}

func TestRateLimitErrorMessage(t *testing.T) {
	err := &RateLimitError{Message: "timeout waiting for Gemini rate slot"}
	if err.Error() != "timeout waiting for Gemini rate slot" {
		t.Fatalf("unexpected error text %q", err.Error())
	}
}
