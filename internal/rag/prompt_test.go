package rag

import (
	"strings"
	"testing"

	"github.com/kotaehq/kotae/internal/models"
)

func TestBuildContext(t *testing.T) {
	hits := []models.RetrievalHit{
		hit("https://example.com", "HERO PAGE", "Welcome to the site.", 0.9),
		hit("https://example.com/contact", "CONTACT", "Email hello@example.com.", 0.8),
	}
	got := BuildContext(hits)
	want := "[1] HERO PAGE | https://example.com\nWelcome to the site.\n\n---\n\n" +
		"[2] CONTACT | https://example.com/contact\nEmail hello@example.com."
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestBuildContextEmpty(t *testing.T) {
	if got := BuildContext(nil); got != "" {
		t.Errorf("expected empty context, got %q", got)
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	hits := []models.RetrievalHit{
		hit("https://example.com", "HERO PAGE", "Welcome.", 0.9),
	}
	prompt := BuildSystemPrompt(hits)
	if !strings.Contains(prompt, NotFoundAnswer) {
		t.Error("expected prompt to embed the not-found phrase")
	}
	if !strings.Contains(prompt, "[1] HERO PAGE | https://example.com\nWelcome.") {
		t.Error("expected prompt to embed the context block")
	}
	if !strings.Contains(prompt, "Answer ONLY using the context chunks below.") {
		t.Error("expected grounding instruction in prompt")
	}
}
