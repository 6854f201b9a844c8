package cortex

import (
	"context"
	"strings"
	"testing"

	"cortexchat/internal/config"
)

func TestRenderSystemPromptNormalizesAbsentSections(t *testing.T) {
	got := renderSystemPrompt(context.Background(), promptInputs{
		Identity:   "  ",
		Memory:     "",
		Transcript: "(no channel context)",
	})
	if count := strings.Count(got, absentMarker); count != 2 {
		t.Fatalf("expected identity and memory marked absent, found %d markers in:\n%s", count, got)
	}
}

func TestRenderSystemPromptIncludesAllSections(t *testing.T) {
	got := renderSystemPrompt(context.Background(), promptInputs{
		Identity: "Operator is Dana, a sysadmin.",
		Memory:   "Deploy freeze until Friday.",
		Capabilities: config.Capabilities{
			WebSearch: true,
		},
		Transcript: "**dana**: ship it",
	})
	for _, want := range []string{
		"Operator is Dana, a sysadmin.",
		"Deploy freeze until Friday.",
		"- web search: available",
		"- browser automation: unavailable",
		"- opencode delegation: unavailable",
		"**dana**: ship it",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("prompt missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, absentMarker) {
		t.Fatalf("no section should be absent:\n%s", got)
	}
}

func TestRenderCapabilities(t *testing.T) {
	got := renderCapabilities(config.Capabilities{Browser: true, Opencode: true})
	want := "- browser automation: available\n- web search: unavailable\n- opencode delegation: available"
	if got != want {
		t.Fatalf("unexpected capabilities prose:\n%s", got)
	}
}
