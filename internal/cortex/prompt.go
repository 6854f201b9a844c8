package cortex

import (
	"context"
	"log"
	"strings"

	"cortexchat/internal/config"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

const absentMarker = "(not configured)"

const systemPromptText = `You are the cortex: the persistent decision-making core of this agent. You hold a direct conversation with your operator.

## Operator identity

{identity}

## Memory bulletin

{memory}

## Capabilities

{capabilities}

## Channel context

{transcript}`

var systemTemplate = prompt.FromMessages(schema.FString,
	schema.SystemMessage(systemPromptText),
)

// buildSystemPrompt assembles the system prompt from the current runtime
// snapshot, plus channel context when a channel id is given. Always reads a
// fresh snapshot so reconfiguration applies without restart.
func (s *Session) buildSystemPrompt(ctx context.Context, channelID string) string {
	snap := s.cfg.Snapshot()

	transcript := ""
	if channelID != "" {
		transcript = s.loadChannelTranscript(ctx, channelID)
	}
	if transcript == "" {
		transcript = "(no channel context)"
	}

	return renderSystemPrompt(ctx, promptInputs{
		Identity:     snap.Runtime.Identity,
		Memory:       snap.Runtime.MemoryBulletin,
		Capabilities: snap.Runtime.Capabilities,
		Transcript:   transcript,
	})
}

type promptInputs struct {
	Identity     string
	Memory       string
	Capabilities config.Capabilities
	Transcript   string
}

// renderSystemPrompt fills the chat template. A render failure means the
// template itself is broken, which is a deployment defect, so it is fatal
// rather than surfaced to the chat turn.
func renderSystemPrompt(ctx context.Context, in promptInputs) string {
	identity := strings.TrimSpace(in.Identity)
	if identity == "" {
		identity = absentMarker
	}
	memory := strings.TrimSpace(in.Memory)
	if memory == "" {
		memory = absentMarker
	}

	msgs, err := systemTemplate.Format(ctx, map[string]any{
		"identity":     identity,
		"memory":       memory,
		"capabilities": renderCapabilities(in.Capabilities),
		"transcript":   in.Transcript,
	})
	if err != nil || len(msgs) == 0 {
		log.Fatalf("render cortex system prompt: %v", err)
	}
	return msgs[0].Content
}

// renderCapabilities turns the capability flags into prompt prose.
func renderCapabilities(caps config.Capabilities) string {
	line := func(enabled bool, name string) string {
		if enabled {
			return "- " + name + ": available"
		}
		return "- " + name + ": unavailable"
	}
	lines := []string{
		line(caps.Browser, "browser automation"),
		line(caps.WebSearch, "web search"),
		line(caps.Opencode, "opencode delegation"),
	}
	return strings.Join(lines, "\n")
}
