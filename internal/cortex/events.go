package cortex

// EventType tags a ChatEvent for the wire.
type EventType string

const (
	EventThinking      EventType = "thinking"
	EventToolStarted   EventType = "tool_started"
	EventToolCompleted EventType = "tool_completed"
	EventDone          EventType = "done"
	EventError         EventType = "error"
)

// ChatEvent is one progress notification for an in-flight chat request.
// Exactly one done or error event terminates a request's stream.
type ChatEvent struct {
	Type          EventType `json:"type"`
	Tool          string    `json:"tool,omitempty"`
	ResultPreview string    `json:"result_preview,omitempty"`
	FullText      string    `json:"full_text,omitempty"`
	Message       string    `json:"message,omitempty"`
}

func ThinkingEvent() ChatEvent {
	return ChatEvent{Type: EventThinking}
}

func ToolStartedEvent(tool string) ChatEvent {
	return ChatEvent{Type: EventToolStarted, Tool: tool}
}

func ToolCompletedEvent(tool, resultPreview string) ChatEvent {
	return ChatEvent{Type: EventToolCompleted, Tool: tool, ResultPreview: resultPreview}
}

func DoneEvent(fullText string) ChatEvent {
	return ChatEvent{Type: EventDone, FullText: fullText}
}

func ErrorEvent(message string) ChatEvent {
	return ChatEvent{Type: EventError, Message: message}
}

// EventSink receives progress events. A nil sink drops them.
type EventSink func(ChatEvent)

func emit(sink EventSink, ev ChatEvent) {
	if sink != nil {
		sink(ev)
	}
}
