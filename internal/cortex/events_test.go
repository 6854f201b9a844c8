package cortex

import (
	"encoding/json"
	"testing"
)

func TestChatEventJSONTagging(t *testing.T) {
	cases := []struct {
		event ChatEvent
		want  string
	}{
		{ThinkingEvent(), `{"type":"thinking"}`},
		{ToolStartedEvent("web_search"), `{"type":"tool_started","tool":"web_search"}`},
		{ToolCompletedEvent("web_search", "3 results"), `{"type":"tool_completed","tool":"web_search","result_preview":"3 results"}`},
		{DoneEvent("all good"), `{"type":"done","full_text":"all good"}`},
		{ErrorEvent("Cortex chat error: boom"), `{"type":"error","message":"Cortex chat error: boom"}`},
	}
	for _, tc := range cases {
		data, err := json.Marshal(tc.event)
		if err != nil {
			t.Fatalf("marshal %v: %v", tc.event.Type, err)
		}
		if string(data) != tc.want {
			t.Fatalf("event %s: got %s, want %s", tc.event.Type, data, tc.want)
		}
	}
}
