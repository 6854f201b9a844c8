package ai

import (
	"context"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

const resultPreviewMaxRunes = 200

// ToolObserver receives tool lifecycle notifications for one request.
type ToolObserver struct {
	OnStart func(toolName string)
	OnEnd   func(toolName, resultPreview string)
}

// ObserveTools wraps each invokable tool so runs are reported to the
// observer. Non-invokable tools pass through unchanged.
func ObserveTools(tools []tool.BaseTool, obs ToolObserver) []tool.BaseTool {
	wrapped := make([]tool.BaseTool, 0, len(tools))
	for _, t := range tools {
		if inv, ok := t.(tool.InvokableTool); ok {
			wrapped = append(wrapped, &observedTool{inner: inv, obs: obs})
			continue
		}
		wrapped = append(wrapped, t)
	}
	return wrapped
}

type observedTool struct {
	inner tool.InvokableTool
	obs   ToolObserver
}

func (t *observedTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return t.inner.Info(ctx)
}

func (t *observedTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	name := "tool"
	if info, err := t.inner.Info(ctx); err == nil && info != nil && info.Name != "" {
		name = info.Name
	}
	if t.obs.OnStart != nil {
		t.obs.OnStart(name)
	}
	result, err := t.inner.InvokableRun(ctx, argumentsInJSON, opts...)
	if t.obs.OnEnd != nil {
		preview := result
		if err != nil {
			preview = "error: " + err.Error()
		}
		t.obs.OnEnd(name, truncatePreview(preview))
	}
	return result, err
}

func truncatePreview(s string) string {
	runes := []rune(s)
	if len(runes) <= resultPreviewMaxRunes {
		return s
	}
	return string(runes[:resultPreviewMaxRunes]) + "…"
}
