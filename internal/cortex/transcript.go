package cortex

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"cortexchat/internal/history"
	"cortexchat/internal/redis"
)

const (
	transcriptItemLimit = 50
	transcriptCacheTTL  = 30 * time.Second
)

// TranscriptCache is the slice of the redis client the transcript loader
// uses. Satisfied by *redis.Client; a nil cache disables caching.
type TranscriptCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// TranscriptCacheKey names the cached rendered transcript of a channel.
// Writers appending timeline rows delete this key to invalidate.
func TranscriptCacheKey(channelID string) string {
	return "cortex:transcript:" + channelID
}

// loadChannelTranscript renders recent channel activity into prose for the
// system prompt. Best effort: failures are logged and yield no transcript.
func (s *Session) loadChannelTranscript(ctx context.Context, channelID string) string {
	cacheKey := TranscriptCacheKey(channelID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
			return cached
		} else if !errors.Is(err, redis.ErrCacheMiss) {
			log.Printf("transcript cache read for channel %s: %v", channelID, err)
		}
	}

	items, err := s.history.LoadChannelTimeline(ctx, channelID, transcriptItemLimit)
	if err != nil {
		log.Printf("load channel timeline for %s: %v", channelID, err)
		return ""
	}
	transcript := renderTranscript(items)
	if transcript != "" && s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, transcript, transcriptCacheTTL); err != nil {
			log.Printf("transcript cache write for channel %s: %v", channelID, err)
		}
	}
	return transcript
}

// renderTranscript formats timeline items chronologically. Branch and worker
// runs without an outcome are omitted.
func renderTranscript(items []history.TimelineItem) string {
	var b strings.Builder
	for _, item := range items {
		switch it := item.(type) {
		case history.MessageItem:
			name := it.SenderName
			if name == "" {
				name = it.Role
			}
			fmt.Fprintf(&b, "**%s**: %s\n\n", name, it.Content)
		case history.BranchRunItem:
			if it.Conclusion != "" {
				fmt.Fprintf(&b, "*[Branch: %s]*: %s\n\n", it.Description, it.Conclusion)
			}
		case history.WorkerRunItem:
			if it.Result != "" {
				fmt.Fprintf(&b, "*[Worker: %s]*: %s\n\n", it.Task, it.Result)
			}
		default:
			panic(fmt.Sprintf("unhandled timeline item %T", item))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
