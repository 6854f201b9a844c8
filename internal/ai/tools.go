package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/document/loader/file"
	"github.com/cloudwego/eino-ext/components/tool/duckduckgo/v2"
	"github.com/cloudwego/eino-ext/components/tool/googlesearch"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/components/document/parser"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"cortexchat/internal/config"
)

// BuildTools assembles the tool registry for the given capability flags.
// Web search requires the web_search capability; the file reader requires
// the browser capability plus a configured file root.
func BuildTools(caps config.Capabilities, fileRoot string) []tool.BaseTool {
	var tools []tool.BaseTool

	if caps.WebSearch {
		if ws := InitWebSearch(); ws != nil {
			tools = append(tools, ws)
		}
	}
	if caps.Browser && fileRoot != "" {
		if fr := initFileReader(fileRoot); fr != nil {
			tools = append(tools, fr)
		}
	}
	return tools
}

func InitWebSearch() tool.InvokableTool {
	googleTool := InitGooglesearch()
	duckTool := InitDDGsearch()
	if googleTool == nil && duckTool == nil {
		log.Printf("web search tool disabled: no search providers available")
		return nil
	}

	ws := &webSearchTool{
		google:     googleTool,
		duck:       duckTool,
		httpClient: &http.Client{Timeout: WebSearchHTTPTimeout},
	}

	info := &schema.ToolInfo{
		Name: "web_search",
		Desc: "Search the web for information; " +
			"automatically fallbacks to another provider if needed;" +
			"can search URL if needed.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Desc:     "Natural language query or URL to search",
				Type:     schema.String,
				Required: true,
			},
		}),
	}

	return utils.NewTool(info, ws.run)
}

type webSearchTool struct {
	google     tool.InvokableTool
	duck       tool.InvokableTool
	httpClient *http.Client
}

type webSearchParams struct {
	Query string `json:"query"`
}

func (w *webSearchTool) run(ctx context.Context, params *webSearchParams) (string, error) {
	if params == nil {
		return "", errors.New("missing search parameters")
	}
	query := strings.TrimSpace(params.Query)
	if query == "" {
		return "", errors.New("query must not be empty")
	}

	if looksLikeURL(query) {
		if content, err := w.fetchURL(ctx, query); err == nil {
			return content, nil
		} else {
			log.Printf("web url loader failed: %v", err)
		}
	}

	payloadBytes, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return "", fmt.Errorf("marshal search params: %w", err)
	}
	payload := string(payloadBytes)

	if w.google != nil {
		if result, err := w.google.InvokableRun(ctx, payload); err == nil {
			return result, nil
		} else {
			log.Printf("google search failed: %v", err)
		}
	}

	if w.duck != nil {
		if result, err := w.duck.InvokableRun(ctx, payload); err == nil {
			return result, nil
		} else {
			log.Printf("duckduckgo search failed: %v", err)
		}
	}

	return "", errors.New("no search provider succeeded")
}

// file reader tool
type fileReader struct {
	root   string
	loader *file.FileLoader
}

var fileReaderLimiter = newToolRateLimiter(FileReadRateLimit, FileReadRateWindow)

type fileReaderParams struct {
	Path       string `json:"path"`
	ChunkIndex int    `json:"chunk_index,omitempty"`
	ChunkSize  int    `json:"chunk_size,omitempty"`
}

func initFileReader(root string) tool.InvokableTool {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		log.Printf("file reader disabled: %v", err)
		return nil
	}
	if info, err := os.Stat(absRoot); err != nil || !info.IsDir() {
		log.Printf("file reader disabled: %s is not a readable directory", absRoot)
		return nil
	}
	parserExt, err := parser.NewExtParser(context.Background(), &parser.ExtParserConfig{
		FallbackParser: parser.TextParser{},
	})
	if err != nil {
		log.Printf("file reader disabled: %v", err)
		return nil
	}
	loader, err := file.NewFileLoader(context.Background(), &file.FileLoaderConfig{
		UseNameAsID: true,
		Parser:      parserExt,
	})
	if err != nil {
		log.Printf("file reader disabled: %v", err)
		return nil
	}
	reader := &fileReader{
		root:   absRoot,
		loader: loader,
	}
	info := &schema.ToolInfo{
		Name: "file_reader",
		Desc: "Read workspace documents in small chunks. Provide the path relative to the workspace root (and optional chunk_index / chunk_size) to fetch a specific segment; limit 3 calls per minute.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"path": {
				Desc:     "Path of the file to read, relative to the workspace root.",
				Type:     schema.String,
				Required: true,
			},
			"chunk_index": {
				Desc:     "Zero-based chunk index to read, default 0.",
				Type:     schema.Integer,
				Required: false,
			},
			"chunk_size": {
				Desc:     "Number of characters per chunk (max 2000, default 1000).",
				Type:     schema.Integer,
				Required: false,
			},
		}),
	}
	return utils.NewTool(info, reader.run)
}

func (t *fileReader) run(ctx context.Context, params *fileReaderParams) (string, error) {
	if params == nil || strings.TrimSpace(params.Path) == "" {
		return "", errors.New("path is required")
	}
	target := filepath.Join(t.root, filepath.Clean(params.Path))
	rel, err := filepath.Rel(t.root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.New("path escapes the workspace root")
	}
	if !fileReaderLimiter.Allow(t.root) {
		return "", errors.New("file reader rate limit exceeded, please retry in a minute")
	}

	docs, err := t.loader.Load(ctx, document.Source{URI: target})
	if err != nil {
		return "", fmt.Errorf("load file: %w", err)
	}
	var builder strings.Builder
	for _, doc := range docs {
		content := strings.TrimSpace(doc.Content)
		if content == "" {
			continue
		}
		builder.WriteString(content)
		builder.WriteString("\n\n")
	}
	text := strings.TrimSpace(builder.String())
	if text == "" {
		return "", errors.New("file has no readable text content")
	}
	chunkSize := params.ChunkSize
	if chunkSize <= 0 || chunkSize > FileReadChunkSizeMax {
		chunkSize = FileReadChunkSizeDefault
	}
	if chunkSize < FileReadChunkSizeMin {
		chunkSize = FileReadChunkSizeMin
	}
	chunkIndex := params.ChunkIndex
	if chunkIndex < 0 {
		chunkIndex = 0
	}
	runes := []rune(text)
	totalChunks := (len(runes) + chunkSize - 1) / chunkSize
	if totalChunks == 0 {
		return fmt.Sprintf("File: %s has no readable text content.", rel), nil
	}
	if chunkIndex >= totalChunks {
		chunkIndex = totalChunks - 1
	}
	start := chunkIndex * chunkSize
	end := start + chunkSize
	if end > len(runes) {
		end = len(runes)
	}
	segment := string(runes[start:end])
	return fmt.Sprintf("File: %s\nChunk %d/%d\n\n%s", rel, chunkIndex+1, totalChunks, segment), nil
}

// InitDDGsearch Init DDG Search
func InitDDGsearch() tool.InvokableTool {
	duckConfig := &duckduckgo.Config{
		ToolName:   "web_search_ddg",
		ToolDesc:   "DuckDuckGo Search Tool (no token required)",
		MaxResults: 3,
		Region:     duckduckgo.RegionWT,
		Timeout:    10 * time.Second,
	}
	duckTool, err := duckduckgo.NewTextSearchTool(context.Background(), duckConfig)
	if err != nil {
		log.Fatalf("NewTextSearchTool of duckduckgo failed, err=%v", err)
	}
	return duckTool
}

// InitGooglesearch Init Google Search
func InitGooglesearch() tool.InvokableTool {
	googleAPIKey := os.Getenv("GOOGLE_API_KEY")
	googleSearchEngineID := os.Getenv("GOOGLE_SEARCH_ENGINE_ID")
	if googleAPIKey == "" || googleSearchEngineID == "" {
		log.Printf("google search tool disabled: missing GOOGLE_API_KEY or GOOGLE_SEARCH_ENGINE_ID")
		return nil
	}
	googleTool, err := googlesearch.NewTool(context.Background(), &googlesearch.Config{
		ToolName:       "web_search_google",
		ToolDesc:       "Google Search Tool",
		APIKey:         googleAPIKey,
		SearchEngineID: googleSearchEngineID,
		Lang:           "en",
		Num:            5,
	})
	if err != nil {
		log.Fatal(err)
	}
	return googleTool
}
