package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/IshaanNene/scrapegoat-configgen/internal/ai"
	"github.com/IshaanNene/scrapegoat-configgen/internal/generator"
)

// File names written per source directory.
const (
	ConfigFile  = "config.json"
	DebugFile   = "debug.json"
	HistoryFile = "generations.jsonl"
)

// ResultWriter writes each result to <root>/<source slug>/ as config.json
// (and debug.json when enabled) and appends a summary line to
// <root>/generations.jsonl.
type ResultWriter struct {
	root       string
	writeDebug bool
	history    *os.File
	enc        *json.Encoder
	mu         sync.Mutex
	count      int
	logger     *slog.Logger
}

// historyEntry is one line of the generation log.
type historyEntry struct {
	RequestID  string    `json:"request_id"`
	SourceName string    `json:"source_name"`
	URL        string    `json:"url"`
	RenderType string    `json:"data_render_type"`
	Dir        string    `json:"dir"`
	Usage      ai.Usage  `json:"usage"`
	Duration   string    `json:"duration"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewResultWriter creates root and opens the generation log for appending.
func NewResultWriter(root string, writeDebug bool, logger *slog.Logger) (*ResultWriter, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(root, HistoryFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open generation log: %w", err)
	}

	return &ResultWriter{
		root:       root,
		writeDebug: writeDebug,
		history:    f,
		enc:        json.NewEncoder(f),
		logger:     logger.With("component", "result_writer"),
	}, nil
}

func (w *ResultWriter) Name() string { return "file" }

// Dir returns the directory a source's results are written to.
func (w *ResultWriter) Dir(sourceName string) string {
	return filepath.Join(w.root, DirName(sourceName))
}

// Store writes the result files. The written config carries source_name and
// data_source_url so it can be fed back to the indexer as a seed.
func (w *ResultWriter) Store(res *generator.Result) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	dir := w.Dir(res.SourceName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create result dir: %w", err)
	}

	cfg := map[string]any{
		"source_name":       res.SourceName,
		"data_source_url":   res.URL,
		"data_render_type":  res.Config.DataRenderType,
		"json_css_schema":   res.Config.JSONCSSSchema,
		"crawlai_config":    res.Config.CrawlAIConfig,
		"pagination_config": res.Config.PaginationConfig,
		"request_config":    res.Config.RequestConfig,
	}
	if err := writeJSON(filepath.Join(dir, ConfigFile), cfg); err != nil {
		return err
	}
	if w.writeDebug {
		if err := writeJSON(filepath.Join(dir, DebugFile), res.Debug); err != nil {
			return err
		}
	}

	entry := historyEntry{
		RequestID:  res.RequestID,
		SourceName: res.SourceName,
		URL:        res.URL,
		RenderType: res.Config.DataRenderType,
		Dir:        dir,
		Usage:      res.Usage,
		Duration:   res.Duration.String(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := w.enc.Encode(entry); err != nil {
		return fmt.Errorf("append generation log: %w", err)
	}
	w.count++

	w.logger.Info("result written", "dir", dir, "debug", w.writeDebug)
	return nil
}

func (w *ResultWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.logger.Debug("closing result writer", "written", w.count)
	return w.history.Close()
}

// DirName turns a source name into a safe directory name.
func DirName(sourceName string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(sourceName) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "unnamed"
	}
	return name
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
