package onboarding

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Extractor turns an uploaded document (PDF, DOCX) into plain text.
// Implementations live outside this module; the pipeline only consumes
// their text.
type Extractor interface {
	Extract(ctx context.Context, doc Document) (string, error)
}

// Transcriber turns recorded audio into plain text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Document is one uploaded source file.
type Document struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Content  []byte `json:"content"`
}

// PlainTextExtractor handles documents that are already text (markdown,
// plain transcripts, CSV exports). Binary formats need a real extractor.
type PlainTextExtractor struct{}

func (PlainTextExtractor) Extract(_ context.Context, doc Document) (string, error) {
	mt := strings.ToLower(strings.TrimSpace(doc.MimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch {
	case mt == "", strings.HasPrefix(mt, "text/"), mt == "application/json", mt == "application/csv":
		return string(doc.Content), nil
	}
	return "", fmt.Errorf("unsupported document type %q for %s", doc.MimeType, doc.Name)
}

// IngestDocuments extracts every document concurrently and folds the texts
// into a single context block, ordered by document name so output is
// deterministic regardless of completion order. A failed extraction fails
// the whole ingest: silently missing context is worse than a retryable
// error.
func IngestDocuments(ctx context.Context, ex Extractor, docs []Document) (string, error) {
	if len(docs) == 0 {
		return "", nil
	}
	texts := make([]string, len(docs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, doc := range docs {
		g.Go(func() error {
			text, err := ex.Extract(gctx, doc)
			if err != nil {
				return fmt.Errorf("extract %s: %w", doc.Name, err)
			}
			mu.Lock()
			texts[i] = strings.TrimSpace(text)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	type named struct{ name, text string }
	blocks := make([]named, 0, len(docs))
	for i, doc := range docs {
		if texts[i] == "" {
			continue
		}
		blocks = append(blocks, named{name: doc.Name, text: texts[i]})
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].name < blocks[j].name })

	var b strings.Builder
	for _, blk := range blocks {
		fmt.Fprintf(&b, "--- %s ---\n%s\n\n", blk.name, blk.text)
	}
	return strings.TrimSpace(b.String()), nil
}
