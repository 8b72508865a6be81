package pipeline

import (
	"fmt"
	"os"

	"pencil-translator/internal/archive"
	"pencil-translator/internal/locator"
	"pencil-translator/internal/table"
	"pencil-translator/internal/textnode"

	"github.com/rs/zerolog/log"
)

// ExtractResult holds the rows extracted from one archive.
type ExtractResult struct {
	Kind      archive.Kind
	Documents int
	Rows      []table.Row
}

// ReplaceResult holds the rebuilt archive and what happened while building it.
type ReplaceResult struct {
	Data      []byte
	Kind      archive.Kind
	Documents int
	// Matched counts table ids found in the archive.
	Matched int
	// Changes counts text nodes whose content differs from the original.
	Changes int
	// Skipped counts rows without a new text.
	Skipped  int
	Warnings []Warning
}

// Pipeline runs extraction and replacement over prototype archives.
type Pipeline struct {
	walker *textnode.Walker
}

// New creates a Pipeline. A nil walker selects the default visible-text allow-list.
func New(walker *textnode.Walker) *Pipeline {
	if walker == nil {
		walker = textnode.NewWalker()
	}
	return &Pipeline{walker: walker}
}

// ExtractFile reads the archive at path and extracts its rows.
func (p *Pipeline) ExtractFile(path string) (*ExtractResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	return p.Extract(data)
}

// Extract returns every text node of the archive as a row, documents in
// member order and nodes in document order.
func (p *Pipeline) Extract(data []byte) (*ExtractResult, error) {
	tree, err := archive.Open(data)
	if err != nil {
		return nil, err
	}

	docs, err := locator.Locate(tree)
	if err != nil {
		return nil, err
	}
	res := &ExtractResult{Kind: tree.Kind, Documents: len(docs)}

	for _, doc := range docs {
		nodes, err := p.walker.Extract(doc.Path, doc.Data)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			res.Rows = append(res.Rows, table.Row{
				ID:           n.ID,
				Path:         n.Path,
				OriginalText: n.Text,
			})
		}
		log.Debug().Str("document", doc.Path).Int("texts", len(nodes)).Msg("Extracted document")
	}

	return res, nil
}

// ReplaceFile reads the original archive at path and rebuilds it with rows applied.
func (p *Pipeline) ReplaceFile(path string, rows []table.Row) (*ReplaceResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	return p.Replace(data, rows)
}

// Replace unpacks the original archive, applies the new texts of rows by id
// and repacks it in the same container kind and member order.
func (p *Pipeline) Replace(data []byte, rows []table.Row) (*ReplaceResult, error) {
	tree, err := archive.Open(data)
	if err != nil {
		return nil, err
	}

	docs, err := locator.Locate(tree)
	if err != nil {
		return nil, err
	}

	repl := Validate(rows)
	if len(repl.Texts) == 0 {
		return nil, fmt.Errorf("%w: %d rows read, %d without new text", ErrEmptyTable, len(rows), repl.Skipped)
	}

	res := &ReplaceResult{
		Kind:      tree.Kind,
		Documents: len(docs),
		Skipped:   repl.Skipped,
		Warnings:  repl.Warnings,
	}

	matched := make(map[string]bool, len(repl.Texts))
	for _, doc := range docs {
		applied, err := p.walker.Apply(doc.Path, doc.Data, repl.Texts)
		if err != nil {
			return nil, err
		}
		for _, id := range applied.Matched {
			matched[id] = true
		}
		if applied.Changes > 0 {
			doc.SetData(applied.Data)
			res.Changes += applied.Changes
		}
		log.Debug().Str("document", doc.Path).Int("changes", applied.Changes).Msg("Applied texts")
	}

	res.Matched = len(matched)
	res.Warnings = append(res.Warnings, repl.unknown(matched)...)

	if res.Data, err = archive.Pack(tree); err != nil {
		return nil, fmt.Errorf("repack archive: %w", err)
	}
	return res, nil
}
