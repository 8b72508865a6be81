package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"pencil-translator/internal/table"
)

// ErrEmptyTable is returned when a replacement table yields no usable rows.
var ErrEmptyTable = errors.New("replacement table has no usable rows")

// WarningKind classifies non-fatal problems of a replacement table.
type WarningKind string

const (
	WarnUnknownID   WarningKind = "unknown_id"
	WarnDuplicateID WarningKind = "duplicate_id"
	WarnMissingID   WarningKind = "missing_id"
)

// Warning is a non-fatal table problem reported after a run.
type Warning struct {
	Kind   WarningKind
	ID     string
	Detail string
}

func (w Warning) String() string {
	if w.ID == "" {
		return fmt.Sprintf("%s: %s", w.Kind, w.Detail)
	}
	return fmt.Sprintf("%s %s: %s", w.Kind, w.ID, w.Detail)
}

// Replacements is a validated id to new text mapping built from an untrusted table.
type Replacements struct {
	Texts map[string]string
	// Skipped counts rows with an empty new text; they leave the node unchanged.
	Skipped  int
	Warnings []Warning

	order []string
}

// Validate builds the replacement mapping. Ids and new texts are trimmed and
// rows without new text are skipped. On duplicate ids the last row wins, so a
// later row with an empty new text leaves that node unchanged.
func Validate(rows []table.Row) *Replacements {
	r := &Replacements{Texts: make(map[string]string)}
	seen := make(map[string]bool)

	for i, row := range rows {
		line := i + 2 // header is line 1
		id := strings.TrimSpace(row.ID)
		text := strings.TrimSpace(row.NewText)

		if id != "" {
			if seen[id] {
				r.Warnings = append(r.Warnings, Warning{
					Kind:   WarnDuplicateID,
					ID:     id,
					Detail: fmt.Sprintf("row %d overrides %q", line, r.Texts[id]),
				})
			} else {
				seen[id] = true
				r.order = append(r.order, id)
			}
		}

		if text == "" {
			r.Skipped++
			delete(r.Texts, id)
			continue
		}
		if id == "" {
			r.Warnings = append(r.Warnings, Warning{
				Kind:   WarnMissingID,
				Detail: fmt.Sprintf("row %d has a new text but no id", line),
			})
			continue
		}
		r.Texts[id] = text
	}

	return r
}

func (r *Replacements) unknown(matched map[string]bool) []Warning {
	var out []Warning
	for _, id := range r.order {
		if _, ok := r.Texts[id]; !ok || matched[id] {
			continue
		}
		out = append(out, Warning{
			Kind:   WarnUnknownID,
			ID:     id,
			Detail: "no text node with this id in the archive, row ignored",
		})
	}
	return out
}
