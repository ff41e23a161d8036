// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"todolist/internal/store"
)

const (
	// ListSeparator is the separator line for list sections.
	ListSeparator = "------------"
)

// Format is an output encoding for task lists.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses text, json or yaml (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown format: %s", s)
	}
}

// Record is the machine-readable shape of an entry.
type Record struct {
	Number    int    `json:"number" yaml:"number"`
	ID        string `json:"id,omitempty" yaml:"id,omitempty"`
	Title     string `json:"title" yaml:"title"`
	Completed bool   `json:"completed" yaml:"completed"`
	Pending   bool   `json:"pending,omitempty" yaml:"pending,omitempty"`
	Selected  bool   `json:"selected,omitempty" yaml:"selected,omitempty"`
}

// Marks are the per-line annotations of an entry.
type Marks struct {
	Selected bool
	Editing  bool
	Buffer   string
}

// FormatEntry formats an entry line.
// Format: "{N:>4}  {TITLE}[ [selected]][ [editing: BUFFER]][ [pending]]\n"
func FormatEntry(w io.Writer, num int, e store.Entry, m Marks) {
	var b strings.Builder
	b.WriteString(normalizeTitle(e.Title))
	if m.Selected {
		b.WriteString(" [selected]")
	}
	if m.Editing {
		fmt.Fprintf(&b, " [editing: %s]", normalizeTitle(m.Buffer))
	}
	if e.Pending {
		b.WriteString(" [pending]")
	}
	fmt.Fprintf(w, "%4d  %s\n", num, b.String())
}

// FormatListHeader formats a list section header.
func FormatListHeader(w io.Writer, title string, current bool) {
	displayTitle := normalizeTitle(title)
	if current {
		displayTitle += " [shown]"
	}
	fmt.Fprintln(w, ListSeparator)
	fmt.Fprintln(w, displayTitle)
	fmt.Fprintln(w, ListSeparator)
}

// FormatState writes both lists of st, marking selection and edit state.
func FormatState(w io.Writer, st store.State) {
	FormatListHeader(w, "Tasks", st.View == store.ViewActive)
	formatSection(w, st.Tasks, st)
	FormatListHeader(w, "Completed", st.View == store.ViewCompleted)
	formatSection(w, st.CompletedTasks, st)
}

func formatSection(w io.Writer, entries []store.Entry, st store.State) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "(none)")
		return
	}
	for i, e := range entries {
		FormatEntry(w, i+1, e, Marks{
			Selected: st.IsSelected(e.Key),
			Editing:  st.IsEditing(e.Key),
			Buffer:   st.EditBuffer,
		})
	}
}

// Records converts entries to numbered records.
func Records(entries []store.Entry, st store.State) []Record {
	records := make([]Record, 0, len(entries))
	for i, e := range entries {
		records = append(records, Record{
			Number:    i + 1,
			ID:        e.ID,
			Title:     e.Title,
			Completed: e.Completed,
			Pending:   e.Pending,
			Selected:  st.IsSelected(e.Key),
		})
	}
	return records
}

// WriteEntries writes entries in format f.
func WriteEntries(w io.Writer, f Format, entries []store.Entry) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(Records(entries, store.State{}))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(Records(entries, store.State{})); err != nil {
			return err
		}
		return enc.Close()
	default:
		for i, e := range entries {
			FormatEntry(w, i+1, e, Marks{})
		}
		return nil
	}
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	// Replace newlines with spaces
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	// Trim and check for empty
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

// DisplayTitle is the single-line form of title used by every renderer.
func DisplayTitle(title string) string {
	return normalizeTitle(title)
}
