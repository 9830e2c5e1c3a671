// Package knowledge answers messages from a static FAQ table so they never
// reach the completion backend.
//
// The canonical file shape is a JSON array, which keeps iteration order:
//
//	[{"q": "trigger phrase", "a": "canned answer"}, ...]
//
// The legacy object shape {"trigger": "answer", ...} is accepted on load as
// an import format; entries from it land in map iteration order, so files
// that care about trigger precedence should use the array shape.
package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Entry is one trigger → answer pair.
type Entry struct {
	Trigger string `json:"q"`
	Answer  string `json:"a"`
}

// Table is the FAQ store. Lookup is read-only; Reload swaps the whole entry
// list atomically. Safe for concurrent use.
type Table struct {
	mu      sync.RWMutex
	path    string
	entries []Entry
}

// Load reads the FAQ document at path. A missing or malformed file is not
// fatal: the caller gets an empty table plus the error, and the bot keeps
// running without the FAQ short-circuit.
func Load(path string) (*Table, error) {
	t := &Table{path: path}
	if path == "" {
		return t, nil
	}
	entries, err := parseFile(path)
	if err != nil {
		return t, err
	}
	t.entries = entries
	return t, nil
}

// Reload re-reads the FAQ document. On error the previous table is kept.
func (t *Table) Reload() error {
	if t.path == "" {
		return nil
	}
	entries, err := parseFile(t.path)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.entries = entries
	t.mu.Unlock()
	return nil
}

// Lookup returns the canned answer for the first trigger that appears as a
// substring of the trimmed text. Matching is deliberately permissive —
// free-form phrasing around the trigger still hits. When two triggers both
// occur in the text, the one earlier in the file wins.
func (t *Table) Lookup(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, e := range t.entries {
		if e.Trigger != "" && strings.Contains(text, e.Trigger) {
			return e.Answer, true
		}
	}
	return "", false
}

// Len returns the number of loaded entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Path returns the backing file path ("" when no file is configured).
func (t *Table) Path() string { return t.path }

func parseFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read faq file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) ([]Entry, error) {
	// Canonical array shape first.
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err == nil {
		return dedupe(entries), nil
	}

	// Legacy object shape.
	var legacy map[string]string
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("parse faq file: %w", err)
	}
	entries = make([]Entry, 0, len(legacy))
	for q, a := range legacy {
		entries = append(entries, Entry{Trigger: q, Answer: a})
	}
	return dedupe(entries), nil
}

// dedupe keeps the first occurrence of each trigger.
func dedupe(entries []Entry) []Entry {
	seen := make(map[string]bool, len(entries))
	out := entries[:0]
	for _, e := range entries {
		if e.Trigger == "" || seen[e.Trigger] {
			continue
		}
		seen[e.Trigger] = true
		out = append(out, e)
	}
	return out
}
