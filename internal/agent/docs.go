package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// sectionLimit caps how much of a matched section is returned.
const sectionLimit = 8000

var docExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// ListDocuments returns the document names available in the knowledge base.
func ListDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !docExtensions[filepath.Ext(e.Name())] {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// FindDocument locates a document by loose name match, e.g. "38.331" matches
// "TS_38.331_RRC.txt". The first match in name order wins.
func FindDocument(dir, document string) (string, error) {
	names, err := ListDocuments(dir)
	if err != nil {
		return "", err
	}
	needle := strings.ToLower(strings.TrimSpace(document))
	if needle == "" {
		return "", fmt.Errorf("document name is empty")
	}
	for _, name := range names {
		if strings.Contains(strings.ToLower(name), needle) {
			return filepath.Join(dir, name), nil
		}
	}
	return "", fmt.Errorf("document %q not found in knowledge base", document)
}

var headingRe = regexp.MustCompile(`(?m)^(\d+(?:\.\d+)*)\s`)

// ExtractSection returns the text of a numbered section heading like "6.3.2",
// from the heading up to the next heading at the same or shallower depth.
func ExtractSection(text, section string) (string, error) {
	startRe, err := regexp.Compile(`(?m)^` + regexp.QuoteMeta(section) + `(\s|$)`)
	if err != nil {
		return "", err
	}
	loc := startRe.FindStringIndex(text)
	if loc == nil {
		return "", fmt.Errorf("section %s not found", section)
	}
	rest := text[loc[0]:]

	depth := strings.Count(section, ".")
	end := len(rest)
	for _, m := range headingRe.FindAllStringSubmatchIndex(rest, -1) {
		if m[0] == 0 {
			continue
		}
		num := rest[m[2]:m[3]]
		if strings.Count(num, ".") <= depth {
			end = m[0]
			break
		}
	}

	out := strings.TrimSpace(rest[:end])
	if runes := []rune(out); len(runes) > sectionLimit {
		// Cut on a rune boundary so the result stays valid UTF-8.
		out = string(runes[:sectionLimit])
	}
	return out, nil
}

// SearchKeyword returns the lines of text containing keyword
// (case-insensitive), each prefixed with its line number. At most limit
// matches are returned; limit <= 0 means no cap.
func SearchKeyword(text, keyword string, limit int) []string {
	needle := strings.ToLower(keyword)
	var matches []string
	for i, line := range strings.Split(text, "\n") {
		if !strings.Contains(strings.ToLower(line), needle) {
			continue
		}
		matches = append(matches, fmt.Sprintf("%d: %s", i+1, strings.TrimSpace(line)))
		if limit > 0 && len(matches) >= limit {
			break
		}
	}
	return matches
}
