package consensus

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SynonymTable maps label variants onto canonical forms. Matching is exact
// after case folding and whitespace collapsing; there is no fuzzy matching,
// so two labels merge only when the table says they do.
type SynonymTable struct {
	variants map[string]string
}

// NewSynonymTable builds a table from canonical → variants groups. Keys and
// variants are folded the same way lookups are.
func NewSynonymTable(groups map[string][]string) *SynonymTable {
	t := &SynonymTable{variants: make(map[string]string)}
	for canonical, vars := range groups {
		canon := fold(canonical)
		for _, v := range vars {
			t.variants[fold(v)] = canon
		}
	}
	return t
}

// LoadSynonyms reads a YAML file of canonical → variants groups. An empty
// path yields an empty table.
func LoadSynonyms(path string) (*SynonymTable, error) {
	if path == "" {
		return NewSynonymTable(nil), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read synonyms: %w", err)
	}
	var groups map[string][]string
	if err := yaml.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("parse synonyms: %w", err)
	}
	return NewSynonymTable(groups), nil
}

// Canonicalize folds a label and resolves it through the table.
func (t *SynonymTable) Canonicalize(label string) string {
	folded := fold(label)
	if canon, ok := t.variants[folded]; ok {
		return canon
	}
	return folded
}

func fold(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
