package teamname

import (
	"context"
	"sort"
	"strings"
)

// AliasTable maps a canonical team name to the alternate spellings that
// should resolve to it.
type AliasTable map[string][]string

// AliasResolver looks up the canonical name for an already cleaned name.
type AliasResolver interface {
	Resolve(cleaned string) (string, bool)
}

// Repository loads the alias table from wherever it is administered.
type Repository interface {
	LoadAliasTable(ctx context.Context) (AliasTable, error)
}

// TableResolver is an in-memory AliasResolver keyed on MatchKey, so case and
// punctuation differences between an alias and the scraped text do not matter.
// Canonical names win over aliases when both claim the same key.
type TableResolver struct {
	canonical map[string]string
	aliases   map[string]string
	names     []string
}

func NewTableResolver(table AliasTable) *TableResolver {
	r := &TableResolver{
		canonical: make(map[string]string, len(table)),
		aliases:   make(map[string]string),
	}

	names := make([]string, 0, len(table))
	for name := range table {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		key := MatchKey(name)
		if key == "" {
			continue
		}
		if _, exists := r.canonical[key]; exists {
			continue
		}
		r.canonical[key] = name
		r.names = append(r.names, name)
	}

	for _, name := range names {
		for _, alias := range table[name] {
			key := MatchKey(alias)
			if key == "" {
				continue
			}
			if _, exists := r.canonical[key]; exists {
				continue
			}
			if _, exists := r.aliases[key]; exists {
				continue
			}
			r.aliases[key] = name
		}
	}

	return r
}

func (r *TableResolver) Resolve(cleaned string) (string, bool) {
	if r == nil {
		return "", false
	}
	key := MatchKey(cleaned)
	if key == "" {
		return "", false
	}
	if name, ok := r.canonical[key]; ok {
		return name, true
	}
	if name, ok := r.aliases[key]; ok {
		return name, true
	}
	return "", false
}

// Names returns the canonical names known to the resolver in sorted order.
func (r *TableResolver) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
