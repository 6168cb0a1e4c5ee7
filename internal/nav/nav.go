// Package nav builds the sidebar from the access table so it never offers a
// view the guard would refuse.
package nav

import (
	"strings"

	"github.com/saas-dashboard/dashboard/internal/access"
	"github.com/saas-dashboard/dashboard/internal/identity"
)

// Item is one sidebar link.
type Item struct {
	View   string `json:"view"`
	Title  string `json:"title"`
	Path   string `json:"path"`
	Active bool   `json:"active"`
}

// Section groups items under a heading.
type Section struct {
	Title string `json:"title"`
	Items []Item `json:"items"`
}

// Builder computes navigation per identity.
type Builder struct {
	guard *access.Guard
}

// NewBuilder returns a Builder backed by guard.
func NewBuilder(guard *access.Guard) *Builder {
	return &Builder{guard: guard}
}

// Build returns the sections visible to who, in table order, marking the
// item whose path prefixes currentPath. Nil identity yields no sections.
func (b *Builder) Build(who *identity.Identity, currentPath string) []Section {
	if who == nil {
		return nil
	}
	var (
		sections []Section
		index    = map[string]int{}
	)
	for _, rule := range b.guard.Table.Rules() {
		if rule.Hidden || rule.Path == "" || !b.guard.Allows(rule.View, who) {
			continue
		}
		idx, ok := index[rule.Section]
		if !ok {
			idx = len(sections)
			index[rule.Section] = idx
			sections = append(sections, Section{Title: rule.Section})
		}
		sections[idx].Items = append(sections[idx].Items, Item{
			View:   rule.View,
			Title:  rule.Title,
			Path:   rule.Path,
			Active: isActive(rule.Path, currentPath),
		})
	}
	return sections
}

// Views flattens the visible view names, handy for role summaries.
func Views(sections []Section) []string {
	var out []string
	for _, s := range sections {
		for _, item := range s.Items {
			out = append(out, item.View)
		}
	}
	return out
}

func isActive(itemPath, current string) bool {
	if current == itemPath {
		return true
	}
	return strings.HasPrefix(current, strings.TrimRight(itemPath, "/")+"/")
}
