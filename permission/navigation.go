package permission

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed navigation.yaml
var defaultNavigation []byte

// NavItem is one entry of the navigation catalog.
type NavItem struct {
	Key      string    `yaml:"key" json:"key"`
	Label    string    `yaml:"label" json:"label"`
	Path     string    `yaml:"path,omitempty" json:"path,omitempty"`
	Icon     string    `yaml:"icon,omitempty" json:"icon,omitempty"`
	Public   bool      `yaml:"public,omitempty" json:"public,omitempty"`
	AnyOf    []string  `yaml:"anyOf,omitempty" json:"anyOf,omitempty"`
	Children []NavItem `yaml:"children,omitempty" json:"children,omitempty"`
}

// DefaultNavigation parses the embedded catalog.
func DefaultNavigation() ([]NavItem, error) {
	return ParseNavigation(defaultNavigation)
}

// ParseNavigation decodes a YAML catalog and checks that keys are present
// and unique.
func ParseNavigation(data []byte) ([]NavItem, error) {
	var items []NavItem
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("permission: parse navigation: %w", err)
	}
	seen := map[string]bool{}
	if err := checkNav(items, seen); err != nil {
		return nil, err
	}
	return items, nil
}

func checkNav(items []NavItem, seen map[string]bool) error {
	for _, it := range items {
		if it.Key == "" {
			return fmt.Errorf("permission: navigation item %q has no key", it.Label)
		}
		if seen[it.Key] {
			return fmt.Errorf("permission: duplicate navigation key %q", it.Key)
		}
		seen[it.Key] = true
		if err := checkNav(it.Children, seen); err != nil {
			return err
		}
	}
	return nil
}

// Visible reports whether a single item (ignoring children) is visible.
func (it NavItem) Visible(g Grants) bool {
	if it.Public {
		return true
	}
	if len(it.AnyOf) == 0 {
		return g.IsWildcard()
	}
	return g.Allows(it.AnyOf...)
}

// Filter returns the items visible to g. A parent is kept only when it is
// visible itself and, if it has children, at least one child survives.
// The input is not modified.
func Filter(items []NavItem, g Grants) []NavItem {
	out := []NavItem{}
	for _, it := range items {
		if !it.Visible(g) {
			continue
		}
		if len(it.Children) > 0 {
			children := Filter(it.Children, g)
			if len(children) == 0 {
				continue
			}
			it.Children = children
		}
		it.AnyOf = append([]string(nil), it.AnyOf...)
		out = append(out, it)
	}
	return out
}
