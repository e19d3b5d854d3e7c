// Package nav maps a role to the navigation tree shown to it.
package nav

import "github.com/trezcool/edutrack/core/auth"

type ItemType string

const (
	TypeGroup    ItemType = "group"
	TypeCollapse ItemType = "collapse"
	TypeItem     ItemType = "item"
)

type Item struct {
	ID          string   `json:"id"`
	Title       string   `json:"title,omitempty"`
	Type        ItemType `json:"type"`
	URL         string   `json:"url,omitempty"`
	Icon        string   `json:"icon,omitempty"`
	Breadcrumbs bool     `json:"breadcrumbs"`
	Children    []Item   `json:"children,omitempty"`
}

type Tree struct {
	Items []Item `json:"items"`
}

// URLs lists the leaf URLs of the tree, depth first.
func (t Tree) URLs() []string {
	var urls []string
	var walk func(items []Item)
	walk = func(items []Item) {
		for _, it := range items {
			if it.URL != "" {
				urls = append(urls, it.URL)
			}
			walk(it.Children)
		}
	}
	walk(t.Items)
	return urls
}

// ForRole returns the navigation tree of a role; unknown and missing roles get the default tree.
func ForRole(role auth.Role) Tree {
	switch role {
	case auth.RoleSuperAdmin:
		return Tree{Items: []Item{dashboard(auth.SuperDashboardPath), schools(), plans()}}
	case auth.RoleSchoolAdmin:
		return Tree{Items: []Item{dashboard(auth.SchoolDashboardPath), academicCore(), students(), admissionForm()}}
	}
	return Tree{Items: []Item{dashboard(DefaultDashboardPath), admissionForm()}}
}

// Resolve picks the tree of role, falling back to the cached role when none is given.
func Resolve(role auth.Role, cache auth.RoleCache) Tree {
	if role == auth.RoleNone && cache != nil {
		if cached, ok := cache.Load(); ok {
			role = cached.Role
		}
	}
	return ForRole(role)
}
