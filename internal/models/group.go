package models

import "slices"

// Group represents a set of members who split receipts between them.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Ski Trip").
	Name string

	// Members is the list of member ids in this group. Order is irrelevant.
	Members []string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// HasMember reports whether id is a member of the group.
func (g *Group) HasMember(id string) bool {
	return slices.Contains(g.Members, id)
}
