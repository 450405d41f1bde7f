package models

// Group is a named collection of users who share expenses.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	// Empty for the implicit two-person friend group.
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Ski Trip").
	Name string

	// Type is an optional tag such as "Trip" or "Home".
	Type string

	// CreatedBy is the user ID of the group's creator.
	CreatedBy string

	// Members is the set of member user IDs, in insertion order.
	Members []string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// FriendGroup returns the pseudo-group used for expenses shared directly
// between two friends.
func FriendGroup(userID, friendID string) *Group {
	return &Group{Name: "Friends", Members: []string{userID, friendID}}
}

// IsFriendGroup reports whether g is a friend pseudo-group.
func (g *Group) IsFriendGroup() bool {
	return g.ID == ""
}

// HasMember reports whether userID belongs to the group.
func (g *Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// AddMembers appends the given IDs that are not already members and
// returns the ones that were added.
func (g *Group) AddMembers(userIDs ...string) []string {
	var added []string
	for _, id := range UniqueIDs(userIDs) {
		if id == "" || g.HasMember(id) {
			continue
		}
		g.Members = append(g.Members, id)
		added = append(added, id)
	}
	return added
}

// UniqueIDs removes duplicates from ids, keeping first occurrences in order.
func UniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
