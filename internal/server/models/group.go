package models

// Group is a named collection of file references. Name is a secondary lookup
// key with no uniqueness guarantee. Groups is part of the stored document
// but no operation fills it.
type Group struct {
	ID     string     `bson:"id" json:"id"`
	Name   string     `bson:"name" json:"name"`
	Files  []FileMeta `bson:"files" json:"files"`
	Groups []Group    `bson:"groups" json:"groups"`
}

// HasFile reports whether an entry with fileID is embedded in the group.
func (g *Group) HasFile(fileID string) bool {
	for _, f := range g.Files {
		if f.ID == fileID {
			return true
		}
	}
	return false
}

// FileIDs returns the ids of the embedded entries in insertion order.
func (g *Group) FileIDs() []string {
	ids := make([]string, 0, len(g.Files))
	for _, f := range g.Files {
		ids = append(ids, f.ID)
	}
	return ids
}
