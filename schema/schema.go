// Package schema has configs, models and shared types for all parts of gitnote.
package schema

import "time"

// Entry is one content-level change extracted from a tree diff.
// The set of implementations is closed: GroupConfigChanged, ArticleChanged and Removed.
// Consumers are expected to type switch over all three.
type Entry interface {
	// Kind reports the variant.
	Kind() EntryKind
	// EntryPath is the tracked path the change applies to.
	EntryPath() string
	// ChangedAt is the commit time of the change.
	ChangedAt() time.Time

	isEntry()
}

// GroupConfigChanged means the group configuration blob was added or replaced.
type GroupConfigChanged struct {
	Group     string    `json:"group"`
	Path      string    `json:"path"`
	Content   string    `json:"content"`
	BlobHash  string    `json:"blob_hash"`
	Timestamp time.Time `json:"timestamp"`
}

// ArticleChanged means an article was added or replaced.
type ArticleChanged struct {
	Group     string    `json:"group"`
	Name      string    `json:"name"` // file name without extension
	Path      string    `json:"path"`
	Content   string    `json:"content"`
	BlobHash  string    `json:"blob_hash"`
	Timestamp time.Time `json:"timestamp"`
}

// Removed means a classified path was deleted. A nil Name is the group configuration.
type Removed struct {
	Group     string    `json:"group"`
	Name      *string   `json:"name"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

var (
	_ Entry = GroupConfigChanged{}
	_ Entry = ArticleChanged{}
	_ Entry = Removed{}
)

// Kind implements Entry.
func (GroupConfigChanged) Kind() EntryKind { return GroupConfigChangedKind }

// EntryPath implements Entry.
func (e GroupConfigChanged) EntryPath() string { return e.Path }

// ChangedAt implements Entry.
func (e GroupConfigChanged) ChangedAt() time.Time { return e.Timestamp }

func (GroupConfigChanged) isEntry() {}

// Kind implements Entry.
func (ArticleChanged) Kind() EntryKind { return ArticleChangedKind }

// EntryPath implements Entry.
func (e ArticleChanged) EntryPath() string { return e.Path }

// ChangedAt implements Entry.
func (e ArticleChanged) ChangedAt() time.Time { return e.Timestamp }

func (ArticleChanged) isEntry() {}

// Kind implements Entry.
func (Removed) Kind() EntryKind { return RemovedKind }

// EntryPath implements Entry.
func (e Removed) EntryPath() string { return e.Path }

// ChangedAt implements Entry.
func (e Removed) ChangedAt() time.Time { return e.Timestamp }

func (Removed) isEntry() {}

// IsGroupConfig reports whether the removal targets the group configuration.
func (e Removed) IsGroupConfig() bool { return e.Name == nil }

// ChangeSet is an ordered sequence of entries.
type ChangeSet []Entry

// Counts tallies the change set per variant.
func (cs ChangeSet) Counts() (articles, configs, removals int) {
	for _, e := range cs {
		switch e.(type) {
		case ArticleChanged:
			articles++
		case GroupConfigChanged:
			configs++
		case Removed:
			removals++
		}
	}
	return articles, configs, removals
}

// Paths returns the tracked path of every entry in order.
func (cs ChangeSet) Paths() []string {
	paths := make([]string, len(cs))
	for i, e := range cs {
		paths[i] = e.EntryPath()
	}
	return paths
}
