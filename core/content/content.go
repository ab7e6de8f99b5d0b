// Package content decides which repository paths are tracked units of content.
package content

import (
	"path"
	"strings"

	"github.com/huangsam/gitnote/schema"
)

// GroupConfigFilename is the reserved per-directory configuration file.
const GroupConfigFilename = ".group.toml"

// ArticleExtensions are the recognized document extensions.
var ArticleExtensions = []string{".md", ".markdown"}

// Classify returns the content kind of a slash-separated repository path.
// Matching is case-sensitive and only looks at the final path component.
func Classify(p string) schema.ContentKind {
	base := path.Base(p)
	if p == "" || base == "." || base == "/" || strings.HasSuffix(p, "/") {
		return schema.IgnoredContent
	}
	if base == GroupConfigFilename {
		return schema.GroupConfigContent
	}
	for _, ext := range ArticleExtensions {
		if strings.HasSuffix(base, ext) && len(base) > len(ext) {
			return schema.ArticleContent
		}
	}
	return schema.IgnoredContent
}

// GroupOf returns the group a path belongs to: its directory, or "" at the root.
func GroupOf(p string) string {
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// ArticleName returns the file name of p without its extension.
func ArticleName(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}

// ConfigPath returns the path of the group configuration for a group.
func ConfigPath(group string) string {
	if group == "" {
		return GroupConfigFilename
	}
	return group + "/" + GroupConfigFilename
}
