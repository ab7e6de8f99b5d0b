package archive

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

type dirNode struct {
	files map[string]plumbing.Hash
	dirs  map[string]*dirNode
}

func newDirNode() *dirNode {
	return &dirNode{files: map[string]plumbing.Hash{}, dirs: map[string]*dirNode{}}
}

// writeTree stores the nested trees for a flat path -> blob state and returns the root id.
func writeTree(objects storer.EncodedObjectStorer, state map[string]plumbing.Hash) (plumbing.Hash, error) {
	root := newDirNode()
	for p, h := range state {
		if err := root.insert(strings.Split(p, "/"), h); err != nil {
			return plumbing.ZeroHash, fmt.Errorf("cannot place %s: %w", p, err)
		}
	}
	return root.write(objects)
}

func (d *dirNode) insert(parts []string, h plumbing.Hash) error {
	name := parts[0]
	if len(parts) == 1 {
		if _, ok := d.dirs[name]; ok {
			return fmt.Errorf("%s is already a directory", name)
		}
		d.files[name] = h
		return nil
	}
	if _, ok := d.files[name]; ok {
		return fmt.Errorf("%s is already a file", name)
	}
	sub, ok := d.dirs[name]
	if !ok {
		sub = newDirNode()
		d.dirs[name] = sub
	}
	return sub.insert(parts[1:], h)
}

func (d *dirNode) write(objects storer.EncodedObjectStorer) (plumbing.Hash, error) {
	entries := make([]object.TreeEntry, 0, len(d.files)+len(d.dirs))
	for name, h := range d.files {
		entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Regular, Hash: h})
	}
	for name, sub := range d.dirs {
		h, err := sub.write(objects)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: h})
	}

	// git orders directories as if their name ended with a slash
	sort.Slice(entries, func(i, j int) bool {
		return entrySortKey(entries[i]) < entrySortKey(entries[j])
	})

	tree := &object.Tree{Entries: entries}
	obj := objects.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode tree: %w", err)
	}
	h, err := objects.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store tree: %w", err)
	}
	return h, nil
}

func entrySortKey(e object.TreeEntry) string {
	if e.Mode == filemode.Dir {
		return e.Name + "/"
	}
	return e.Name
}

// ensureBlob returns the id of a blob holding body, writing it when the store lacks it.
func ensureBlob(objects storer.EncodedObjectStorer, hexHash, body string) (plumbing.Hash, error) {
	if plumbing.IsHash(hexHash) {
		h := plumbing.NewHash(hexHash)
		if objects.HasEncodedObject(h) == nil {
			return h, nil
		}
	}

	obj := objects.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(body)))
	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if _, err := w.Write([]byte(body)); err != nil {
		_ = w.Close()
		return plumbing.ZeroHash, err
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, err
	}
	h, err := objects.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store blob: %w", err)
	}
	return h, nil
}
