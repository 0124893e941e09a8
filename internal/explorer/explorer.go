// Package explorer lists files under a single configured root. Every
// request path is resolved inside that root; the gateway never exposes
// anything outside it.
package explorer

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	registrystore "github.com/onlymatt/gateway/internal/registry/store"
)

// DefaultMaxResults bounds a single listing when the caller asks for
// more or doesn't say.
const DefaultMaxResults = 200

// Entry is one file or directory in a listing. Path is always relative
// to the explorer root, with forward slashes.
type Entry struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	IsDir      bool      `json:"is_dir"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Listing is a window into the recursive contents of one directory.
type Listing struct {
	Path      string  `json:"path"`
	Entries   []Entry `json:"entries"`
	Total     int     `json:"total"`
	Truncated bool    `json:"truncated"`
}

// Explorer serves listings confined to root.
type Explorer struct {
	root       string
	maxResults int
}

// New creates an Explorer over the given root directory. maxResults
// caps any single listing; values <= 0 fall back to DefaultMaxResults.
func New(root string, maxResults int) *Explorer {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &Explorer{root: filepath.Clean(root), maxResults: maxResults}
}

// resolve maps a request path to an absolute path inside the root.
// Anything that would escape (absolute paths, .. segments) is rejected
// before touching the filesystem.
func (e *Explorer) resolve(rel string) (string, string, error) {
	rel = path.Clean("/" + filepath.ToSlash(rel))[1:] // normalize, strip leading slash
	if rel == "" || rel == "." {
		return e.root, "", nil
	}
	if !filepath.IsLocal(rel) {
		return "", "", &registrystore.ValidationError{Field: "path", Message: "must stay inside the files root"}
	}
	return filepath.Join(e.root, filepath.FromSlash(rel)), rel, nil
}

// ListOptions controls one listing request.
type ListOptions struct {
	Limit     int
	Offset    int
	Recursive bool
}

// List returns the window [offset, offset+limit) of the entries under
// rel in walk order. A rel naming a regular file returns that single
// file. Non-recursive listings stop at the immediate children.
func (e *Explorer) List(ctx context.Context, rel string, opts ListOptions) (*Listing, error) {
	if e.root == "" || e.root == "." {
		return nil, &registrystore.ValidationError{Field: "path", Message: "file explorer is not configured"}
	}
	limit := opts.Limit
	if limit <= 0 || limit > e.maxResults {
		limit = e.maxResults
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	target, relClean, err := e.resolve(rel)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &registrystore.NotFoundError{Resource: "path", ID: rel}
		}
		return nil, err
	}

	listing := &Listing{Path: relClean, Entries: []Entry{}}

	if !info.IsDir() {
		listing.Total = 1
		if offset == 0 {
			listing.Entries = append(listing.Entries, Entry{
				Name:       info.Name(),
				Path:       relClean,
				Size:       info.Size(),
				ModifiedAt: info.ModTime(),
			})
		}
		return listing, nil
	}

	err = fs.WalkDir(os.DirFS(target), ".", func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Unreadable subtrees are skipped, not fatal.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == "." {
			return nil
		}

		var skip error
		if d.IsDir() && !opts.Recursive {
			skip = fs.SkipDir
		}

		idx := listing.Total
		listing.Total++
		if idx < offset || len(listing.Entries) >= limit {
			return skip
		}

		fi, err := d.Info()
		if err != nil {
			return skip
		}
		entry := Entry{
			Name:       d.Name(),
			Path:       path.Join(relClean, p),
			IsDir:      d.IsDir(),
			ModifiedAt: fi.ModTime(),
		}
		if !d.IsDir() {
			entry.Size = fi.Size()
		}
		listing.Entries = append(listing.Entries, entry)
		return skip
	})
	if err != nil {
		return nil, err
	}

	listing.Truncated = offset+len(listing.Entries) < listing.Total
	return listing, nil
}
