// Package session implements the namespaced on-disk store for per-source
// credentials and cookie material.
//
// Every source owns one namespace directory under the store root. Reads of
// missing or corrupt artifacts degrade to an absent result instead of
// failing, so a damaged store never blocks a download.
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/samber/mo"
	"github.com/spf13/viper"

	"github.com/multidl-cli/multidl/filesystem"
	"github.com/multidl-cli/multidl/key"
	"github.com/multidl-cli/multidl/log"
	"github.com/multidl-cli/multidl/source"
	"github.com/multidl-cli/multidl/util"
	"github.com/multidl-cli/multidl/where"
)

const (
	metaFile   = "meta.json"
	cookieFile = "cookies.txt"
)

// Meta is the per-namespace metadata record. Filename, when set, names a
// blob inside the same namespace holding the exported session state.
type Meta struct {
	Username string `json:"username"`
	Filename string `json:"filename"`
}

// Store is a session store rooted at a single directory.
type Store struct {
	root string
}

// New creates a store rooted at the given directory.
func New(root string) *Store {
	return &Store{root: root}
}

// Default creates a store rooted at the configured session path, falling
// back to the sessions directory beside the rest of the application state.
func Default() *Store {
	if root := viper.GetString(key.SessionPath); root != "" {
		return New(root)
	}

	return New(where.Sessions())
}

// Root returns the directory the store is rooted at.
func (s *Store) Root() string {
	return s.root
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

// sanitize derives a directory name from a display name. Lowercase,
// every other character becomes an underscore, separators are trimmed
// from both ends and an empty result collapses to "default".
func sanitize(name string) string {
	cleaned := nonAlnum.ReplaceAllString(strings.ToLower(name), "_")
	cleaned = strings.Trim(cleaned, "_")
	if cleaned == "" {
		return "default"
	}

	return cleaned
}

// Namespace returns the directory name a source's artifacts live under.
func Namespace(id source.ID) string {
	return sanitize(id.String())
}

// Dir resolves the namespace directory of a source, creating it when
// missing.
func (s *Store) Dir(id source.ID) string {
	path := filepath.Join(s.root, Namespace(id))
	_ = filesystem.API().MkdirAll(path, os.ModePerm)
	return path
}

// Path resolves the absolute path of a named artifact inside a source's
// namespace.
func (s *Store) Path(id source.ID, filename string) string {
	return filepath.Join(s.Dir(id), filename)
}

// CookiePath resolves the default cookie jar artifact of a source.
func (s *Store) CookiePath(id source.ID) string {
	return s.Path(id, cookieFile)
}

// ReadBlob reads a binary artifact. A missing or unreadable file yields an
// absent result, never an error.
func (s *Store) ReadBlob(id source.ID, filename string) mo.Option[[]byte] {
	data, err := filesystem.API().ReadFile(s.Path(id, filename))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("Failed to read session artifact %s of %s: %s", filename, id, err)
		}

		return mo.None[[]byte]()
	}

	return mo.Some(data)
}

// WriteBlob writes a binary artifact, creating the namespace directory as
// needed.
func (s *Store) WriteBlob(id source.ID, filename string, data []byte) error {
	return filesystem.API().WriteFile(s.Path(id, filename), data, os.ModePerm)
}

// ReadText reads a text artifact with the same absent semantics as
// ReadBlob.
func (s *Store) ReadText(id source.ID, filename string) mo.Option[string] {
	data, ok := s.ReadBlob(id, filename).Get()
	if !ok {
		return mo.None[string]()
	}

	return mo.Some(string(data))
}

// WriteText writes a text artifact.
func (s *Store) WriteText(id source.ID, filename, content string) error {
	return s.WriteBlob(id, filename, []byte(content))
}

// ReadJSON reads and decodes a JSON artifact. A file that does not decode
// into T is treated the same as a missing one.
func ReadJSON[T any](s *Store, id source.ID, filename string) mo.Option[T] {
	data, ok := s.ReadBlob(id, filename).Get()
	if !ok {
		return mo.None[T]()
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		log.Warnf("Discarding corrupt session artifact %s of %s: %s", filename, id, err)
		return mo.None[T]()
	}

	return mo.Some(value)
}

// WriteJSON encodes and writes a JSON artifact.
func (s *Store) WriteJSON(id source.ID, filename string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}

	return s.WriteBlob(id, filename, data)
}

// ReadMeta reads the namespace metadata record. A record referencing a
// blob that no longer exists is discarded, so callers always see a
// consistent namespace.
func (s *Store) ReadMeta(id source.ID) mo.Option[Meta] {
	meta, ok := ReadJSON[Meta](s, id, metaFile).Get()
	if !ok {
		return mo.None[Meta]()
	}

	if meta.Filename != "" {
		exists, err := filesystem.API().Exists(s.Path(id, meta.Filename))
		if err != nil || !exists {
			log.Warnf("Session metadata of %s references missing artifact %s", id, meta.Filename)
			return mo.None[Meta]()
		}
	}

	return mo.Some(meta)
}

// WriteMeta writes the namespace metadata record.
func (s *Store) WriteMeta(id source.ID, meta Meta) error {
	return s.WriteJSON(id, metaFile, meta)
}

// Files lists the artifact names present in a source's namespace.
func (s *Store) Files(id source.ID) ([]string, error) {
	infos, err := filesystem.API().ReadDir(s.Dir(id))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if !info.IsDir() {
			names = append(names, info.Name())
		}
	}

	return names, nil
}

// Clear removes every artifact of a source's namespace.
func (s *Store) Clear(id source.ID) error {
	return util.Delete(s.Dir(id))
}
