package locate

import (
	"crypto/sha1"
	"encoding/hex"
	"os"
	"path"
	"path/filepath"
)

// DefaultDomain is the backup domain of the messaging app's container.
const DefaultDomain = "AppDomain-com.tencent.xin"

// Paths relative to the account directory.
const (
	LegacyStore  = "DB/MM.sqlite"
	ContactStore = "DB/WCDB_Contact.sqlite"
	Settings     = "mmsetting.archive"
)

// Locator maps a path relative to the account directory (e.g. "DB/MM.sqlite")
// to a file on disk. It never fails: callers stat the result.
type Locator interface {
	Locate(rel string) string
}

// Dir locates files inside an already extracted account directory.
type Dir struct {
	Root string
}

// Locate joins rel under the root.
func (d Dir) Locate(rel string) string {
	return filepath.Join(d.Root, filepath.FromSlash(rel))
}

// Backup locates files inside an unencrypted iTunes-style device backup,
// where each file is stored under the SHA-1 of "<domain>-<relative path>".
type Backup struct {
	Root    string
	Domain  string
	UserDir string // account directory relative to the domain, e.g. Documents/<md5>
}

// FileID returns the backup file id for rel.
func (b Backup) FileID(rel string) string {
	domain := b.Domain
	if domain == "" {
		domain = DefaultDomain
	}
	sum := sha1.Sum([]byte(domain + "-" + path.Join(b.UserDir, filepath.ToSlash(rel))))
	return hex.EncodeToString(sum[:])
}

// Locate prefers the sharded layout (<id[:2]>/<id>, iOS 10 and later) and
// falls back to the flat layout when only that one exists.
func (b Backup) Locate(rel string) string {
	id := b.FileID(rel)
	sharded := filepath.Join(b.Root, id[:2], id)
	if _, err := os.Stat(sharded); err == nil {
		return sharded
	}
	flat := filepath.Join(b.Root, id)
	if _, err := os.Stat(flat); err == nil {
		return flat
	}
	return sharded
}

// Exists reports whether the located file exists.
func Exists(l Locator, rel string) bool {
	_, err := os.Stat(l.Locate(rel))
	return err == nil
}
