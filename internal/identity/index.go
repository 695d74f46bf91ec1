// Package identity resolves contacts by any of the identifier forms the
// device stores use: canonical name, alias, and the MD5 hex digest of each.
// Conversation tables are named after the digest of the canonical name.
package identity

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"

	"github.com/matheus3301/wxread/internal/model"
)

var hashRegexp = regexp.MustCompile(`^[0-9a-f]{32}$`)

// Hash returns the lowercase hex MD5 digest of s.
func Hash(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// IsHash reports whether s has the shape of a Hash result.
func IsHash(s string) bool {
	return hashRegexp.MatchString(s)
}

// Index maps identifier forms to contacts. Several keys point at the same
// contact, and a key shared by two contacts maps to whichever was inserted
// last. Build it once per snapshot; it is read-only afterwards.
type Index map[string]model.Person

// Build indexes contacts in order under name, Hash(name), alias and
// Hash(alias). Later contacts overwrite earlier ones on key collision.
func Build(contacts []model.Person) Index {
	ix := make(Index, len(contacts)*4)
	for _, c := range contacts {
		ix[c.UsrName] = c
		ix[Hash(c.UsrName)] = c
		if c.Alias != "" {
			ix[c.Alias] = c
			ix[Hash(c.Alias)] = c
		}
	}
	return ix
}

// Lookup returns the contact stored under key.
func (ix Index) Lookup(key string) (model.Person, bool) {
	p, ok := ix[key]
	return p, ok
}

// Resolve returns the contact owning a conversation hash.
func (ix Index) Resolve(hash string) (model.Person, bool) {
	return ix.Lookup(hash)
}

// SessionHash turns a user-supplied key (name, alias or hash) into the
// conversation hash of the contact it designates. Unknown keys that already
// look like a hash are returned unchanged; other unknown keys are hashed as
// canonical names.
func (ix Index) SessionHash(key string) string {
	if p, ok := ix[key]; ok {
		return Hash(p.UsrName)
	}
	if IsHash(key) {
		return key
	}
	return Hash(key)
}
