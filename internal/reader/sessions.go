package reader

import (
	"fmt"
	"regexp"
)

const chatTablePrefix = "Chat_"

var chatTableRegexp = regexp.MustCompile(`^Chat_([0-9a-f]{32})$`)

// SessionHashes picks the conversation tables out of tables and returns
// their hash suffixes, in input order. Names with the prefix but a suffix
// that is not exactly 32 lowercase hex characters are ignored.
func SessionHashes(tables []string) []string {
	var hashes []string
	for _, name := range tables {
		if m := chatTableRegexp.FindStringSubmatch(name); m != nil {
			hashes = append(hashes, m[1])
		}
	}
	return hashes
}

// ChatTable returns the conversation table name for hash.
func ChatTable(hash string) string {
	return chatTablePrefix + hash
}

// Sessions returns the hashes of every contact with a conversation table.
// Order follows the schema catalog and carries no meaning.
func (r *Reader) Sessions() ([]string, error) {
	tables, err := r.mm.TableNames()
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return SessionHashes(tables), nil
}
