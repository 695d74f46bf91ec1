// Package testbackup builds synthetic account snapshots on disk: the legacy
// store with its conversation tables, the newer contact store with
// blob-encoded columns, and the settings keyed archive.
package testbackup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matheus3301/wxread/internal/locate"
	"github.com/matheus3301/wxread/internal/model"
	"github.com/matheus3301/wxread/internal/store"
	"google.golang.org/protobuf/encoding/protowire"
)

// Snapshot is an account directory under construction.
type Snapshot struct {
	Root    string
	t       testing.TB
	mm      *store.DB
	contact *store.DB
}

// Friend is a legacy Friend ⨝ Friend_Ext row.
type Friend struct {
	UsrName        string
	NickName       string
	ConRemark      string
	ConChatRoomMem string
	ConStrRes2     string
}

// ModernFriend is a newer contact store row; nil blobs are stored as NULL.
type ModernFriend struct {
	UserName  string
	Remark    []byte
	ChatRoom  []byte
	HeadImage []byte
}

// New creates an account directory holding an empty legacy store.
func New(t testing.TB) *Snapshot {
	t.Helper()
	s := &Snapshot{Root: t.TempDir(), t: t}
	s.mm = s.openStore(locate.LegacyStore, store.LegacySchema)
	return s
}

// Locator returns a locator for the snapshot's account directory.
func (s *Snapshot) Locator() locate.Dir {
	return locate.Dir{Root: s.Root}
}

// WithContactStore creates the newer contact store.
func (s *Snapshot) WithContactStore() *Snapshot {
	s.t.Helper()
	if s.contact == nil {
		s.contact = s.openStore(locate.ContactStore, store.ContactSchema)
	}
	return s
}

func (s *Snapshot) openStore(rel string, schema store.Schema) *store.DB {
	s.t.Helper()
	path := filepath.Join(s.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		s.t.Fatal(err)
	}
	db, err := store.Open(path)
	if err != nil {
		s.t.Fatal(err)
	}
	s.t.Cleanup(func() { _ = db.Close() })

	if _, err := db.ApplySchema(schema); err != nil {
		s.t.Fatal(err)
	}
	return db
}

// AddFriend inserts a legacy contact. Empty strings are stored as NULL.
func (s *Snapshot) AddFriend(f Friend) {
	s.t.Helper()
	s.ExecLegacy(`INSERT INTO Friend (UsrName, NickName) VALUES (?, ?)`, f.UsrName, null(f.NickName))
	s.ExecLegacy(`INSERT INTO Friend_Ext (UsrName, ConRemark, ConChatRoomMem, ConStrRes2) VALUES (?, ?, ?, ?)`,
		f.UsrName, null(f.ConRemark), null(f.ConChatRoomMem), null(f.ConStrRes2))
}

// AddModernFriend inserts a row into the newer contact store, creating it
// if needed.
func (s *Snapshot) AddModernFriend(f ModernFriend) {
	s.t.Helper()
	s.WithContactStore()
	s.ExecContact(`INSERT INTO Friend (userName, dbContactRemark, dbContactChatRoom, dbContactHeadImage) VALUES (?, ?, ?, ?)`,
		f.UserName, f.Remark, f.ChatRoom, f.HeadImage)
}

// AddChat creates the conversation table for hash and inserts records.
// Zero LocalIDs are assigned by the table.
func (s *Snapshot) AddChat(hash string, records ...model.Record) {
	s.t.Helper()
	table := `"Chat_` + hash + `"`
	s.ExecLegacy(`CREATE TABLE ` + table + ` (
		TableVer   INTEGER DEFAULT 1,
		MesLocalID INTEGER PRIMARY KEY AUTOINCREMENT,
		MesSvrID   INTEGER DEFAULT 0,
		CreateTime INTEGER DEFAULT 0,
		Message    TEXT,
		Status     INTEGER DEFAULT 0,
		ImgStatus  INTEGER DEFAULT 0,
		Type       INTEGER DEFAULT 0,
		Des        INTEGER DEFAULT 0
	)`)
	for _, r := range records {
		var localID any
		if r.LocalID != 0 {
			localID = r.LocalID
		}
		s.ExecLegacy(`INSERT INTO `+table+` (MesLocalID, MesSvrID, CreateTime, Message, Status, ImgStatus, Type, Des)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			localID, r.ServerID, r.CreateTime, null(r.Message), r.Status, r.ImgStatus, r.Type, r.Des)
	}
}

// ExecLegacy runs a statement against the legacy store.
func (s *Snapshot) ExecLegacy(query string, args ...any) {
	s.t.Helper()
	if _, err := s.mm.Exec(query, args...); err != nil {
		s.t.Fatalf("legacy store: %v", err)
	}
}

// ExecContact runs a statement against the newer contact store.
func (s *Snapshot) ExecContact(query string, args ...any) {
	s.t.Helper()
	s.WithContactStore()
	if _, err := s.contact.Exec(query, args...); err != nil {
		s.t.Fatalf("contact store: %v", err)
	}
}

// WriteFile writes data at rel inside the account directory.
func (s *Snapshot) WriteFile(rel string, data []byte) {
	s.t.Helper()
	path := filepath.Join(s.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		s.t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		s.t.Fatal(err)
	}
}

// RemarkBlob encodes a dbContactRemark column. Empty values are omitted.
func RemarkBlob(nickName, alias, remark string) []byte {
	return fields(nil, 1, nickName, 2, alias, 3, remark)
}

// ChatRoomBlob encodes a dbContactChatRoom column.
func ChatRoomBlob(ref string) []byte {
	b := protowire.AppendTag(nil, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, 1)
	return fields(b, 6, ref)
}

// HeadImageBlob encodes a dbContactHeadImage column.
func HeadImageBlob(portrait, portraitHD string) []byte {
	return fields(nil, 2, portrait, 3, portraitHD)
}

// fields appends (number, value) pairs as length-delimited fields.
func fields(b []byte, pairs ...any) []byte {
	if b == nil {
		b = []byte{}
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		v := pairs[i+1].(string)
		if v == "" {
			continue
		}
		b = protowire.AppendTag(b, protowire.Number(pairs[i].(int)), protowire.BytesType)
		b = protowire.AppendString(b, v)
	}
	return b
}

func null(s string) any {
	if s == "" {
		return nil
	}
	return s
}
