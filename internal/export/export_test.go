package export

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/matheus3301/wxread/internal/bus"
	"github.com/matheus3301/wxread/internal/identity"
	"github.com/matheus3301/wxread/internal/lock"
	"github.com/matheus3301/wxread/internal/model"
	"github.com/matheus3301/wxread/internal/reader"
	"github.com/matheus3301/wxread/internal/testbackup"
	"go.uber.org/zap"
)

func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatal(err)
	}
}

func TestRunExportsSnapshot(t *testing.T) {
	snap := testbackup.New(t)
	snap.WriteSettings(map[string]any{"UsrName": "wxid_me", "NickName": "Me"})
	snap.AddFriend(testbackup.Friend{UsrName: "alice", ConRemark: "Al", ConStrRes2: "<a>al</a>"})
	alice, stranger := identity.Hash("alice"), identity.Hash("stranger")
	snap.AddChat(alice,
		model.Record{LocalID: 1, CreateTime: 200, Message: "second", Type: model.TypeText, Des: 1},
		model.Record{LocalID: 2, CreateTime: 100, Message: "first", Type: model.TypeText, Des: 0},
	)
	snap.AddChat(stranger)

	r, err := reader.Open(snap.Locator(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = r.Close() }()

	out := filepath.Join(t.TempDir(), "out")
	m, err := New(r, out, zap.NewNop()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if m.RunID == "" {
		t.Error("RunID is empty")
	}
	if m.User.UsrName != "wxid_me" || m.Contacts != 1 || len(m.Sessions) != 2 {
		t.Errorf("manifest = %+v", m)
	}
	if len(m.Unresolved) != 1 || m.Unresolved[0] != stranger {
		t.Errorf("Unresolved = %v, want [%s]", m.Unresolved, stranger)
	}

	var onDisk Manifest
	readJSON(t, filepath.Join(out, ManifestName), &onDisk)
	if onDisk.RunID != m.RunID {
		t.Errorf("manifest on disk run id = %q, want %q", onDisk.RunID, m.RunID)
	}

	var conv Conversation
	readJSON(t, filepath.Join(out, alice+".json"), &conv)
	if conv.Contact == nil || conv.Contact.UsrName != "alice" {
		t.Fatalf("contact = %+v, want alice", conv.Contact)
	}
	if len(conv.Messages) != 2 || conv.Messages[0].Content != "first" || !conv.Messages[0].Sent {
		t.Errorf("messages not sorted chronologically: %+v", conv.Messages)
	}
	if conv.Messages[1].Kind != "text" || conv.Messages[1].Sent {
		t.Errorf("second message = %+v", conv.Messages[1])
	}

	var empty Conversation
	readJSON(t, filepath.Join(out, stranger+".json"), &empty)
	if empty.Contact != nil || len(empty.Messages) != 0 {
		t.Errorf("unresolved conversation = %+v", empty)
	}

	if _, err := os.Stat(filepath.Join(out, lock.FileName)); !os.IsNotExist(err) {
		t.Error("lock file should be released after the run")
	}
}

type fakeSource struct {
	user     model.Person
	userErr  error
	sessions []string
	records  map[string][]model.Record
	calls    int
	onRecord func()
}

func (f *fakeSource) User() (model.Person, error)       { return f.user, f.userErr }
func (f *fakeSource) Contacts() ([]model.Person, error) { return nil, nil }
func (f *fakeSource) Sessions() ([]string, error)       { return f.sessions, nil }

func (f *fakeSource) Records(hash string) ([]model.Record, error) {
	f.calls++
	if f.onRecord != nil {
		f.onRecord()
	}
	recs, ok := f.records[hash]
	if !ok {
		return nil, &reader.NotFoundError{Kind: "conversation", Name: hash}
	}
	return recs, nil
}

func TestRunUserErrorIsFatal(t *testing.T) {
	src := &fakeSource{userErr: &reader.NotFoundError{Kind: "archive", Name: "mmsetting.archive"}}

	_, err := New(src, t.TempDir(), nil).Run(context.Background())
	if !errors.Is(err, reader.ErrNotFound) {
		t.Fatalf("Run() error = %v, want ErrNotFound", err)
	}
}

func TestRunMissingConversationFails(t *testing.T) {
	src := &fakeSource{sessions: []string{"a"}, records: map[string][]model.Record{}}

	_, err := New(src, t.TempDir(), nil).Run(context.Background())
	if !errors.Is(err, reader.ErrNotFound) {
		t.Fatalf("Run() error = %v, want ErrNotFound", err)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &fakeSource{
		sessions: []string{"a", "b", "c"},
		records:  map[string][]model.Record{"a": nil, "b": nil, "c": nil},
		onRecord: cancel,
	}
	out := t.TempDir()

	_, err := New(src, out, nil).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if src.calls != 1 {
		t.Errorf("Records called %d times, want 1", src.calls)
	}
	if _, err := os.Stat(filepath.Join(out, ManifestName)); !os.IsNotExist(err) {
		t.Error("manifest must not be written for a cancelled run")
	}
}

func TestRunLockedDirectory(t *testing.T) {
	out := t.TempDir()
	lk, err := lock.Acquire(out)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = lk.Release() }()

	_, err = New(&fakeSource{}, out, nil).Run(context.Background())
	var held *lock.HeldError
	if !errors.As(err, &held) {
		t.Fatalf("Run() error = %v, want HeldError", err)
	}
}

func TestRunPublishesProgress(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("export.", 16)
	src := &fakeSource{
		sessions: []string{"a", "b"},
		records:  map[string][]model.Record{"a": nil, "b": nil},
	}

	m, err := New(src, t.TempDir(), nil).WithEvents(b).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	unsub()

	var kinds []string
	var last Progress
	for evt := range ch {
		kinds = append(kinds, evt.Kind)
		if p, ok := evt.Payload.(Progress); ok {
			last = p
		}
		if evt.Kind == bus.ExportFinished && evt.Payload != m {
			t.Errorf("finished payload = %v, want the manifest", evt.Payload)
		}
	}
	want := []string{bus.ExportStarted, bus.ExportSession, bus.ExportSession, bus.ExportFinished}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("kinds[%d] = %q, want %q", i, kinds[i], want[i])
		}
	}
	if last.Done != 2 || last.Total != 2 || last.Session.Hash != "b" {
		t.Errorf("last progress = %+v", last)
	}
}
