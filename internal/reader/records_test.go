package reader

import (
	"errors"
	"reflect"
	"testing"

	"github.com/matheus3301/wxread/internal/identity"
	"github.com/matheus3301/wxread/internal/model"
	"github.com/matheus3301/wxread/internal/testbackup"
)

func TestRecordsUnknownHash(t *testing.T) {
	snap := testbackup.New(t)
	snap.AddChat(identity.Hash("alice"))

	r := openReader(t, snap)
	records, err := r.Records(identity.Hash("nobody"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Records() error = %v, want ErrNotFound", err)
	}
	if records != nil {
		t.Errorf("Records() = %v, want nil on failure", records)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Kind != "conversation" {
		t.Errorf("expected conversation NotFoundError, got %T", err)
	}
}

func TestRecordsInjectionIsNotFound(t *testing.T) {
	snap := testbackup.New(t)
	r := openReader(t, snap)

	_, err := r.Records(`x" ; DROP TABLE Friend; --`)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Records() error = %v, want ErrNotFound", err)
	}
}

func TestRecordsEmptyConversation(t *testing.T) {
	snap := testbackup.New(t)
	hash := identity.Hash("alice")
	snap.AddChat(hash)

	r := openReader(t, snap)
	records, err := r.Records(hash)
	if err != nil {
		t.Fatalf("Records() error = %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("Records() = %#v, want empty non-nil slice", records)
	}
}

func TestRecordsColumnsAndStorageOrder(t *testing.T) {
	snap := testbackup.New(t)
	hash := identity.Hash("alice")
	snap.AddChat(hash,
		model.Record{LocalID: 1, ServerID: 9007199254740993, CreateTime: 200, Message: "hi", Status: 2, Type: model.TypeText, Des: 0},
		model.Record{LocalID: 2, CreateTime: 100, Message: "<msg><img/></msg>", Status: 4, ImgStatus: 2, Type: model.TypeImage, Des: 1},
		model.Record{LocalID: 3, CreateTime: 100, Type: model.TypeSystem, Des: 1},
	)

	r := openReader(t, snap)
	got, err := r.Records(hash)
	if err != nil {
		t.Fatal(err)
	}
	want := []model.Record{
		{LocalID: 1, ServerID: 9007199254740993, CreateTime: 200, Message: "hi", Status: 2, Type: model.TypeText, Des: 0},
		{LocalID: 2, CreateTime: 100, Message: "<msg><img/></msg>", Status: 4, ImgStatus: 2, Type: model.TypeImage, Des: 1},
		{LocalID: 3, CreateTime: 100, Type: model.TypeSystem, Des: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Records() = %+v, want %+v", got, want)
	}
}

func TestRecordsNullAndMalformedColumns(t *testing.T) {
	snap := testbackup.New(t)
	hash := identity.Hash("bob")
	snap.AddChat(hash)
	snap.ExecLegacy(`INSERT INTO "Chat_`+hash+`" (MesLocalID, MesSvrID, CreateTime, Message, Status, ImgStatus, Type, Des)
		VALUES (1, NULL, 'not a time', NULL, NULL, NULL, 1, 1)`)

	r := openReader(t, snap)
	got, err := r.Records(hash)
	if err != nil {
		t.Fatal(err)
	}
	want := []model.Record{{LocalID: 1, Type: 1, Des: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Records() = %+v, want %+v", got, want)
	}
}

func TestConversationByKey(t *testing.T) {
	snap := testbackup.New(t)
	snap.AddFriend(testbackup.Friend{UsrName: "alice", ConStrRes2: "<a>al</a>"})
	hash := identity.Hash("alice")
	snap.AddChat(hash, model.Record{LocalID: 1, Message: "hi", Type: model.TypeText})

	r := openReader(t, snap)
	for _, key := range []string{"alice", "al", hash, identity.Hash("al")} {
		t.Run(key, func(t *testing.T) {
			gotHash, records, err := r.Conversation(key)
			if err != nil {
				t.Fatalf("Conversation(%q) error = %v", key, err)
			}
			if gotHash != hash || len(records) != 1 {
				t.Errorf("Conversation(%q) = %s, %+v", key, gotHash, records)
			}
		})
	}

	gotHash, _, err := r.Conversation("nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Conversation(nobody) error = %v, want ErrNotFound", err)
	}
	if gotHash != identity.Hash("nobody") {
		t.Errorf("hash = %s, want md5 of the key", gotHash)
	}
}
