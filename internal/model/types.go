package model

import (
	"sort"
	"strings"
	"time"
)

// Person is a contact or the local user. Empty strings mean the source
// schema did not supply the field.
type Person struct {
	UsrName           string `json:"usr_name"` // canonical name, never empty for contacts
	Alias             string `json:"alias,omitempty"`
	NickName          string `json:"nick_name,omitempty"`
	ConRemark         string `json:"remark,omitempty"` // user-assigned label
	Portrait          string `json:"portrait,omitempty"`
	PortraitHD        string `json:"portrait_hd,omitempty"`
	ConChatRoomMem    string `json:"chat_room_members,omitempty"` // legacy chat-room membership descriptor
	DbContactChatRoom string `json:"chat_room,omitempty"`         // newer chat-room membership reference
}

// DisplayName returns the most user-facing label available:
// remark -> nickname -> alias -> canonical name.
func (p Person) DisplayName() string {
	for _, s := range []string{p.ConRemark, p.NickName, p.Alias} {
		if s != "" {
			return s
		}
	}
	return p.UsrName
}

// IsChatRoom reports whether the person is a group chat.
func (p Person) IsChatRoom() bool {
	return strings.HasSuffix(p.UsrName, "@chatroom")
}

// Record is one chat message.
type Record struct {
	LocalID    int64  `json:"local_id"`  // MesLocalID
	ServerID   int64  `json:"server_id"` // MesSvrID, zero when unknown
	CreateTime int64  `json:"create_time"`
	Message    string `json:"message,omitempty"`
	Status     int    `json:"status"`
	ImgStatus  int    `json:"img_status"`
	Type       int    `json:"type"`
	Des        int    `json:"des"` // 0 = sent by the local user
}

// Message type codes.
const (
	TypeText     = 1
	TypeImage    = 3
	TypeVoice    = 34
	TypeCard     = 42
	TypeVideo    = 43
	TypeSticker  = 47
	TypeLocation = 48
	TypeApp      = 49
	TypeCall     = 50
	TypeSystem   = 10000
	TypeRevoke   = 10002
)

var kindNames = map[int]string{
	TypeText:     "text",
	TypeImage:    "image",
	TypeVoice:    "voice",
	TypeCard:     "card",
	TypeVideo:    "video",
	TypeSticker:  "sticker",
	TypeLocation: "location",
	TypeApp:      "app",
	TypeCall:     "call",
	TypeSystem:   "system",
	TypeRevoke:   "revoke",
}

// Kind returns a short name for the message type, or "unknown".
func (r Record) Kind() string {
	if k, ok := kindNames[r.Type]; ok {
		return k
	}
	return "unknown"
}

// Time returns CreateTime as a time.Time.
func (r Record) Time() time.Time {
	return time.Unix(r.CreateTime, 0)
}

// Sent reports whether the local user sent the message.
func (r Record) Sent() bool {
	return r.Des == 0
}

// SortChronological sorts records by creation time, breaking ties by local id.
func SortChronological(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreateTime != records[j].CreateTime {
			return records[i].CreateTime < records[j].CreateTime
		}
		return records[i].LocalID < records[j].LocalID
	})
}
