package reader

import (
	"fmt"

	"github.com/matheus3301/wxread/internal/blob"
	"github.com/matheus3301/wxread/internal/identity"
	"github.com/matheus3301/wxread/internal/model"
	"go.uber.org/zap"
)

// Section tags of the newer contact store's blob columns.
const (
	// dbContactRemark
	tagNickName blob.Tag = 0x0a
	tagAlias    blob.Tag = 0x12
	tagRemark   blob.Tag = 0x1a
	// dbContactChatRoom
	tagChatRoom blob.Tag = 0x32
	// dbContactHeadImage
	tagPortrait   blob.Tag = 0x12
	tagPortraitHD blob.Tag = 0x1a
)

// LegacyContact is one Friend ⨝ Friend_Ext row of the legacy store.
type LegacyContact struct {
	UsrName        string
	NickName       string
	ConRemark      string
	ConChatRoomMem string
	ConStrRes2     string
}

// Person projects the row into the canonical model.
func (c LegacyContact) Person() model.Person {
	res := ParseStrRes2(c.ConStrRes2)
	return model.Person{
		UsrName:        c.UsrName,
		NickName:       c.NickName,
		ConRemark:      c.ConRemark,
		ConChatRoomMem: c.ConChatRoomMem,
		Alias:          res.Alias,
		Portrait:       res.Portrait,
		PortraitHD:     res.PortraitHD,
	}
}

// ModernContact is one Friend row of the newer contact store with its blob
// columns already split into sections. Nil sections mean the column was
// NULL or undecodable.
type ModernContact struct {
	UserName  string
	Remark    blob.Sections
	ChatRoom  blob.Sections
	HeadImage blob.Sections
}

// Person projects the row into the canonical model.
func (c ModernContact) Person() model.Person {
	p := model.Person{UsrName: c.UserName}
	p.NickName, _ = blob.String(c.Remark, tagNickName)
	p.Alias, _ = blob.String(c.Remark, tagAlias)
	p.ConRemark, _ = blob.String(c.Remark, tagRemark)
	p.DbContactChatRoom, _ = blob.String(c.ChatRoom, tagChatRoom)
	p.Portrait, _ = blob.String(c.HeadImage, tagPortrait)
	p.PortraitHD, _ = blob.String(c.HeadImage, tagPortraitHD)
	return p
}

// LegacyContacts reads the contacts of the legacy store.
func (r *Reader) LegacyContacts() ([]model.Person, error) {
	rows, err := r.mm.Query(`
		SELECT Friend.UsrName, NickName, ConRemark, ConChatRoomMem, ConStrRes2
		FROM Friend
		JOIN Friend_Ext ON Friend.UsrName = Friend_Ext.UsrName`)
	if err != nil {
		return nil, fmt.Errorf("query legacy contacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var contacts []model.Person
	for rows.Next() {
		var cols [5]any
		if err := rows.Scan(&cols[0], &cols[1], &cols[2], &cols[3], &cols[4]); err != nil {
			return nil, fmt.Errorf("scan legacy contact: %w", err)
		}
		var c LegacyContact
		fields := []*string{&c.UsrName, &c.NickName, &c.ConRemark, &c.ConChatRoomMem, &c.ConStrRes2}
		for i, dst := range fields {
			var ok bool
			if *dst, ok = textValue(cols[i]); !ok {
				r.logger.Debug("legacy contact field degraded", zap.Int("column", i), zap.Any("value", cols[i]))
			}
		}
		if c.UsrName == "" {
			r.logger.Debug("legacy contact without name skipped")
			continue
		}
		contacts = append(contacts, c.Person())
	}
	return contacts, rows.Err()
}

// ModernContacts reads the newer contact store. It returns no contacts and
// no error when that store is absent.
func (r *Reader) ModernContacts() ([]model.Person, error) {
	if r.wcdb == nil {
		return nil, nil
	}
	rows, err := r.wcdb.Query(`SELECT userName, dbContactRemark, dbContactChatRoom, dbContactHeadImage FROM Friend`)
	if err != nil {
		return nil, fmt.Errorf("query modern contacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var contacts []model.Person
	for rows.Next() {
		var cols [4]any
		if err := rows.Scan(&cols[0], &cols[1], &cols[2], &cols[3]); err != nil {
			return nil, fmt.Errorf("scan modern contact: %w", err)
		}
		name, _ := textValue(cols[0])
		if name == "" {
			r.logger.Debug("modern contact without name skipped")
			continue
		}
		c := ModernContact{
			UserName:  name,
			Remark:    r.sections(name, "dbContactRemark", cols[1]),
			ChatRoom:  r.sections(name, "dbContactChatRoom", cols[2]),
			HeadImage: r.sections(name, "dbContactHeadImage", cols[3]),
		}
		contacts = append(contacts, c.Person())
	}
	return contacts, rows.Err()
}

func (r *Reader) sections(name, column string, v any) blob.Sections {
	b, ok := blobValue(v)
	if !ok {
		r.logger.Debug("blob column has unexpected type",
			zap.String("user", name), zap.String("column", column), zap.Any("value", v))
		return nil
	}
	s, err := blob.Decode(b)
	if err != nil {
		r.logger.Debug("blob column undecodable",
			zap.String("user", name), zap.String("column", column), zap.Error(err))
		return nil
	}
	return s
}

// Contacts returns the legacy contacts followed by the newer store's
// contacts. The same person may appear once per store.
func (r *Reader) Contacts() ([]model.Person, error) {
	contacts, err := r.LegacyContacts()
	if err != nil {
		return nil, err
	}
	modern, err := r.ModernContacts()
	if err != nil {
		return nil, err
	}
	return append(contacts, modern...), nil
}

// Index builds an identity index over Contacts.
func (r *Reader) Index() (identity.Index, error) {
	contacts, err := r.Contacts()
	if err != nil {
		return nil, err
	}
	return identity.Build(contacts), nil
}
