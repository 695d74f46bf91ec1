package reader

import (
	"errors"
	"fmt"
	"os"

	"github.com/matheus3301/wxread/internal/archive"
	"github.com/matheus3301/wxread/internal/locate"
	"github.com/matheus3301/wxread/internal/model"
)

// Keys of the settings archive.
const (
	settingUsrName    = "UsrName"
	settingAlias      = "AliasName"
	settingNickName   = "NickName"
	settingDict       = "new_dicsetting"
	settingPortrait   = "headimgurl"
	settingPortraitHD = "headhdimgurl"
)

// User returns the local user from the settings archive. A missing archive
// yields a *NotFoundError and an undecodable one a *MalformedError.
func (r *Reader) User() (model.Person, error) {
	path := r.loc.Locate(locate.Settings)
	settings, err := archive.ParseFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return model.Person{}, &NotFoundError{Kind: "archive", Name: path}
	case errors.Is(err, archive.ErrMalformed):
		return model.Person{}, &MalformedError{Resource: locate.Settings, Err: err}
	case err != nil:
		return model.Person{}, fmt.Errorf("read settings: %w", err)
	}

	var me model.Person
	me.UsrName, _ = archive.String(settings, settingUsrName)
	me.Alias, _ = archive.String(settings, settingAlias)
	me.NickName, _ = archive.String(settings, settingNickName)
	if setting, ok := archive.Map(settings, settingDict); ok {
		me.Portrait, _ = archive.String(setting, settingPortrait)
		me.PortraitHD, _ = archive.String(setting, settingPortraitHD)
	}
	return me, nil
}
