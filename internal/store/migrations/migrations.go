// Package migrations embeds the schemas of the two device stores.
package migrations

import "embed"

// MM holds the legacy store schema (DB/MM.sqlite). Chat_<md5> tables are
// created per conversation and are not part of it.
//
//go:embed mm/*.sql
var MM embed.FS

// Contact holds the newer contact store schema (DB/WCDB_Contact.sqlite).
//
//go:embed contact/*.sql
var Contact embed.FS
