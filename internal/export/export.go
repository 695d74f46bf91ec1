// Package export writes every conversation of a snapshot to JSON files: one
// <hash>.json per conversation plus a manifest.json describing the run.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/wxread/internal/bus"
	"github.com/matheus3301/wxread/internal/identity"
	"github.com/matheus3301/wxread/internal/lock"
	"github.com/matheus3301/wxread/internal/model"
	"go.uber.org/zap"
)

// ManifestName is the manifest file written at the end of a run.
const ManifestName = "manifest.json"

// Source is what an export reads; *reader.Reader implements it.
type Source interface {
	User() (model.Person, error)
	Contacts() ([]model.Person, error)
	Sessions() ([]string, error)
	Records(hash string) ([]model.Record, error)
}

// Manifest summarizes one export run.
type Manifest struct {
	RunID      string        `json:"run_id"`
	ExportedAt time.Time     `json:"exported_at"`
	User       model.Person  `json:"user"`
	Contacts   int           `json:"contacts"`
	Sessions   []SessionInfo `json:"sessions"`
	Unresolved []string      `json:"unresolved,omitempty"`
}

// SessionInfo describes one exported conversation.
type SessionInfo struct {
	Hash        string `json:"hash"`
	UsrName     string `json:"usr_name,omitempty"`
	DisplayName string `json:"display_name"`
	Records     int    `json:"records"`
	File        string `json:"file"`
}

// Conversation is the content of a <hash>.json file.
type Conversation struct {
	Hash     string        `json:"hash"`
	Contact  *model.Person `json:"contact,omitempty"`
	Messages []Message     `json:"messages"`
}

// Message is a model.Record with its derived fields spelled out.
type Message struct {
	LocalID   int64     `json:"local_id"`
	ServerID  int64     `json:"server_id,omitempty"`
	Time      time.Time `json:"time"`
	Kind      string    `json:"kind"`
	Type      int       `json:"type"`
	Sent      bool      `json:"sent"`
	Status    int       `json:"status"`
	ImgStatus int       `json:"img_status"`
	Content   string    `json:"content,omitempty"`
}

// Progress is the payload of bus.ExportSession events.
type Progress struct {
	Done    int
	Total   int
	Session SessionInfo
}

// Exporter writes a snapshot into an output directory.
type Exporter struct {
	src    Source
	outDir string
	events *bus.Bus
	logger *zap.Logger
}

// New creates an exporter.
func New(src Source, outDir string, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{src: src, outDir: outDir, logger: logger}
}

// WithEvents makes the exporter publish its progress on b.
func (e *Exporter) WithEvents(b *bus.Bus) *Exporter {
	e.events = b
	return e
}

// Run exports every conversation. The output directory is locked for the
// duration of the run; cancellation is checked between conversations.
func (e *Exporter) Run(ctx context.Context) (*Manifest, error) {
	lk, err := lock.Acquire(e.outDir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lk.Release(); err != nil {
			e.logger.Warn("error releasing export lock", zap.Error(err))
		}
	}()

	user, err := e.src.User()
	if err != nil {
		return nil, fmt.Errorf("read user: %w", err)
	}
	contacts, err := e.src.Contacts()
	if err != nil {
		return nil, fmt.Errorf("read contacts: %w", err)
	}
	ix := identity.Build(contacts)

	hashes, err := e.src.Sessions()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	m := &Manifest{
		RunID:      uuid.NewString(),
		ExportedAt: time.Now().UTC(),
		User:       user,
		Contacts:   len(contacts),
		Sessions:   make([]SessionInfo, 0, len(hashes)),
	}
	e.logger.Info("export started",
		zap.String("run_id", m.RunID), zap.String("out", e.outDir),
		zap.Int("contacts", len(contacts)), zap.Int("sessions", len(hashes)))
	e.events.Publish(bus.ExportStarted, len(hashes))

	for i, hash := range hashes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := e.exportSession(ix, hash)
		if err != nil {
			return nil, err
		}
		if info.UsrName == "" {
			m.Unresolved = append(m.Unresolved, hash)
		}
		m.Sessions = append(m.Sessions, info)
		e.events.Publish(bus.ExportSession, Progress{Done: i + 1, Total: len(hashes), Session: info})
	}

	if err := writeJSON(filepath.Join(e.outDir, ManifestName), m); err != nil {
		return nil, err
	}
	e.logger.Info("export finished",
		zap.String("run_id", m.RunID), zap.Int("sessions", len(m.Sessions)), zap.Int("unresolved", len(m.Unresolved)))
	e.events.Publish(bus.ExportFinished, m)
	return m, nil
}

func (e *Exporter) exportSession(ix identity.Index, hash string) (SessionInfo, error) {
	records, err := e.src.Records(hash)
	if err != nil {
		return SessionInfo{}, fmt.Errorf("read session %s: %w", hash, err)
	}
	model.SortChronological(records)

	conv := Conversation{Hash: hash, Messages: make([]Message, 0, len(records))}
	info := SessionInfo{Hash: hash, DisplayName: hash, Records: len(records), File: hash + ".json"}
	if p, ok := ix.Resolve(hash); ok {
		conv.Contact = &p
		info.UsrName = p.UsrName
		info.DisplayName = p.DisplayName()
	} else {
		e.logger.Debug("session without contact", zap.String("hash", hash))
	}
	for _, r := range records {
		conv.Messages = append(conv.Messages, toMessage(r))
	}

	if err := writeJSON(filepath.Join(e.outDir, info.File), conv); err != nil {
		return SessionInfo{}, err
	}
	e.logger.Debug("session exported", zap.String("hash", hash), zap.Int("records", len(records)))
	return info, nil
}

func toMessage(r model.Record) Message {
	return Message{
		LocalID:   r.LocalID,
		ServerID:  r.ServerID,
		Time:      r.Time().UTC(),
		Kind:      r.Kind(),
		Type:      r.Type,
		Sent:      r.Sent(),
		Status:    r.Status,
		ImgStatus: r.ImgStatus,
		Content:   r.Message,
	}
}

// writeJSON writes v to path through a temporary file and rename.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
