package reader

import (
	"fmt"
	"strings"

	"github.com/matheus3301/wxread/internal/model"
	"go.uber.org/zap"
)

// Records returns the rows of the conversation table for hash in storage
// order. An unknown hash yields a *NotFoundError; a known conversation
// without messages yields an empty slice.
func (r *Reader) Records(hash string) ([]model.Record, error) {
	table := ChatTable(hash)
	ok, err := r.mm.HasTable(table)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", table, err)
	}
	if !ok {
		return nil, &NotFoundError{Kind: "conversation", Name: hash}
	}

	rows, err := r.mm.Query(`SELECT MesLocalID, MesSvrID, CreateTime, Message, Status, ImgStatus, Type, Des FROM ` + quoteIdent(table))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]model.Record, 0)
	for rows.Next() {
		var cols [8]any
		if err := rows.Scan(&cols[0], &cols[1], &cols[2], &cols[3], &cols[4], &cols[5], &cols[6], &cols[7]); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		records = append(records, r.record(hash, cols))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	return records, nil
}

// Conversation returns the records of the conversation designated by key: a
// canonical name, an alias or a conversation hash.
func (r *Reader) Conversation(key string) (string, []model.Record, error) {
	ix, err := r.Index()
	if err != nil {
		return "", nil, err
	}
	hash := ix.SessionHash(key)
	records, err := r.Records(hash)
	if err != nil {
		return hash, nil, err
	}
	return hash, records, nil
}

func (r *Reader) record(hash string, cols [8]any) model.Record {
	ints := make([]int64, len(cols))
	for i, v := range cols {
		if i == 3 {
			continue
		}
		var ok bool
		if ints[i], ok = intValue(v); !ok {
			r.logger.Debug("record field degraded",
				zap.String("session", hash), zap.Int("column", i), zap.Any("value", v))
		}
	}
	msg, ok := textValue(cols[3])
	if !ok {
		r.logger.Debug("record message degraded", zap.String("session", hash), zap.Any("value", cols[3]))
	}
	return model.Record{
		LocalID:    ints[0],
		ServerID:   ints[1],
		CreateTime: ints[2],
		Message:    msg,
		Status:     int(ints[4]),
		ImgStatus:  int(ints[5]),
		Type:       int(ints[6]),
		Des:        int(ints[7]),
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
