// Package reader projects a device snapshot of the messaging app (the legacy
// store DB/MM.sqlite, the optional newer contact store
// DB/WCDB_Contact.sqlite and the settings archive mmsetting.archive) into
// model.Person and model.Record values.
//
// A Reader owns both database connections until Close. Its methods are
// synchronous and return fully materialized results; use one Reader per
// goroutine.
package reader

import (
	"errors"
	"fmt"
	"os"

	"github.com/matheus3301/wxread/internal/locate"
	"github.com/matheus3301/wxread/internal/store"
	"go.uber.org/zap"
)

// Reader reads one account snapshot.
type Reader struct {
	loc    locate.Locator
	mm     *store.DB
	wcdb   *store.DB // nil when the newer contact store is absent
	logger *zap.Logger
}

// Open connects to the stores located by loc. The legacy store is required;
// the newer contact store is used when present.
func Open(loc locate.Locator, logger *zap.Logger) (*Reader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	mmPath := loc.Locate(locate.LegacyStore)
	mm, err := store.OpenReadOnly(mmPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &NotFoundError{Kind: "store", Name: mmPath}
	}
	if err != nil {
		return nil, fmt.Errorf("legacy store: %w", err)
	}
	logger.Info("legacy store opened", zap.String("path", mmPath))

	r := &Reader{loc: loc, mm: mm, logger: logger}

	wcdbPath := loc.Locate(locate.ContactStore)
	if _, err := os.Stat(wcdbPath); errors.Is(err, os.ErrNotExist) {
		logger.Info("contact store absent, skipping", zap.String("path", wcdbPath))
		return r, nil
	} else if err != nil {
		_ = mm.Close()
		return nil, fmt.Errorf("contact store: %w", err)
	}
	r.wcdb, err = store.OpenReadOnly(wcdbPath)
	if err != nil {
		_ = mm.Close()
		return nil, fmt.Errorf("contact store: %w", err)
	}
	logger.Info("contact store opened", zap.String("path", wcdbPath))
	return r, nil
}

// HasContactStore reports whether the newer contact store was found.
func (r *Reader) HasContactStore() bool {
	return r.wcdb != nil
}

// Close releases both connections. Safe to call on nil receiver and more
// than once.
func (r *Reader) Close() error {
	if r == nil {
		return nil
	}
	// Handles are kept so that later queries fail with "database is closed".
	var errs []error
	if r.mm != nil {
		errs = append(errs, r.mm.Close())
	}
	if r.wcdb != nil {
		errs = append(errs, r.wcdb.Close())
	}
	return errors.Join(errs...)
}
