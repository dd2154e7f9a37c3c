package app

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/docify-community/internal/config"
	"github.com/vovakirdan/docify-community/internal/store"
	"github.com/vovakirdan/docify-community/internal/store/badgerlog"
	"github.com/vovakirdan/docify-community/internal/store/sqlite"
)

// Stores bundles the user directory and the message log selected by config.
type Stores struct {
	Users    store.UserDirectory
	Messages store.MessageLog

	sqlite *sqlite.SQLiteStore
	badger *badgerlog.Log
}

// OpenStores opens the SQLite user directory and the configured message log.
func OpenStores(cfg *config.Config, logger *zerolog.Logger) (*Stores, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	stores := &Stores{Users: st, Messages: st, sqlite: st}

	if cfg.StoreDriver == config.StoreDriverBadger {
		bl, err := badgerlog.Open(cfg.BadgerPath)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("init message log: %w", err)
		}
		stores.badger = bl
		stores.Messages = bl
		logger.Info().Str("badger_path", cfg.BadgerPath).Msg("badger message log initialized")
	}

	return stores, nil
}

// Close releases every opened store.
func (s *Stores) Close() error {
	var errs []error
	if s.badger != nil {
		errs = append(errs, s.badger.Close())
	}
	if s.sqlite != nil {
		errs = append(errs, s.sqlite.Close())
	}
	return errors.Join(errs...)
}
