package commands

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/dkotenko/calobot/internal/config"
	"github.com/dkotenko/calobot/internal/database"
	"github.com/dkotenko/calobot/internal/logger"
)

// openStore opens the same storage backend the server would select from the
// environment. Opening runs schema creation and migrations, so every
// command leaves the schema current as a side effect; the console logger
// makes those steps visible to the operator.
func openStore() (database.Store, *zap.Logger, error) {
	zapLogger, err := logger.NewDevelopment(false)
	if err != nil {
		zapLogger = zap.NewNop()
	}

	cfg := config.LoadStorage()

	store, err := database.Open(cfg, zapLogger)
	if err != nil {
		_ = logger.Sync(zapLogger)
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	return store, zapLogger, nil
}

// closeStore releases the store and flushes the logger. Deferred by every
// command.
func closeStore(store database.Store, zapLogger *zap.Logger) {
	_ = store.Close()
	_ = logger.Sync(zapLogger)
}
