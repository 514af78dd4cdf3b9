package handlers

import (
	"context"

	"go.uber.org/zap"

	"io.winapps.meicho/internal/entries"
)

// StoreProvider hands out the caller's entry store. *entries.Manager satisfies it.
type StoreProvider interface {
	For(ctx context.Context, ownerID string) (*entries.Store, error)
}

type EntryHandler struct {
	stores StoreProvider
	logger *zap.SugaredLogger
}

// NewEntryHandler creates a new entry handler
func NewEntryHandler(stores StoreProvider, logger *zap.SugaredLogger) *EntryHandler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &EntryHandler{stores: stores, logger: logger}
}
