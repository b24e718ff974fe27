package workflows

import (
	"context"

	"github.com/tapvault/tapvault/internal/audit"
	"github.com/tapvault/tapvault/internal/configs"
	"github.com/tapvault/tapvault/internal/store"
)

// ClearResult contains the outcome of a clear operation.
type ClearResult struct {
	// RemovedCount is how many records were removed.
	RemovedCount int

	// StorePath is where the emptied store was written.
	StorePath string
}

// Clear empties the secret store. Irreversible; the cmd layer confirms
// with the user first. Authenticator enrollments are not revoked.
//
// Returns ErrNotInitialized if no configuration exists.
// Returns ErrStoreCorrupt if the store cannot be parsed.
func Clear(ctx context.Context) (*ClearResult, error) {
	if _, err := configs.LoadConfig(); err != nil {
		return nil, err
	}

	st := store.New(configs.StorePath())
	records, err := st.Load()
	if err != nil {
		return nil, err
	}

	removed := len(records)
	if err := st.Save([]store.Record{}); err != nil {
		return nil, err
	}

	audit.Log(audit.Entry{
		Operation:    "clear",
		Outcome:      audit.OutcomeSuccess,
		RemovedCount: removed,
	})

	return &ClearResult{RemovedCount: removed, StorePath: st.Path()}, nil
}
