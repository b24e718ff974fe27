package workflows

import (
	"context"
	"fmt"

	"github.com/tapvault/tapvault/internal/audit"
	"github.com/tapvault/tapvault/internal/configs"
	terrors "github.com/tapvault/tapvault/internal/errors"
	"github.com/tapvault/tapvault/internal/store"
)

// DeleteOptions configures the delete workflow.
type DeleteOptions struct {
	// ID is the secret to remove.
	ID string
}

// DeleteResult contains the outcome of a delete operation.
type DeleteResult struct {
	// ID is the removed secret's identifier.
	ID string

	// Label was the record's human-readable name.
	Label string

	// StorePath is where the store was rewritten.
	StorePath string
}

// Delete removes a stored secret. The cmd layer confirms with the user
// first. The underlying authenticator enrollment is not revoked; the
// device has no notion of this installation's records.
//
// Returns ErrNotInitialized if no configuration exists.
// Returns ErrSecretNotFound if no record has the id.
func Delete(ctx context.Context, opts DeleteOptions) (*DeleteResult, error) {
	if _, err := configs.LoadConfig(); err != nil {
		return nil, err
	}

	st := store.New(configs.StorePath())
	records, err := st.Load()
	if err != nil {
		return nil, err
	}

	record, found := store.FindByID(records, opts.ID)
	if !found {
		return nil, fmt.Errorf("%w: %s", terrors.ErrSecretNotFound, opts.ID)
	}
	label := record.Label

	records, _ = store.RemoveByID(records, opts.ID)
	if err := st.Save(records); err != nil {
		return nil, err
	}

	audit.Log(audit.Entry{
		Operation: "delete",
		Outcome:   audit.OutcomeSuccess,
		SecretID:  opts.ID,
	})

	return &DeleteResult{ID: opts.ID, Label: label, StorePath: st.Path()}, nil
}
