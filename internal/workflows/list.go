package workflows

import (
	"context"

	"github.com/tapvault/tapvault/internal/configs"
	"github.com/tapvault/tapvault/internal/store"
)

// SecretInfo is one listing row: metadata only, never ciphertext.
type SecretInfo struct {
	ID            string `json:"id"`
	Label         string `json:"label"`
	CreatedAt     int64  `json:"createdAt"`
	CredentialID  string `json:"credentialId"`
	HardwareBound bool   `json:"hardwareBound"`
}

// ListResult contains the outcome of a list operation.
type ListResult struct {
	// Secrets holds one entry per stored record, in store order.
	Secrets []SecretInfo

	// StorePath is the store file the listing came from.
	StorePath string
}

// List returns metadata for every stored secret. It never reads ciphertext
// and never triggers a verification ceremony.
//
// Returns ErrNotInitialized if no configuration exists.
// Returns ErrStoreCorrupt if the store cannot be parsed.
func List(ctx context.Context) (*ListResult, error) {
	if _, err := configs.LoadConfig(); err != nil {
		return nil, err
	}

	st := store.New(configs.StorePath())
	records, err := st.Load()
	if err != nil {
		return nil, err
	}

	secrets := make([]SecretInfo, 0, len(records))
	for _, record := range records {
		secrets = append(secrets, SecretInfo{
			ID:            record.ID,
			Label:         record.Label,
			CreatedAt:     record.CreatedAt,
			CredentialID:  record.CredentialID,
			HardwareBound: record.HardwareBound(),
		})
	}

	return &ListResult{Secrets: secrets, StorePath: st.Path()}, nil
}
