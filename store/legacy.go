package store

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"leadflow/models"
)

// ReadLegacySnapshot parses the flat-file snapshot left behind by the
// previous system. Records may predate server-assigned ids, so missing
// ids are filled in during the read.
func ReadLegacySnapshot(path string) (*models.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy file: %w", err)
	}

	snap := &models.Snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("failed to parse legacy file: %w", err)
	}

	for i := range snap.Consultations {
		if snap.Consultations[i].ID == "" {
			snap.Consultations[i].ID = uuid.NewString()
		}
	}
	for i := range snap.PhoneLeads {
		if snap.PhoneLeads[i].ID == "" {
			snap.PhoneLeads[i].ID = uuid.NewString()
		}
	}

	return snap, nil
}
