package store

import (
	"encoding/json"
	"fmt"

	"github.com/pot-code/lessonrelay/internal/domain"
)

func encodeSnapshot(snap *domain.Snapshot) ([]byte, error) {
	return json.MarshalIndent(snap, "", "  ")
}

func decodeSnapshot(data []byte) (*domain.Snapshot, error) {
	snap := new(domain.Snapshot)
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("malformed snapshot document: %w", err)
	}
	snap.Normalize()
	return snap, nil
}
