package assembler

import (
	"encoding/json"

	"github.com/google/uuid"

	"order-core/internal/models"
)

func decodeUUIDList(raw models.JSONB) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func encodeUUIDList(ids []uuid.UUID) (models.JSONB, error) {
	if ids == nil {
		ids = []uuid.UUID{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	return models.JSONB(data), nil
}
