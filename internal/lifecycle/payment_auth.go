package lifecycle

import (
	"encoding/json"

	"order-core/internal/models"
)

func encodePaymentAuth(auth *models.PaymentAuthorization) (models.JSONB, error) {
	data, err := json.Marshal(auth)
	if err != nil {
		return nil, err
	}
	return models.JSONB(data), nil
}
