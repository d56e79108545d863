package foreignclients

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"order-core/internal/apperr"
)

// ShipmentClient computes the aggregate shipment fee for an assembled set
// of items (spec §4.B.4). The fee is computed but, per the current design,
// not persisted to any order or item field (spec §9 open question).
type ShipmentClient interface {
	GetShipmentFee(items []ShipmentFeeQueryItem) (uint64, error)
}

type shipmentFeeResponse struct {
	Fee uint64 `json:"fee"`
}

type shipmentClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewShipmentClient creates a new shipment service client.
func NewShipmentClient(baseURL string) ShipmentClient {
	return &shipmentClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *shipmentClient) GetShipmentFee(items []ShipmentFeeQueryItem) (uint64, error) {
	reqBody := map[string]interface{}{"items": items}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindExternalServiceError, "shipment", "", err)
	}

	url := fmt.Sprintf("%s/api/v1/shipment/fee", c.baseURL)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return 0, apperr.Wrap(apperr.KindExternalServiceError, "shipment", "", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindExternalServiceError, "shipment", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return 0, apperr.New(apperr.KindExternalServiceError, "shipment", "",
			fmt.Sprintf("shipment service returned status %d: %s", resp.StatusCode, string(respBody)))
	}

	var feeResp shipmentFeeResponse
	if err := json.NewDecoder(resp.Body).Decode(&feeResp); err != nil {
		return 0, apperr.Wrap(apperr.KindExternalServiceError, "shipment", "", err)
	}
	return feeResp.Fee, nil
}
