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

// InventoryClient queries unreserved stock per product variant (spec §4.B.2).
type InventoryClient interface {
	CheckStock(items []InventoryQueryItem) ([]InventoryResult, error)
}

type inventoryClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewInventoryClient creates a new inventory service client.
func NewInventoryClient(baseURL string) InventoryClient {
	return &inventoryClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *inventoryClient) CheckStock(items []InventoryQueryItem) ([]InventoryResult, error) {
	reqBody := map[string]interface{}{"items": items}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternalServiceError, "inventory", "", err)
	}

	url := fmt.Sprintf("%s/api/v1/inventory/check", c.baseURL)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternalServiceError, "inventory", "", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternalServiceError, "inventory", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, apperr.New(apperr.KindExternalServiceError, "inventory", "",
			fmt.Sprintf("inventory service returned status %d: %s", resp.StatusCode, string(respBody)))
	}

	var results []InventoryResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, apperr.Wrap(apperr.KindExternalServiceError, "inventory", "", err)
	}
	return results, nil
}
