package foreignclients

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"order-core/internal/apperr"
)

// DiscountClient resolves applicable discounts for the items in an order
// under construction (spec §4.B.3).
type DiscountClient interface {
	GetDiscounts(userID uuid.UUID, orderAmount uint64, items []DiscountQueryItem, callerIdentity string) (map[uuid.UUID][]Discount, error)
}

type discountClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewDiscountClient creates a new discount service client.
func NewDiscountClient(baseURL string) DiscountClient {
	return &discountClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *discountClient) GetDiscounts(userID uuid.UUID, orderAmount uint64, items []DiscountQueryItem, callerIdentity string) (map[uuid.UUID][]Discount, error) {
	reqBody := map[string]interface{}{
		"userId":      userID,
		"orderAmount": orderAmount,
		"items":       items,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternalServiceError, "discount", "", err)
	}

	url := fmt.Sprintf("%s/api/v1/discounts/applicable", c.baseURL)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternalServiceError, "discount", "", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Caller-Identity", callerIdentity)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternalServiceError, "discount", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, apperr.New(apperr.KindExternalServiceError, "discount", "",
			fmt.Sprintf("discount service returned status %d: %s", resp.StatusCode, string(respBody)))
	}

	var result map[uuid.UUID][]Discount
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperr.Wrap(apperr.KindExternalServiceError, "discount", "", err)
	}
	return result, nil
}
