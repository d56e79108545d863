package foreignclients

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"order-core/internal/apperr"
)

// CartClient resolves a user's current shopping-cart contents (spec §4.B.1).
type CartClient interface {
	GetCart(userID uuid.UUID, callerIdentity string) ([]CartItem, error)
}

type cartClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewCartClient creates a new cart service client.
func NewCartClient(baseURL string) CartClient {
	return &cartClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *cartClient) GetCart(userID uuid.UUID, callerIdentity string) ([]CartItem, error) {
	url := fmt.Sprintf("%s/api/v1/carts/%s", c.baseURL, userID)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternalServiceError, "cart", userID.String(), err)
	}
	req.Header.Set("X-Caller-Identity", callerIdentity)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternalServiceError, "cart", userID.String(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, apperr.New(apperr.KindExternalServiceError, "cart", userID.String(),
			fmt.Sprintf("cart service returned status %d: %s", resp.StatusCode, string(body)))
	}

	var items []CartItem
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternalServiceError, "cart", userID.String(), err)
	}
	if err := json.Unmarshal(buf, &items); err != nil {
		return nil, apperr.Wrap(apperr.KindExternalServiceError, "cart", userID.String(), err)
	}
	return items, nil
}
