package paymentprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Client - клиент API платежного провайдера. Выполняет только чтение:
// сервис никогда не изменяет состояние на стороне провайдера.
type Client struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient создаёт новый клиент API провайдера.
func NewClient(apiKey, apiURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: timeout},
		// Потолок исходящих запросов к провайдеру на процесс.
		limiter: rate.NewLimiter(rate.Limit(25), 50),
	}
}

func (c *Client) newRequest(ctx context.Context, path string, query url.Values) (*http.Request, error) {
	reqURL := c.apiURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return req, nil
}

func (c *Client) do(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := c.newRequest(ctx, path, query)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetCheckoutSession запрашивает checkout-сессию по ID с развернутым клиентом.
// Используется для восстановления идентификатора пользователя, когда событие
// пришло без client_reference_id.
func (c *Client) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	const op = "paymentprovider.GetCheckoutSession"

	query := url.Values{}
	query.Add("expand[]", "customer")

	var session CheckoutSession
	if err := c.do(ctx, "/checkout/sessions/"+sessionID, query, &session); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &session, nil
}

// ListSubscriptions возвращает подписки клиента, свежие первыми, с развернутым
// платежным методом по умолчанию. По дизайну продукта у клиента не больше одной.
func (c *Client) ListSubscriptions(ctx context.Context, customerID string) ([]*Subscription, error) {
	const op = "paymentprovider.ListSubscriptions"

	query := url.Values{}
	query.Set("customer", customerID)
	query.Set("status", "all")
	query.Set("limit", "1")
	query.Add("expand[]", "data.default_payment_method")

	var list subscriptionList
	if err := c.do(ctx, "/subscriptions", query, &list); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list.Data, nil
}
