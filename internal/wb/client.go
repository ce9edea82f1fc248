package wb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nstonic/WBSallerBot/internal/infra/metrics"
)

const (
	// DefaultBaseURL — боевой адрес API поставщиков WB.
	DefaultBaseURL = "https://suppliers-api.wildberries.ru"

	// pageLimit — потолок размера страницы у курсорных списков WB.
	pageLimit = 1000
	// chunkLimit — максимум id в одном батч-запросе (стикеры, карточки).
	chunkLimit = 100

	retryStep    = 5 * time.Second
	retryCeiling = 30 * time.Second
)

// stickerParams — размеры PNG-стикеров, которые рисует WB.
var stickerParams = url.Values{
	"type":   {"png"},
	"width":  {"58"},
	"height": {"40"},
}

// Client — типизированная обёртка над API поставщиков Wildberries.
// Потокобезопасен; временные сетевые сбои гасит бесконечным повтором
// с линейно растущей задержкой, наружу отдаёт только *APIError.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	log        *slog.Logger
	sleep      func(time.Duration)
}

func New(baseURL, token string, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		log:        log,
		sleep:      time.Sleep,
	}
}

// request выполняет один логический вызов API. Повторяет попытки при
// временных сетевых сбоях: первая — без задержки, дальше +5с за попытку,
// не больше 30с. Ошибки домена (*APIError) повтором не лечатся.
func (c *Client) request(ctx context.Context, op, method, path string, query url.Values, payload any) ([]byte, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", op, err)
		}
	}

	metrics.WBRequests.WithLabelValues(op).Inc()

	var delay time.Duration
	for {
		data, err := c.attempt(ctx, method, path, query, body)
		if err == nil {
			return data, nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		}
		if !isTransient(err) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		metrics.WBRetries.Inc()
		c.log.Warn("wb: временный сбой, повторяем", "op", op, "delay", delay.String(), "err", err)
		c.sleep(delay)
		if delay < retryCeiling {
			delay += retryStep
			if delay > retryCeiling {
				delay = retryCeiling
			}
		}
	}
}

func (c *Client) attempt(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp.StatusCode, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Supplies возвращает поставки, свежие первыми. Сервер отдаёт их постранично
// от старых к новым, поэтому после обхода всех страниц порядок
// разворачивается. При onlyActive закрытые поставки отбрасываются.
// limit > 0 обрезает итог до limit штук.
func (c *Client) Supplies(ctx context.Context, onlyActive bool, limit int) ([]Supply, error) {
	var all []Supply
	next := int64(0)
	for {
		query := url.Values{
			"limit": {fmt.Sprint(pageLimit)},
			"next":  {fmt.Sprint(next)},
		}
		data, err := c.request(ctx, "supplies", http.MethodGet, "/api/v3/supplies", query, nil)
		if err != nil {
			return nil, err
		}
		var page struct {
			Supplies []Supply `json:"supplies"`
			Next     int64    `json:"next"`
		}
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, fmt.Errorf("supplies: decode: %w", err)
		}
		if len(page.Supplies) == 0 {
			break
		}
		all = append(all, page.Supplies...)
		if len(page.Supplies) < pageLimit {
			break
		}
		next = page.Next
	}

	supplies := make([]Supply, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		s := all[i]
		if s.Done && onlyActive {
			continue
		}
		supplies = append(supplies, s)
		if limit > 0 && len(supplies) == limit {
			break
		}
	}
	return supplies, nil
}

func (c *Client) Supply(ctx context.Context, supplyID string) (Supply, error) {
	data, err := c.request(ctx, "supply", http.MethodGet, "/api/v3/supplies/"+supplyID, nil, nil)
	if err != nil {
		return Supply{}, err
	}
	var s Supply
	if err := json.Unmarshal(data, &s); err != nil {
		return Supply{}, fmt.Errorf("supply: decode: %w", err)
	}
	return s, nil
}

func (c *Client) SupplyOrders(ctx context.Context, supplyID string) ([]Order, error) {
	data, err := c.request(ctx, "supply_orders", http.MethodGet, "/api/v3/supplies/"+supplyID+"/orders", nil, nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Orders []Order `json:"orders"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("supply orders: decode: %w", err)
	}
	return resp.Orders, nil
}

func (c *Client) NewOrders(ctx context.Context) ([]Order, error) {
	data, err := c.request(ctx, "new_orders", http.MethodGet, "/api/v3/orders/new", nil, nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Orders []Order `json:"orders"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("new orders: decode: %w", err)
	}
	return resp.Orders, nil
}

// CreateSupply создаёт поставку и возвращает её id.
func (c *Client) CreateSupply(ctx context.Context, name string) (string, error) {
	data, err := c.request(ctx, "create_supply", http.MethodPost, "/api/v3/supplies", nil,
		map[string]string{"name": name})
	if err != nil {
		return "", err
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("create supply: decode: %w", err)
	}
	return resp.ID, nil
}

// DeleteSupply удаляет поставку. Сервер разрешает это только пока в ней
// нет заказов.
func (c *Client) DeleteSupply(ctx context.Context, supplyID string) error {
	_, err := c.request(ctx, "delete_supply", http.MethodDelete, "/api/v3/supplies/"+supplyID, nil, nil)
	return err
}

// CloseSupply передаёт поставку в доставку. Операция необратима.
func (c *Client) CloseSupply(ctx context.Context, supplyID string) error {
	_, err := c.request(ctx, "close_supply", http.MethodPatch, "/api/v3/supplies/"+supplyID+"/deliver", nil, nil)
	return err
}

func (c *Client) AddOrderToSupply(ctx context.Context, supplyID string, orderID int64) error {
	path := fmt.Sprintf("/api/v3/supplies/%s/orders/%d", supplyID, orderID)
	_, err := c.request(ctx, "add_order", http.MethodPatch, path, nil, nil)
	return err
}

// OrderStickers запрашивает QR-стикеры заказов. WB принимает не больше 100
// id за вызов, поэтому список режется на части; результат склеивается
// в порядке исходных id.
func (c *Client) OrderStickers(ctx context.Context, orderIDs []int64) ([]OrderQRCode, error) {
	stickers := make([]OrderQRCode, 0, len(orderIDs))
	for chunk := range chunked(orderIDs, chunkLimit) {
		data, err := c.request(ctx, "order_stickers", http.MethodPost, "/api/v3/orders/stickers",
			stickerParams, map[string][]int64{"orders": chunk})
		if err != nil {
			return nil, err
		}
		var resp struct {
			Stickers []OrderQRCode `json:"stickers"`
		}
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("order stickers: decode: %w", err)
		}
		stickers = append(stickers, resp.Stickers...)
	}
	return stickers, nil
}

func (c *Client) SupplyBarcode(ctx context.Context, supplyID string) (SupplyQRCode, error) {
	data, err := c.request(ctx, "supply_barcode", http.MethodGet,
		"/api/v3/supplies/"+supplyID+"/barcode", stickerParams, nil)
	if err != nil {
		return SupplyQRCode{}, err
	}
	var qr SupplyQRCode
	if err := json.Unmarshal(data, &qr); err != nil {
		return SupplyQRCode{}, fmt.Errorf("supply barcode: decode: %w", err)
	}
	return qr, nil
}

// ProductsByArticles ищет карточки по артикулам, по 100 за вызов.
// Результат материализован целиком, порядок следует порядку частей.
func (c *Client) ProductsByArticles(ctx context.Context, articles []string) ([]Product, error) {
	products := make([]Product, 0, len(articles))
	for chunk := range chunked(articles, chunkLimit) {
		data, err := c.request(ctx, "products_filter", http.MethodPost, "/content/v1/cards/filter",
			nil, map[string][]string{"vendorCodes": chunk})
		if err != nil {
			return nil, err
		}
		var resp struct {
			Data []ProductCard `json:"data"`
		}
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("products filter: decode: %w", err)
		}
		for _, card := range resp.Data {
			products = append(products, ProductFromCard(card))
		}
	}
	return products, nil
}

func (c *Client) ProductByArticle(ctx context.Context, article string) (Product, error) {
	products, err := c.ProductsByArticles(ctx, []string{article})
	if err != nil {
		return Product{}, err
	}
	for _, p := range products {
		if p.Article == article {
			return p, nil
		}
	}
	return Product{Article: article}, nil
}

// ProductCards лениво перебирает весь каталог через курсорный список.
// Последовательность перезапускаемая: каждый range начинает обход заново.
// Это единственный ленивый метод клиента — каталог может быть на сотни
// тысяч карточек, остальные списки материализуются целиком.
func (c *Client) ProductCards(ctx context.Context) iter.Seq2[ProductCard, error] {
	return func(yield func(ProductCard, error) bool) {
		cursor := map[string]any{"limit": pageLimit}
		for {
			payload := map[string]any{
				"sort": map[string]any{
					"cursor": cursor,
					"filter": map[string]any{"withPhoto": -1},
				},
			}
			data, err := c.request(ctx, "product_cards", http.MethodPost, "/content/v1/cards/cursor/list", nil, payload)
			if err != nil {
				yield(ProductCard{}, err)
				return
			}
			var resp struct {
				Data struct {
					Cards  []ProductCard `json:"cards"`
					Cursor struct {
						NmID      int64  `json:"nmID"`
						UpdatedAt string `json:"updatedAt"`
						Total     int    `json:"total"`
					} `json:"cursor"`
				} `json:"data"`
			}
			if err := json.Unmarshal(data, &resp); err != nil {
				yield(ProductCard{}, fmt.Errorf("product cards: decode: %w", err))
				return
			}
			for _, card := range resp.Data.Cards {
				if !yield(card, nil) {
					return
				}
			}
			if resp.Data.Cursor.Total < pageLimit {
				return
			}
			cursor["nmID"] = resp.Data.Cursor.NmID
			cursor["updatedAt"] = resp.Data.Cursor.UpdatedAt
		}
	}
}

// chunked режет список на части не длиннее size, сохраняя порядок.
func chunked[T any](items []T, size int) iter.Seq[[]T] {
	return func(yield func([]T) bool) {
		for start := 0; start < len(items); start += size {
			end := min(start+size, len(items))
			if !yield(items[start:end]) {
				return
			}
		}
	}
}
