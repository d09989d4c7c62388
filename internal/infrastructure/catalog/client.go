package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"trade_market/internal/domain"
	"trade_market/internal/domain/entity"
	"trade_market/pkg/errcodes"
	"trade_market/pkg/httpx"
	"trade_market/pkg/logx"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

type Options struct {
	BaseURL        string
	Timeout        time.Duration
	CacheTTL       time.Duration
	LogFieldMaxLen int
}

// Client читает товары из сервиса каталога. Найденные товары кешируются на
// CacheTTL; отсутствие товара не кешируется. CacheTTL <= 0 отключает кеш.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	cache      *cache.Cache
	cacheTTL   time.Duration
}

type productResponse struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	Title       string          `json:"title"`
	IsTradeable bool            `json:"is_tradeable"`
	Price       decimal.Decimal `json:"price"`
}

func NewClient(opts Options, authenticator *ServiceAuthenticator) (*Client, error) {
	baseURL, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("url.Parse: %w", err)
	}

	var transport http.RoundTripper = httpx.NewLoggingRoundTripper(
		http.DefaultTransport,
		httpx.WithSensitiveDataMasker(logx.NewSensitiveDataMasker()),
		httpx.WithLogFieldMaxLen(opts.LogFieldMaxLen),
	)
	if authenticator != nil {
		transport = httpx.NewAuthBearerRoundTripper(transport, authenticator)
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		cache:    cache.New(opts.CacheTTL, 2*opts.CacheTTL),
		cacheTTL: opts.CacheTTL,
	}, nil
}

func (c *Client) GetProduct(ctx context.Context, id uuid.UUID) (entity.Product, error) {
	if cached, ok := c.cache.Get(id.String()); ok {
		return cached.(entity.Product), nil //nolint:forcetypeassert
	}

	endpoint := c.baseURL.JoinPath("v1", "products", id.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), http.NoBody)
	if err != nil {
		return entity.Product{}, domain.Internal(err, "failed to build catalog request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return entity.Product{}, unavailable(fmt.Errorf("httpClient.Do: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return entity.Product{}, domain.NotFound(errcodes.ProductNotFound, "product not found")
	case resp.StatusCode != http.StatusOK:
		return entity.Product{}, unavailable(fmt.Errorf("catalog responded %d", resp.StatusCode))
	}

	var body productResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return entity.Product{}, unavailable(fmt.Errorf("json.Decode: %w", err))
	}

	product := entity.Product{
		ID:          body.ID,
		OwnerID:     body.UserID,
		Title:       body.Title,
		IsTradeable: body.IsTradeable,
		Price:       body.Price,
	}

	if c.cacheTTL > 0 {
		c.cache.Set(id.String(), product, c.cacheTTL)
	}

	return product, nil
}

func unavailable(err error) error {
	return domain.WrapError(err, domain.KindTransient, errcodes.CatalogUnavailable, "catalog is unavailable")
}
