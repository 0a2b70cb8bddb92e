package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"basketbay/internal/models"

	"github.com/shopspring/decimal"
)

// ImageResolver turns the backend's image references into absolute URLs.
type ImageResolver struct {
	BaseURL      string
	DefaultImage string
}

// Resolve maps an empty reference to the default image, keeps absolute URLs
// and prefixes relative paths with the image base URL.
func (r ImageResolver) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return r.DefaultImage
	}
	if strings.HasPrefix(ref, "http") {
		return ref
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return strings.TrimRight(r.BaseURL, "/") + ref
}

// productDTO is the backend's product shape; older records use "id" and "image"
type productDTO struct {
	ID          string          `json:"_id"`
	LegacyID    string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Discount    decimal.Decimal `json:"discount"`
	Count       int             `json:"count"`
	Image       string          `json:"image"`
	ImageURL    string          `json:"imageUrl"`
}

// CatalogClient talks to the product catalog endpoints
type CatalogClient struct {
	c      *Client
	images ImageResolver
}

// NewCatalogClient creates a catalog client
func NewCatalogClient(c *Client, images ImageResolver) *CatalogClient {
	return &CatalogClient{c: c, images: images}
}

func (cc *CatalogClient) normalize(p productDTO) models.CatalogEntry {
	image := p.Image
	if image == "" {
		image = p.ImageURL
	}
	return models.CatalogEntry{
		ID:              models.NormalizeProductID(p.ID, p.LegacyID),
		Name:            p.Name,
		Description:     p.Description,
		ImageRef:        cc.images.Resolve(image),
		UnitPrice:       p.Price,
		DiscountPercent: p.Discount,
		AvailableStock:  p.Count,
	}
}

// ListProducts fetches one page of the catalog. The backend answers either
// {products, totalPages} or a bare array.
func (cc *CatalogClient) ListProducts(ctx context.Context, page, limit int, sort string) (models.ProductPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = models.DefaultLimit
	}
	if !models.ValidSort(sort) {
		sort = models.SortLatest
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("sort", sort)

	var raw json.RawMessage
	err := cc.c.do(ctx, request{
		call:   "catalog.list",
		method: http.MethodGet,
		path:   "/api/products",
		query:  q,
	}, &raw)
	if err != nil {
		return models.ProductPage{}, err
	}

	var body struct {
		Products   []productDTO `json:"products"`
		TotalPages int          `json:"totalPages"`
	}
	if isJSONArray(raw) {
		if err := json.Unmarshal(raw, &body.Products); err != nil {
			return models.ProductPage{}, fmt.Errorf("catalog.list: %w: %v", models.ErrNetwork, err)
		}
	} else if len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			return models.ProductPage{}, fmt.Errorf("catalog.list: %w: %v", models.ErrNetwork, err)
		}
	}

	result := models.ProductPage{
		Products:   make([]models.CatalogEntry, 0, len(body.Products)),
		Page:       page,
		TotalPages: body.TotalPages,
		Sort:       sort,
	}
	if result.TotalPages < 1 {
		result.TotalPages = 1
	}
	for _, p := range body.Products {
		e := cc.normalize(p)
		if e.ID == "" {
			continue
		}
		result.Products = append(result.Products, e)
	}
	return result, nil
}

// AddProduct creates a product in inventory
func (cc *CatalogClient) AddProduct(ctx context.Context, token string, p models.NewProduct) (models.CatalogEntry, error) {
	return cc.productCall(ctx, request{
		call:   "catalog.add",
		method: http.MethodPost,
		path:   "/api/products",
		token:  token,
		body:   p,
	})
}

// DeleteProduct removes a product from inventory
func (cc *CatalogClient) DeleteProduct(ctx context.Context, token string, id models.ProductID) error {
	return cc.c.do(ctx, request{
		call:   "catalog.delete",
		method: http.MethodDelete,
		path:   "/api/products/" + url.PathEscape(string(id)),
		token:  token,
	}, nil)
}

// IncreaseStock adds one unit of stock
func (cc *CatalogClient) IncreaseStock(ctx context.Context, token string, id models.ProductID) (models.CatalogEntry, error) {
	return cc.productCall(ctx, request{
		call:   "catalog.increase",
		method: http.MethodPut,
		path:   "/api/products/increase/" + url.PathEscape(string(id)),
		token:  token,
	})
}

// DecreaseStock removes one unit of stock
func (cc *CatalogClient) DecreaseStock(ctx context.Context, token string, id models.ProductID) (models.CatalogEntry, error) {
	return cc.productCall(ctx, request{
		call:   "catalog.decrease",
		method: http.MethodPut,
		path:   "/api/products/decrease/" + url.PathEscape(string(id)),
		token:  token,
	})
}

// productCall decodes either {product: {...}} or a bare product.
func (cc *CatalogClient) productCall(ctx context.Context, r request) (models.CatalogEntry, error) {
	var raw json.RawMessage
	if err := cc.c.do(ctx, r, &raw); err != nil {
		return models.CatalogEntry{}, err
	}
	if len(raw) == 0 {
		return models.CatalogEntry{}, nil
	}

	var wrapped struct {
		Product *productDTO `json:"product"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return models.CatalogEntry{}, fmt.Errorf("%s: %w: %v", r.call, models.ErrNetwork, err)
	}
	if wrapped.Product != nil {
		return cc.normalize(*wrapped.Product), nil
	}

	var bare productDTO
	if err := json.Unmarshal(raw, &bare); err != nil {
		return models.CatalogEntry{}, fmt.Errorf("%s: %w: %v", r.call, models.ErrNetwork, err)
	}
	return cc.normalize(bare), nil
}
