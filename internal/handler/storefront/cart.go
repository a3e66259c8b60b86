// Package storefront exposes the cart and checkout JSON API.
package storefront

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tjhart/mercato/internal/cart"
	"github.com/tjhart/mercato/internal/domain"
	"github.com/tjhart/mercato/internal/money"
	"github.com/tjhart/mercato/internal/session"
	"github.com/tjhart/mercato/internal/telemetry"
)

// CartService is the cart engine surface the handlers need.
type CartService interface {
	Load(ctx context.Context, sessionID string) (*cart.Cart, error)
	Add(ctx context.Context, sessionID string, product domain.Product, quantity int, override bool) (*cart.Cart, error)
	Remove(ctx context.Context, sessionID string, productID uuid.UUID) (*cart.Cart, error)
	Clear(ctx context.Context, sessionID string) error
	ApplyCoupon(ctx context.Context, sessionID string, code string) (*cart.Cart, error)
	RemoveCoupon(ctx context.Context, sessionID string) (*cart.Cart, error)
	Resolve(ctx context.Context, c *cart.Cart) ([]cart.ResolvedItem, error)
	Coupon(ctx context.Context, c *cart.Cart) *domain.Coupon
	Discount(ctx context.Context, c *cart.Cart) money.Money
	TotalAfterDiscount(ctx context.Context, c *cart.Cart) money.Money
}

// CartHandler handles all cart-related storefront routes
type CartHandler struct {
	carts      CartService
	catalog    domain.CatalogRepository
	metrics    *telemetry.BusinessMetrics
	sessionTTL time.Duration
	secure     bool
}

// NewCartHandler creates a new cart handler
func NewCartHandler(
	carts CartService,
	catalog domain.CatalogRepository,
	metrics *telemetry.BusinessMetrics,
	sessionTTL time.Duration,
	secure bool,
) *CartHandler {
	return &CartHandler{
		carts:      carts,
		catalog:    catalog,
		metrics:    metrics,
		sessionTTL: sessionTTL,
		secure:     secure,
	}
}

// CartItemResponse is one cart line joined against the catalog.
type CartItemResponse struct {
	ProductID  string      `json:"product_id"`
	Name       string      `json:"name"`
	Slug       string      `json:"slug"`
	Quantity   int         `json:"quantity"`
	UnitPrice  money.Money `json:"unit_price"`
	TotalPrice money.Money `json:"total_price"`
}

// CouponResponse describes the coupon applied to the cart, if any.
type CouponResponse struct {
	Code            string `json:"code"`
	DiscountPercent int    `json:"discount_percent"`
}

// CartResponse is the full cart view returned by every cart endpoint.
type CartResponse struct {
	Items     []CartItemResponse `json:"items"`
	ItemCount int                `json:"item_count"`
	Subtotal  money.Money        `json:"subtotal"`
	Coupon    *CouponResponse    `json:"coupon,omitempty"`
	Discount  money.Money        `json:"discount"`
	Total     money.Money        `json:"total"`
}

// AddItemRequest is the payload for POST /cart/add and POST /cart/update.
type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Override  bool   `json:"override,omitempty"`
}

// RemoveItemRequest is the payload for POST /cart/remove.
type RemoveItemRequest struct {
	ProductID string `json:"product_id"`
}

// ApplyCouponRequest is the payload for POST /cart/coupon.
type ApplyCouponRequest struct {
	Code string `json:"code"`
}

// View handles GET /cart
func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID := GetSessionIDFromCookie(r)
	if sessionID == "" {
		respondJSON(w, http.StatusOK, emptyCartResponse())
		return
	}

	c, err := h.carts.Load(ctx, sessionID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	h.respondCart(w, r, c)
}

// Add handles POST /cart/add
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AddItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		respondError(w, r, domain.Errorf(domain.EINVALID, "storefront.cart_add", "Invalid product id"))
		return
	}

	product, err := h.catalog.GetByID(ctx, productID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	sessionID, err := h.ensureSession(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	c, err := h.carts.Add(ctx, sessionID, *product, req.Quantity, req.Override)
	if err != nil {
		respondError(w, r, err)
		return
	}

	h.metrics.CartItemsAdded.Add(float64(req.Quantity))
	h.respondCart(w, r, c)
}

// Update handles POST /cart/update. The given quantity replaces the stored
// quantity instead of adding to it.
func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AddItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		respondError(w, r, domain.Errorf(domain.EINVALID, "storefront.cart_update", "Invalid product id"))
		return
	}

	product, err := h.catalog.GetByID(ctx, productID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	sessionID := GetSessionIDFromCookie(r)
	if sessionID == "" {
		respondError(w, r, domain.Errorf(domain.ENOTFOUND, "storefront.cart_update", "No cart found"))
		return
	}

	c, err := h.carts.Add(ctx, sessionID, *product, req.Quantity, true)
	if err != nil {
		respondError(w, r, err)
		return
	}

	h.respondCart(w, r, c)
}

// Remove handles POST /cart/remove
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RemoveItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		respondError(w, r, domain.Errorf(domain.EINVALID, "storefront.cart_remove", "Invalid product id"))
		return
	}

	sessionID := GetSessionIDFromCookie(r)
	if sessionID == "" {
		respondError(w, r, domain.Errorf(domain.ENOTFOUND, "storefront.cart_remove", "No cart found"))
		return
	}

	c, err := h.carts.Remove(ctx, sessionID, productID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	h.metrics.CartItemsRemoved.Inc()
	h.respondCart(w, r, c)
}

// Clear handles POST /cart/clear
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID := GetSessionIDFromCookie(r)
	if sessionID == "" {
		respondJSON(w, http.StatusOK, emptyCartResponse())
		return
	}

	if err := h.carts.Clear(ctx, sessionID); err != nil {
		respondError(w, r, err)
		return
	}

	h.metrics.CartCleared.Inc()
	respondJSON(w, http.StatusOK, emptyCartResponse())
}

// ApplyCoupon handles POST /cart/coupon
func (h *CartHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ApplyCouponRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Code == "" {
		respondError(w, r, domain.Errorf(domain.EINVALID, "storefront.coupon_apply", "Coupon code is required"))
		return
	}

	sessionID, err := h.ensureSession(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	c, err := h.carts.ApplyCoupon(ctx, sessionID, req.Code)
	if err != nil {
		respondError(w, r, err)
		return
	}

	h.respondCart(w, r, c)
}

// RemoveCoupon handles DELETE /cart/coupon
func (h *CartHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID := GetSessionIDFromCookie(r)
	if sessionID == "" {
		respondJSON(w, http.StatusOK, emptyCartResponse())
		return
	}

	c, err := h.carts.RemoveCoupon(ctx, sessionID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	h.respondCart(w, r, c)
}

// ensureSession returns the request's session ID, minting a new one and
// setting the cookie when the request has none.
func (h *CartHandler) ensureSession(w http.ResponseWriter, r *http.Request) (string, error) {
	if sessionID := GetSessionIDFromCookie(r); sessionID != "" {
		return sessionID, nil
	}

	sessionID, err := session.GenerateID()
	if err != nil {
		return "", domain.WrapError(err, domain.EINTERNAL, "storefront.session", "failed to generate session id")
	}

	SetSessionCookie(w, sessionID, int(h.sessionTTL.Seconds()), h.secure)
	return sessionID, nil
}

// respondCart joins the cart against the catalog and writes the full view.
// The subtotal is the sum over stored lines; lines whose product has left
// the catalog still count toward it until the client removes them.
func (h *CartHandler) respondCart(w http.ResponseWriter, r *http.Request, c *cart.Cart) {
	ctx := r.Context()

	items, err := h.carts.Resolve(ctx, c)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := CartResponse{
		Items:     make([]CartItemResponse, 0, len(items)),
		ItemCount: c.ItemCount(),
		Subtotal:  c.Total(),
		Discount:  h.carts.Discount(ctx, c),
		Total:     h.carts.TotalAfterDiscount(ctx, c),
	}

	for _, item := range items {
		resp.Items = append(resp.Items, CartItemResponse{
			ProductID:  item.Product.ID.String(),
			Name:       item.Product.Name,
			Slug:       item.Product.Slug,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
		})
	}

	if coupon := h.carts.Coupon(ctx, c); coupon != nil {
		resp.Coupon = &CouponResponse{
			Code:            coupon.Code,
			DiscountPercent: coupon.DiscountPercent,
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

func emptyCartResponse() CartResponse {
	return CartResponse{
		Items:    []CartItemResponse{},
		Subtotal: money.Zero(),
		Discount: money.Zero(),
		Total:    money.Zero(),
	}
}
