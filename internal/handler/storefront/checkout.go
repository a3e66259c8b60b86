package storefront

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tjhart/mercato/internal/domain"
	"github.com/tjhart/mercato/internal/money"
)

// CheckoutService converts a session cart into an order.
type CheckoutService interface {
	Convert(ctx context.Context, sessionID string, form domain.OrderForm) (*domain.Order, error)
}

// CheckoutHandler handles order conversion and order lookup routes
type CheckoutHandler struct {
	checkout CheckoutService
	orders   domain.OrderRepository
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkout CheckoutService, orders domain.OrderRepository) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		orders:   orders,
	}
}

// CheckoutRequest is the payload for POST /checkout.
type CheckoutRequest struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Address    string `json:"address"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
}

// OrderLineResponse is one snapshot line of a placed order.
type OrderLineResponse struct {
	ProductID string      `json:"product_id"`
	Name      string      `json:"name"`
	UnitPrice money.Money `json:"unit_price"`
	Quantity  int         `json:"quantity"`
	Subtotal  money.Money `json:"subtotal"`
}

// OrderResponse is the order view returned after checkout and on lookup.
type OrderResponse struct {
	ID        string              `json:"id"`
	Number    string              `json:"number"`
	FirstName string              `json:"first_name"`
	LastName  string              `json:"last_name"`
	Email     string              `json:"email"`
	Subtotal  money.Money         `json:"subtotal"`
	Discount  money.Money         `json:"discount"`
	Total     money.Money         `json:"total"`
	Paid      bool                `json:"paid"`
	CreatedAt string              `json:"created_at"`
	Lines     []OrderLineResponse `json:"lines"`
}

// Create handles POST /checkout
func (h *CheckoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID := GetSessionIDFromCookie(r)
	if sessionID == "" {
		respondError(w, r, domain.ErrEmptyCart)
		return
	}

	var req CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	form, err := validateCheckoutRequest(req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	order, err := h.checkout.Convert(ctx, sessionID, form)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, orderResponse(order))
}

// Get handles GET /orders/{id}
func (h *CheckoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, r, domain.Errorf(domain.EINVALID, "storefront.order_get", "Invalid order id"))
		return
	}

	order, err := h.orders.GetByID(ctx, orderID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, orderResponse(order))
}

func validateCheckoutRequest(req CheckoutRequest) (domain.OrderForm, error) {
	form := domain.OrderForm{
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		Email:      strings.TrimSpace(req.Email),
		Address:    strings.TrimSpace(req.Address),
		PostalCode: strings.TrimSpace(req.PostalCode),
		City:       strings.TrimSpace(req.City),
	}

	missing := []string{}
	if form.FirstName == "" {
		missing = append(missing, "first_name")
	}
	if form.LastName == "" {
		missing = append(missing, "last_name")
	}
	if form.Email == "" {
		missing = append(missing, "email")
	}
	if form.Address == "" {
		missing = append(missing, "address")
	}
	if form.PostalCode == "" {
		missing = append(missing, "postal_code")
	}
	if form.City == "" {
		missing = append(missing, "city")
	}
	if len(missing) > 0 {
		return domain.OrderForm{}, domain.Errorf(domain.EINVALID, "storefront.checkout",
			"Missing required fields: %s", strings.Join(missing, ", "))
	}

	if !strings.Contains(form.Email, "@") {
		return domain.OrderForm{}, domain.Errorf(domain.EINVALID, "storefront.checkout", "Invalid email address")
	}

	return form, nil
}

func orderResponse(order *domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:        order.ID.String(),
		Number:    order.Number,
		FirstName: order.FirstName,
		LastName:  order.LastName,
		Email:     order.Email,
		Subtotal:  order.Subtotal,
		Discount:  order.Discount,
		Total:     order.Total,
		Paid:      order.Paid,
		CreatedAt: order.CreatedAt.UTC().Format(time.RFC3339),
		Lines:     make([]OrderLineResponse, 0, len(order.Lines)),
	}

	for _, line := range order.Lines {
		resp.Lines = append(resp.Lines, OrderLineResponse{
			ProductID: line.ProductID.String(),
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			Subtotal:  line.Subtotal(),
		})
	}

	return resp
}
