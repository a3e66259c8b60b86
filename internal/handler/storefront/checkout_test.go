package storefront

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjhart/mercato/internal/domain"
	"github.com/tjhart/mercato/internal/money"
)

// mockCheckoutService implements CheckoutService for testing
type mockCheckoutService struct {
	convertFunc func(ctx context.Context, sessionID string, form domain.OrderForm) (*domain.Order, error)
}

func (m *mockCheckoutService) Convert(ctx context.Context, sessionID string, form domain.OrderForm) (*domain.Order, error) {
	if m.convertFunc != nil {
		return m.convertFunc(ctx, sessionID, form)
	}
	return nil, domain.ErrEmptyCart
}

// mockOrderRepo implements domain.OrderRepository for testing
type mockOrderRepo struct {
	getByIDFunc func(ctx context.Context, id uuid.UUID) (*domain.Order, error)
}

func (m *mockOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	return nil
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, domain.ErrOrderNotFound
}

func sampleOrder() *domain.Order {
	orderID := uuid.New()
	return &domain.Order{
		ID:        orderID,
		Number:    "ORD-20260615-K7PQ",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Subtotal:  money.MustParse("24.98"),
		Discount:  money.Zero(),
		Total:     money.MustParse("24.98"),
		CreatedAt: time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC),
		Lines: []domain.OrderLine{
			{
				ID:        uuid.New(),
				OrderID:   orderID,
				ProductID: uuid.New(),
				Name:      "Single Origin Beans",
				UnitPrice: money.MustParse("9.99"),
				Quantity:  2,
			},
		},
	}
}

const validCheckoutBody = `{
	"first_name": "Ada",
	"last_name": "Lovelace",
	"email": "ada@example.com",
	"address": "12 Analytical Row",
	"postal_code": "10115",
	"city": "Berlin"
}`

func TestCheckoutCreate(t *testing.T) {
	tests := []struct {
		name           string
		sessionCookie  string
		body           string
		checkout       *mockCheckoutService
		expectedStatus int
		check          func(t *testing.T, body string)
	}{
		{
			name:          "successful conversion",
			sessionCookie: "sess-1",
			body:          validCheckoutBody,
			checkout: &mockCheckoutService{
				convertFunc: func(ctx context.Context, sessionID string, form domain.OrderForm) (*domain.Order, error) {
					assert.Equal(t, "sess-1", sessionID)
					assert.Equal(t, "Ada", form.FirstName)
					assert.Equal(t, "Berlin", form.City)
					return sampleOrder(), nil
				},
			},
			expectedStatus: http.StatusCreated,
			check: func(t *testing.T, body string) {
				var resp OrderResponse
				require.NoError(t, json.Unmarshal([]byte(body), &resp))
				assert.Equal(t, "ORD-20260615-K7PQ", resp.Number)
				assert.Equal(t, "24.98", resp.Total.StringFixed())
				assert.False(t, resp.Paid)
				require.Len(t, resp.Lines, 1)
				assert.Equal(t, "19.98", resp.Lines[0].Subtotal.StringFixed())
			},
		},
		{
			name:           "no session cookie",
			sessionCookie:  "",
			body:           validCheckoutBody,
			checkout:       &mockCheckoutService{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing fields",
			sessionCookie:  "sess-1",
			body:           `{"first_name":"Ada"}`,
			checkout:       &mockCheckoutService{},
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, body string) {
				assert.Contains(t, body, "last_name")
				assert.Contains(t, body, "city")
			},
		},
		{
			name:          "invalid email",
			sessionCookie: "sess-1",
			body: strings.Replace(validCheckoutBody,
				"ada@example.com", "not-an-email", 1),
			checkout:       &mockCheckoutService{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:          "empty cart",
			sessionCookie: "sess-1",
			body:          validCheckoutBody,
			checkout: &mockCheckoutService{
				convertFunc: func(ctx context.Context, sessionID string, form domain.OrderForm) (*domain.Order, error) {
					return nil, domain.ErrEmptyCart
				},
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:          "commit failure is a 500 without details",
			sessionCookie: "sess-1",
			body:          validCheckoutBody,
			checkout: &mockCheckoutService{
				convertFunc: func(ctx context.Context, sessionID string, form domain.OrderForm) (*domain.Order, error) {
					return nil, &domain.Error{
						Code:    domain.EINTERNAL,
						Op:      "checkout.convert",
						Message: "Order could not be saved",
					}
				},
			},
			expectedStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body string) {
				assert.NotContains(t, body, "checkout.convert", "internal detail must not leak")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCheckoutHandler(tt.checkout, &mockOrderRepo{})

			req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(tt.body))
			req = withSessionCookie(req, tt.sessionCookie)
			rec := httptest.NewRecorder()
			h.Create(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.check != nil {
				tt.check(t, rec.Body.String())
			}
		})
	}
}

func TestCheckoutGet(t *testing.T) {
	order := sampleOrder()
	repo := &mockOrderRepo{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
			if id == order.ID {
				return order, nil
			}
			return nil, domain.ErrOrderNotFound
		},
	}
	h := NewCheckoutHandler(&mockCheckoutService{}, repo)

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders/"+order.ID.String(), nil)
		req.SetPathValue("id", order.ID.String())
		rec := httptest.NewRecorder()
		h.Get(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp OrderResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, order.ID.String(), resp.ID)
		assert.Equal(t, "2026-06-15T12:00:00Z", resp.CreatedAt)
	})

	t.Run("unknown id", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/orders/"+id, nil)
		req.SetPathValue("id", id)
		rec := httptest.NewRecorder()
		h.Get(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders/junk", nil)
		req.SetPathValue("id", "junk")
		rec := httptest.NewRecorder()
		h.Get(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
