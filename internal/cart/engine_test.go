package cart_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjhart/mercato/internal/cart"
	"github.com/tjhart/mercato/internal/coupon"
	"github.com/tjhart/mercato/internal/domain"
	"github.com/tjhart/mercato/internal/money"
	"github.com/tjhart/mercato/internal/session"
)

// mockCatalog implements domain.CatalogRepository for testing
type mockCatalog struct {
	getByIDsFunc func(ctx context.Context, ids []uuid.UUID) ([]domain.Product, error)
	getByIDFunc  func(ctx context.Context, id uuid.UUID) (*domain.Product, error)
}

func (m *mockCatalog) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Product, error) {
	if m.getByIDsFunc != nil {
		return m.getByIDsFunc(ctx, ids)
	}
	return nil, nil
}

func (m *mockCatalog) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, domain.ErrProductNotFound
}

// mockCouponRepo implements domain.CouponRepository for testing
type mockCouponRepo struct {
	getByIDFunc   func(ctx context.Context, id uuid.UUID) (*domain.Coupon, error)
	getByCodeFunc func(ctx context.Context, code string) (*domain.Coupon, error)
}

func (m *mockCouponRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Coupon, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, domain.ErrCouponNotFound
}

func (m *mockCouponRepo) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	if m.getByCodeFunc != nil {
		return m.getByCodeFunc(ctx, code)
	}
	return nil, domain.ErrCouponNotFound
}

// catalogOf returns a catalog mock serving exactly the given products.
func catalogOf(products ...domain.Product) *mockCatalog {
	return &mockCatalog{
		getByIDsFunc: func(ctx context.Context, ids []uuid.UUID) ([]domain.Product, error) {
			var out []domain.Product
			for _, id := range ids {
				for _, p := range products {
					if p.ID == id {
						out = append(out, p)
					}
				}
			}
			return out, nil
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupEngine(t *testing.T, catalog domain.CatalogRepository, coupons domain.CouponRepository) *cart.Engine {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := session.NewRedisStore(client, time.Hour)
	if coupons == nil {
		coupons = &mockCouponRepo{}
	}
	return cart.NewEngine(store, catalog, coupon.NewResolver(coupons, testLogger()), testLogger())
}

func product(price string) domain.Product {
	return domain.Product{
		ID:        uuid.New(),
		Name:      "Single Origin Beans",
		Slug:      "single-origin-beans",
		Price:     money.MustParse(price),
		Available: true,
	}
}

func TestLoad_AbsentSessionIsEmptyCart(t *testing.T) {
	e := setupEngine(t, catalogOf(), nil)
	ctx := context.Background()

	c, err := e.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.Equal(t, 0, c.ItemCount())
	assert.True(t, c.Total().IsZero())

	// Loading must not create state
	c, err = e.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestAdd_AccumulatesQuantity(t *testing.T) {
	p := product("9.99")
	e := setupEngine(t, catalogOf(p), nil)
	ctx := context.Background()

	_, err := e.Add(ctx, "sess-1", p, 2, false)
	require.NoError(t, err)

	c, err := e.Add(ctx, "sess-1", p, 3, false)
	require.NoError(t, err)

	assert.Equal(t, 5, c.Lines[p.ID].Quantity)
	assert.Equal(t, 5, c.ItemCount())
}

func TestAdd_OverrideReplacesQuantity(t *testing.T) {
	p := product("9.99")
	e := setupEngine(t, catalogOf(p), nil)
	ctx := context.Background()

	_, err := e.Add(ctx, "sess-1", p, 5, false)
	require.NoError(t, err)

	c, err := e.Add(ctx, "sess-1", p, 2, true)
	require.NoError(t, err)

	assert.Equal(t, 2, c.Lines[p.ID].Quantity)
}

func TestAdd_RejectsQuantityBelowOne(t *testing.T) {
	p := product("9.99")
	e := setupEngine(t, catalogOf(p), nil)
	ctx := context.Background()

	for _, quantity := range []int{0, -1, -100} {
		_, err := e.Add(ctx, "sess-1", p, quantity, false)
		assert.ErrorIs(t, err, cart.ErrInvalidQuantity, "quantity %d", quantity)
	}

	c, err := e.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty(), "rejected adds must not write")
}

func TestAdd_PriceSnapshotSurvivesCatalogChange(t *testing.T) {
	p := product("10.00")
	e := setupEngine(t, catalogOf(p), nil)
	ctx := context.Background()

	_, err := e.Add(ctx, "sess-1", p, 1, false)
	require.NoError(t, err)

	// Catalog price changes after the line exists
	p.Price = money.MustParse("12.00")

	c, err := e.Add(ctx, "sess-1", p, 1, false)
	require.NoError(t, err)
	assert.Equal(t, "10.00", c.Lines[p.ID].UnitPrice.String(),
		"existing line keeps its add-time snapshot")
	assert.Equal(t, "20.00", c.Total().StringFixed())

	// Remove and re-add: the snapshot is taken fresh
	_, err = e.Remove(ctx, "sess-1", p.ID)
	require.NoError(t, err)

	c, err = e.Add(ctx, "sess-1", p, 1, false)
	require.NoError(t, err)
	assert.Equal(t, "12.00", c.Lines[p.ID].UnitPrice.String())
}

func TestRemove_AbsentProductIsNoOp(t *testing.T) {
	p := product("9.99")
	e := setupEngine(t, catalogOf(p), nil)
	ctx := context.Background()

	_, err := e.Add(ctx, "sess-1", p, 1, false)
	require.NoError(t, err)

	c, err := e.Remove(ctx, "sess-1", uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 1, c.ItemCount(), "removing an unknown product changes nothing")
}

func TestClear_ThenLoadIsEmpty(t *testing.T) {
	p := product("9.99")
	e := setupEngine(t, catalogOf(p), nil)
	ctx := context.Background()

	_, err := e.Add(ctx, "sess-1", p, 3, false)
	require.NoError(t, err)

	require.NoError(t, e.Clear(ctx, "sess-1"))

	c, err := e.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestResolve_JoinsAgainstCatalog(t *testing.T) {
	p1 := product("9.99")
	p2 := product("5.00")
	e := setupEngine(t, catalogOf(p1, p2), nil)
	ctx := context.Background()

	_, err := e.Add(ctx, "sess-1", p1, 2, false)
	require.NoError(t, err)
	c, err := e.Add(ctx, "sess-1", p2, 1, false)
	require.NoError(t, err)

	items, err := e.Resolve(ctx, c)
	require.NoError(t, err)
	require.Len(t, items, 2)

	byID := make(map[uuid.UUID]cart.ResolvedItem)
	for _, item := range items {
		byID[item.Product.ID] = item
	}
	assert.Equal(t, "19.98", byID[p1.ID].TotalPrice.StringFixed())
	assert.Equal(t, "5.00", byID[p2.ID].TotalPrice.StringFixed())
	assert.Equal(t, "24.98", c.Total().StringFixed())

	// Resolve is a read-only join: repeating it must not touch stored state
	_, err = e.Resolve(ctx, c)
	require.NoError(t, err)
	reloaded, err := e.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "24.98", reloaded.Total().StringFixed())
}

func TestResolve_SkipsMissingProducts(t *testing.T) {
	p1 := product("9.99")
	p2 := product("5.00")
	// Catalog only knows p1; p2 has been deleted since it was added
	e := setupEngine(t, catalogOf(p1), nil)
	ctx := context.Background()

	_, err := e.Add(ctx, "sess-1", p1, 2, false)
	require.NoError(t, err)
	c, err := e.Add(ctx, "sess-1", p2, 1, false)
	require.NoError(t, err)

	items, err := e.Resolve(ctx, c)
	require.NoError(t, err)
	require.Len(t, items, 1, "line for the vanished product is skipped, not an error")
	assert.Equal(t, p1.ID, items[0].Product.ID)

	// Total still counts the orphaned line until it is removed
	assert.Equal(t, "24.98", c.Total().StringFixed())
}

func TestApplyCoupon_StoresReferenceAndDiscounts(t *testing.T) {
	p := product("200.00")
	couponID := uuid.New()
	repo := &mockCouponRepo{
		getByCodeFunc: func(ctx context.Context, code string) (*domain.Coupon, error) {
			return &domain.Coupon{
				ID:              couponID,
				Code:            "SUMMER10",
				DiscountPercent: 10,
				ValidFrom:       time.Now().Add(-time.Hour),
				ValidTo:         time.Now().Add(time.Hour),
				Active:          true,
			}, nil
		},
	}
	repo.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*domain.Coupon, error) {
		if id != couponID {
			return nil, domain.ErrCouponNotFound
		}
		return repo.getByCodeFunc(ctx, "SUMMER10")
	}

	e := setupEngine(t, catalogOf(p), repo)
	ctx := context.Background()

	_, err := e.Add(ctx, "sess-1", p, 1, false)
	require.NoError(t, err)

	c, err := e.ApplyCoupon(ctx, "sess-1", "SUMMER10")
	require.NoError(t, err)
	require.True(t, c.CouponID.Valid)
	assert.Equal(t, couponID, c.CouponID.UUID)

	assert.Equal(t, "20.00", e.Discount(ctx, c).StringFixed())
	assert.Equal(t, "180.00", e.TotalAfterDiscount(ctx, c).StringFixed())
}

func TestApplyCoupon_ExpiredCodeStoresNothing(t *testing.T) {
	p := product("50.00")
	repo := &mockCouponRepo{
		getByCodeFunc: func(ctx context.Context, code string) (*domain.Coupon, error) {
			return &domain.Coupon{
				ID:              uuid.New(),
				Code:            code,
				DiscountPercent: 10,
				ValidFrom:       time.Now().Add(-48 * time.Hour),
				ValidTo:         time.Now().Add(-24 * time.Hour),
				Active:          true,
			}, nil
		},
	}

	e := setupEngine(t, catalogOf(p), repo)
	ctx := context.Background()

	_, err := e.Add(ctx, "sess-1", p, 1, false)
	require.NoError(t, err)

	_, err = e.ApplyCoupon(ctx, "sess-1", "OLD")
	require.ErrorIs(t, err, domain.ErrCouponExpired)

	c, err := e.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, c.CouponID.Valid, "rejected coupon must not be stored")
}

func TestApplyCoupon_UnknownCode(t *testing.T) {
	e := setupEngine(t, catalogOf(), &mockCouponRepo{})
	ctx := context.Background()

	_, err := e.ApplyCoupon(ctx, "sess-1", "NOPE")
	assert.ErrorIs(t, err, domain.ErrCouponNotFound)
}

func TestRemoveCoupon_LeavesLinesIntact(t *testing.T) {
	p := product("50.00")
	repo := &mockCouponRepo{
		getByCodeFunc: func(ctx context.Context, code string) (*domain.Coupon, error) {
			return &domain.Coupon{
				ID:              uuid.New(),
				Code:            code,
				DiscountPercent: 10,
				ValidFrom:       time.Now().Add(-time.Hour),
				ValidTo:         time.Now().Add(time.Hour),
				Active:          true,
			}, nil
		},
	}

	e := setupEngine(t, catalogOf(p), repo)
	ctx := context.Background()

	_, err := e.Add(ctx, "sess-1", p, 2, false)
	require.NoError(t, err)
	_, err = e.ApplyCoupon(ctx, "sess-1", "SUMMER10")
	require.NoError(t, err)

	c, err := e.RemoveCoupon(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, c.CouponID.Valid)
	assert.Equal(t, 2, c.ItemCount())
}

func TestDiscount_MissingCouponMeansZero(t *testing.T) {
	p := product("50.00")
	e := setupEngine(t, catalogOf(p), &mockCouponRepo{})
	ctx := context.Background()

	c, err := e.Add(ctx, "sess-1", p, 1, false)
	require.NoError(t, err)

	assert.True(t, e.Discount(ctx, c).IsZero())
	assert.Equal(t, "50.00", e.TotalAfterDiscount(ctx, c).StringFixed())
}
