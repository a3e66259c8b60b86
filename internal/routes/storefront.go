package routes

import (
	"github.com/tjhart/mercato/internal/handler/storefront"
	"github.com/tjhart/mercato/internal/router"
)

// StorefrontDeps holds the handlers the storefront routes need.
type StorefrontDeps struct {
	CartHandler     *storefront.CartHandler
	CheckoutHandler *storefront.CheckoutHandler
}

// RegisterStorefrontRoutes registers all customer-facing storefront routes.
func RegisterStorefrontRoutes(r *router.Router, deps StorefrontDeps) {
	// Shopping cart
	r.Get("/cart", deps.CartHandler.View)
	r.Post("/cart/add", deps.CartHandler.Add)
	r.Post("/cart/update", deps.CartHandler.Update)
	r.Post("/cart/remove", deps.CartHandler.Remove)
	r.Post("/cart/clear", deps.CartHandler.Clear)
	r.Post("/cart/coupon", deps.CartHandler.ApplyCoupon)
	r.Delete("/cart/coupon", deps.CartHandler.RemoveCoupon)

	// Checkout flow
	r.Post("/checkout", deps.CheckoutHandler.Create)
	r.Get("/orders/{id}", deps.CheckoutHandler.Get)
}
