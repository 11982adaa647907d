package httpserver

import (
	"context"
	"errors"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/auth"
	"storefront/internal/domain"
	cartsvc "storefront/internal/service/cart"
	customersvc "storefront/internal/service/customer"
	inventorysvc "storefront/internal/service/inventory"
	ordersvc "storefront/internal/service/order"
	paymentsvc "storefront/internal/service/payment"
	promotionsvc "storefront/internal/service/promotion"
	shippingsvc "storefront/internal/service/shipping"
)

type CustomerService interface {
	Register(ctx context.Context, in customersvc.RegisterInput) (*domain.Customer, error)
	Get(ctx context.Context, id int64) (*domain.Customer, error)
}

type CatalogService interface {
	ListVariants(ctx context.Context, limit, offset int) ([]domain.Variant, error)
	GetVariant(ctx context.Context, id int64) (*domain.Variant, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

type CartService interface {
	AddLine(ctx context.Context, userID int64, in cartsvc.AddLineInput) (*domain.Cart, error)
	GetLines(ctx context.Context, userID int64) (*domain.Cart, error)
	UpdateLineQty(ctx context.Context, userID, lineID, qty int64) (*domain.Cart, error)
	RemoveLine(ctx context.Context, userID, lineID int64) (*domain.Cart, error)
	Clear(ctx context.Context, userID int64) error
}

type OrderService interface {
	PlaceOrder(ctx context.Context, in ordersvc.PlaceOrderInput) (*domain.Order, error)
	Get(ctx context.Context, userID, orderID int64) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Order, error)
	TransitionStatus(ctx context.Context, orderID int64, to domain.OrderStatus, actor string) (*domain.Order, error)
	CreatePaymentIntent(ctx context.Context, userID int64, promotionCode string) (*ordersvc.PaymentIntent, error)
}

type PaymentService interface {
	HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (*paymentsvc.Result, error)
}

type PromotionService interface {
	Evaluate(ctx context.Context, code string, userID int64, cartTotal decimal.Decimal, items []promotionsvc.Item) (*promotionsvc.Evaluation, error)
	Create(ctx context.Context, p domain.Promotion) (*domain.Promotion, error)
}

type InventoryService interface {
	ApplyMovement(ctx context.Context, in inventorysvc.MovementInput) (*inventorysvc.MovementResult, error)
	ListMovements(ctx context.Context, variantID int64, limit int) ([]domain.StockMovement, error)
	GetStock(ctx context.Context, variantID int64) (int64, error)
}

type ShippingService interface {
	Quote(ctx context.Context, req shippingsvc.QuoteRequest) shippingsvc.Quote
	ValidateAddress(ctx context.Context, postcode, country string) shippingsvc.AddressResult
}

// Deps groups the services the router needs.
type Deps struct {
	Verifier     auth.Verifier
	CustomerSvc  CustomerService
	CatalogSvc   CatalogService
	CartSvc      CartService
	OrderSvc     OrderService
	PaymentSvc   PaymentService
	PromotionSvc PromotionService
	InventorySvc InventoryService
	ShippingSvc  ShippingService
	CORSOrigins  []string
}

func (d Deps) validate() error {
	switch {
	case d.Verifier == nil:
		return errors.New("httpserver: token verifier required")
	case d.CustomerSvc == nil, d.CatalogSvc == nil, d.CartSvc == nil, d.OrderSvc == nil:
		return errors.New("httpserver: customer, catalog, cart and order services required")
	case d.PaymentSvc == nil, d.PromotionSvc == nil, d.InventorySvc == nil, d.ShippingSvc == nil:
		return errors.New("httpserver: payment, promotion, inventory and shipping services required")
	}
	return nil
}

type handlers struct {
	Deps
	logger *zap.Logger
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, db Pinger, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handlers{Deps: deps, logger: logger}

	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(requestID(), accessLog(logger), recovery(logger))
	if len(deps.CORSOrigins) > 0 {
		cfg := cors.DefaultConfig()
		cfg.AllowOrigins = deps.CORSOrigins
		cfg.AddAllowHeaders("Authorization")
		cfg.AddExposeHeaders(requestIDHeader)
		router.Use(cors.New(cfg))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	router.POST("/customers", h.registerCustomer)
	router.GET("/variants", h.listVariants)
	router.GET("/variants/:id", h.getVariant)
	router.GET("/categories", h.listCategories)
	router.GET("/shipping/quote", h.shippingQuote)
	router.GET("/shipping/validate-address", h.validateAddress)
	router.POST("/webhooks/payments", h.paymentWebhook)

	authed := router.Group("/", auth.Middleware(deps.Verifier))
	authed.GET("/me", h.me)

	authed.GET("/cart", h.getCart)
	authed.POST("/cart/lines", h.addCartLine)
	authed.PATCH("/cart/lines/:id", h.updateCartLine)
	authed.DELETE("/cart/lines/:id", h.removeCartLine)
	authed.DELETE("/cart", h.clearCart)

	authed.POST("/checkout/payment-intent", h.createPaymentIntent)
	authed.POST("/orders", h.placeOrder)
	authed.GET("/orders", h.listOrders)
	authed.GET("/orders/:id", h.getOrder)

	authed.POST("/promotions/evaluate", h.evaluatePromotion)

	admin := authed.Group("/admin", auth.RequireAdmin())
	admin.PATCH("/orders/:id/status", h.transitionOrder)
	admin.POST("/variants/:id/movements", h.applyMovement)
	admin.GET("/variants/:id/movements", h.listMovements)
	admin.GET("/variants/:id/stock", h.getStock)
	admin.POST("/promotions", h.createPromotion)

	return router, nil
}
