package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/bakery-storefront/internal/core/domain"
	"github.com/rl1809/bakery-storefront/internal/core/service"
	"github.com/rl1809/bakery-storefront/internal/logger"
)

// Services are the storefront services the local view API reads from and
// dispatches to.
type Services struct {
	Session  *service.SessionService
	Cart     *service.CartStore
	Sync     *service.SyncController
	Catalog  *service.CatalogService
	Checkout *service.CheckoutService
	Orders   *service.OrderService

	// Metrics is mounted on /metrics when set.
	Metrics http.Handler
}

type HTTPHandler struct {
	svc    Services
	logger *zap.Logger
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type AddItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type CheckoutRequest struct {
	AddressID     string `json:"addressId"`
	DeliveryNotes string `json:"deliveryNotes" binding:"max=500"`
}

type SessionView struct {
	Authenticated bool         `json:"authenticated"`
	IsAdmin       bool         `json:"isAdmin"`
	User          *domain.User `json:"user,omitempty"`
}

type CartView struct {
	Lines     []service.CartLine `json:"lines"`
	Items     domain.Cart        `json:"items"`
	ItemCount int                `json:"itemCount"`
	Total     decimal.Decimal    `json:"total"`
	Loading   bool               `json:"loading"`
	SyncError string             `json:"syncError,omitempty"`
}

type SyncView struct {
	UserID    string `json:"userId,omitempty"`
	Loading   bool   `json:"loading"`
	LastError string `json:"lastError,omitempty"`
}

func NewHTTPHandler(svc Services, log *zap.Logger) *HTTPHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPHandler{svc: svc, logger: log.Named("http")}
}

func (h *HTTPHandler) Router() *gin.Engine {
	r := gin.New()
	r.Use(logger.RequestID(), logger.GinMiddleware(h.logger), logger.Recovery(h.logger))

	r.GET("/health", h.HealthCheck)
	if h.svc.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.svc.Metrics))
	}

	api := r.Group("/api")
	api.GET("/session", h.Session)
	api.GET("/cart", h.Cart)
	api.POST("/cart/items", h.AddItem)
	api.PUT("/cart/items/:productId", h.UpdateQuantity)
	api.DELETE("/cart/items/:productId", h.RemoveItem)
	api.DELETE("/cart", h.ClearCart)
	api.GET("/products", h.Products)
	api.GET("/products/:id", h.Product)
	api.POST("/checkout", h.Checkout)
	api.GET("/orders", h.Orders)
	return r
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Message: "ok", Data: h.syncView()})
}

func (h *HTTPHandler) Session(c *gin.Context) {
	user := h.svc.Session.CurrentUser()
	if user != nil {
		user.Token = ""
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: SessionView{
		Authenticated: h.svc.Session.IsAuthenticated(),
		IsAdmin:       h.svc.Session.IsAdmin(),
		User:          user,
	}})
}

func (h *HTTPHandler) Cart(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: h.cartView()})
}

func (h *HTTPHandler) AddItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeFail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if h.svc.Catalog.Loaded() {
		if _, ok := h.svc.Catalog.Lookup(req.ProductID); !ok {
			h.writeFail(c, http.StatusNotFound, "product not found")
			return
		}
	}
	h.dispatch(c, domain.AddItem(req.ProductID))
}

func (h *HTTPHandler) UpdateQuantity(c *gin.Context) {
	var req UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeFail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	h.dispatch(c, domain.UpdateQuantity(c.Param("productId"), *req.Quantity))
}

func (h *HTTPHandler) RemoveItem(c *gin.Context) {
	h.dispatch(c, domain.RemoveItem(c.Param("productId")))
}

func (h *HTTPHandler) ClearCart(c *gin.Context) {
	h.dispatch(c, domain.ClearCart())
}

func (h *HTTPHandler) Products(c *gin.Context) {
	if err := h.svc.Catalog.Load(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{
		"categories": h.svc.Catalog.Categories(),
		"products":   h.svc.Catalog.Filter(c.Query("category"), c.Query("search")),
	}})
}

func (h *HTTPHandler) Product(c *gin.Context) {
	p, err := h.svc.Catalog.Product(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: p})
}

func (h *HTTPHandler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.writeFail(c, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	order, err := h.svc.Checkout.PlaceOrder(c.Request.Context(), service.PlaceOrderInput{
		AddressID:     req.AddressID,
		DeliveryNotes: req.DeliveryNotes,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Message: "order placed", Data: order})
}

func (h *HTTPHandler) Orders(c *gin.Context) {
	orders, err := h.svc.Orders.History(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: orders})
}

// dispatch applies cmd locally and answers with the new cart. The remote
// write happens in the background.
func (h *HTTPHandler) dispatch(c *gin.Context, cmd domain.Command) {
	h.svc.Cart.Dispatch(cmd)
	c.JSON(http.StatusOK, Response{Success: true, Data: h.cartView()})
}

func (h *HTTPHandler) cartView() CartView {
	items := h.svc.Cart.Items()
	sum := service.Summarize(items, h.svc.Catalog)
	view := CartView{
		Lines:     sum.Lines,
		Items:     items,
		ItemCount: sum.ItemCount,
		Total:     sum.Total,
	}
	if h.svc.Sync != nil {
		sv := h.syncView()
		view.Loading = sv.Loading
		view.SyncError = sv.LastError
	}
	return view
}

func (h *HTTPHandler) syncView() SyncView {
	if h.svc.Sync == nil {
		return SyncView{}
	}
	st := h.svc.Sync.Status()
	v := SyncView{UserID: st.UserID, Loading: st.Loading}
	if st.LastError != nil {
		v.LastError = st.LastError.Error()
	}
	return v
}

func (h *HTTPHandler) writeFail(c *gin.Context, code int, message string) {
	c.JSON(code, Response{Success: false, Message: message})
}

func (h *HTTPHandler) writeError(c *gin.Context, err error) {
	code := http.StatusBadGateway
	message := err.Error()

	switch {
	case errors.Is(err, service.ErrNotAuthenticated):
		code = http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		code = http.StatusForbidden
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrNoAddress),
		errors.Is(err, service.ErrInvalidInput):
		code = http.StatusBadRequest
	case errors.Is(err, service.ErrProductNotFound):
		code = http.StatusNotFound
	default:
		switch status.Code(err) {
		case codes.Unauthenticated:
			code = http.StatusUnauthorized
		case codes.PermissionDenied:
			code = http.StatusForbidden
		case codes.NotFound:
			code = http.StatusNotFound
		case codes.InvalidArgument:
			code = http.StatusBadRequest
		}
	}

	if code >= 500 {
		_ = c.Error(err)
	}
	h.writeFail(c, code, message)
}
