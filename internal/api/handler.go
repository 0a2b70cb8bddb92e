package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"basketbay/internal/models"
	"basketbay/internal/service"
	"basketbay/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HeaderSessionID carries the shopper session on every storefront request
const HeaderSessionID = "X-Session-ID"

const sessionKey = "session"

// ReadinessCheck reports whether a dependency is usable
type ReadinessCheck func(ctx context.Context) error

// Services groups what the handlers drive
type Services struct {
	Sessions *service.SessionService
	Carts    *service.CartService
	Checkout *service.CheckoutService
	History  *service.HistoryService
	Admin    *service.AdminService
}

// Handler contains HTTP handlers
type Handler struct {
	sessions *service.SessionService
	carts    *service.CartService
	checkout *service.CheckoutService
	history  *service.HistoryService
	admin    *service.AdminService
	checks   map[string]ReadinessCheck
}

// NewHandler creates a new HTTP handler
func NewHandler(svc Services, checks map[string]ReadinessCheck) *Handler {
	if checks == nil {
		checks = map[string]ReadinessCheck{}
	}
	return &Handler{
		sessions: svc.Sessions,
		carts:    svc.Carts,
		checkout: svc.Checkout,
		history:  svc.History,
		admin:    svc.Admin,
		checks:   checks,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.POST("/sessions", h.createSession)

	s := v1.Group("", h.requireSession)
	{
		s.GET("/session", h.getSession)

		s.POST("/auth/otp", h.requestOTP)
		s.POST("/auth/verify", h.verifyOTP)
		s.POST("/auth/signup", h.signup)
		s.POST("/auth/logout", h.logout)
		s.POST("/auth/admin", h.adminLogin)

		s.GET("/products", h.listProducts)
		s.GET("/cart", h.getCart)
		s.POST("/cart/items", h.addItem)
		s.POST("/cart/items/:id/increment", h.incrementItem)
		s.POST("/cart/items/:id/decrement", h.decrementItem)
		s.DELETE("/cart/items/:id", h.removeItem)

		s.POST("/checkout", h.startCheckout)
		s.POST("/checkout/gateway-order", h.createGatewayOrder)
		s.POST("/checkout/resolve", h.resolvePayment)
		s.POST("/checkout/cancel", h.cancelCheckout)
		s.GET("/checkout/attempts", h.listAttempts)
		s.GET("/checkout/attempts/:id", h.getAttempt)

		s.GET("/orders/recent", h.recentOrders)

		s.GET("/notifications", h.getNotifications)
		s.POST("/notifications/dismiss", h.dismissNotification)
	}

	admin := s.Group("/admin", requireAdmin)
	{
		admin.GET("/products", h.adminProducts)
		admin.POST("/products", h.adminAddProduct)
		admin.DELETE("/products/:id", h.adminDeleteProduct)
		admin.PUT("/products/:id/increase", h.adminIncreaseStock)
		admin.PUT("/products/:id/decrease", h.adminDecreaseStock)
		admin.GET("/orders", h.adminOrders)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck runs every registered dependency check
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"sessions": h.sessions.Len(),
		"time":     time.Now().Unix(),
	})
}

func (h *Handler) requireSession(c *gin.Context) {
	id := c.GetHeader(HeaderSessionID)
	if id == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":   models.KindValidation,
			"message": "missing " + HeaderSessionID + " header",
		})
		return
	}

	sess, err := h.sessions.Get(id)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":   models.KindNotFound,
			"message": "unknown or expired session",
		})
		return
	}
	c.Set(sessionKey, sess)
	c.Next()
}

func requireAdmin(c *gin.Context) {
	if !session(c).IsAdmin() {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":   models.KindValidation,
			"message": "admin login required",
		})
		return
	}
	c.Next()
}

func session(c *gin.Context) *service.Session {
	return c.MustGet(sessionKey).(*service.Session)
}

// statusFor maps the error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch models.KindOf(err) {
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindStateConflict:
		return http.StatusConflict
	case models.KindGateway:
		return http.StatusPaymentRequired
	case models.KindNetwork:
		return http.StatusBadGateway
	case models.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the classified error along with the notification the
// failed request raised.
func respondError(c *gin.Context, err error) {
	body := gin.H{
		"error":   models.KindOf(err),
		"message": err.Error(),
	}
	var fe service.FieldErrors
	if errors.As(err, &fe) {
		body["fields"] = fe
	}
	if sess, ok := c.Get(sessionKey); ok {
		if n, ok := sess.(*service.Session).Notifications.Latest(); ok {
			body["notification"] = n
		}
	}
	c.JSON(statusFor(err), body)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   models.KindValidation,
		"message": "Invalid request body",
		"details": err.Error(),
	})
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
