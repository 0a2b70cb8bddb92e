package api

import (
	"net/http"

	"basketbay/internal/models"

	"github.com/gin-gonic/gin"
)

type otpRequest struct {
	Username string `json:"username" binding:"required"`
}

type verifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp" binding:"required"`
}

type adminLoginRequest struct {
	Password string `json:"password" binding:"required"`
}

type addItemRequest struct {
	ProductID models.ProductID `json:"product_id" binding:"required"`
}

type resolveRequest struct {
	PaymentMethod models.PaymentMethod   `json:"payment_method" binding:"required"`
	Success       bool                   `json:"success"`
	Receipt       *models.PaymentReceipt `json:"receipt,omitempty"`
}

func (h *Handler) createSession(c *gin.Context) {
	sess := h.sessions.Create()
	c.Header(HeaderSessionID, sess.ID)
	c.JSON(http.StatusCreated, gin.H{"session_id": sess.ID})
}

func (h *Handler) getSession(c *gin.Context) {
	sess := session(c)
	page, totalPages, sort := sess.Listing()

	body := gin.H{
		"session_id":  sess.ID,
		"is_admin":    sess.IsAdmin(),
		"cart_state":  sess.Ledger.State(),
		"page":        page,
		"total_pages": totalPages,
		"sort":        sort,
	}
	if id := sess.Identity(); id.Authenticated() {
		body["user"] = id
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) requestOTP(c *gin.Context) {
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	email, err := h.sessions.RequestOTP(c.Request.Context(), session(c), req.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": email})
}

func (h *Handler) verifyOTP(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id, err := h.sessions.VerifyOTP(c.Request.Context(), session(c), req.Email, req.OTP)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": id})
}

func (h *Handler) signup(c *gin.Context) {
	var form models.SignupForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, err)
		return
	}

	id, err := h.sessions.Signup(c.Request.Context(), session(c), form)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": id})
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.sessions.Logout(c.Request.Context(), session(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) adminLogin(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.sessions.AdminLogin(c.Request.Context(), session(c), req.Password); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_admin": true})
}

func (h *Handler) listProducts(c *gin.Context) {
	page, err := h.carts.Browse(c.Request.Context(), session(c), queryInt(c, "page", 1), c.Query("sort"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, h.carts.View(session(c)))
}

func (h *Handler) addItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.mutateCart(c, h.carts.Add(session(c), req.ProductID))
}

func (h *Handler) incrementItem(c *gin.Context) {
	h.mutateCart(c, h.carts.Increment(session(c), models.ProductID(c.Param("id"))))
}

func (h *Handler) decrementItem(c *gin.Context) {
	h.mutateCart(c, h.carts.Decrement(session(c), models.ProductID(c.Param("id"))))
}

func (h *Handler) removeItem(c *gin.Context) {
	h.mutateCart(c, h.carts.Remove(session(c), models.ProductID(c.Param("id"))))
}

func (h *Handler) mutateCart(c *gin.Context, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.carts.View(session(c)))
}

func (h *Handler) startCheckout(c *gin.Context) {
	co, err := h.checkout.Checkout(c.Request.Context(), session(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"checkout":        co,
		"payment_methods": []models.PaymentMethod{models.PaymentMethodCashOnDelivery, models.PaymentMethodGateway},
	})
}

func (h *Handler) createGatewayOrder(c *gin.Context) {
	order, err := h.checkout.CreateGatewayOrder(c.Request.Context(), session(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) resolvePayment(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.checkout.ResolvePayment(c.Request.Context(), session(c), req.PaymentMethod, req.Success, req.Receipt)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": order})
}

func (h *Handler) cancelCheckout(c *gin.Context) {
	if err := h.checkout.Cancel(c.Request.Context(), session(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.carts.View(session(c)))
}

func (h *Handler) listAttempts(c *gin.Context) {
	attempts, err := h.checkout.Attempts(c.Request.Context(), session(c), queryInt(c, "limit", 20))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempts": attempts})
}

func (h *Handler) getAttempt(c *gin.Context) {
	a, err := h.checkout.Attempt(c.Request.Context(), session(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) recentOrders(c *gin.Context) {
	sess := session(c)
	if sess.Identity().Authenticated() {
		// on failure the cached list is served
		_, _ = h.history.Refresh(c.Request.Context(), sess)
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": sess.RecentOrders(),
		"days":   h.history.Grouped(sess),
	})
}

func (h *Handler) getNotifications(c *gin.Context) {
	q := session(c).Notifications
	body := gin.H{"pending": q.Pending()}
	if n, ok := q.Active(); ok {
		body["active"] = n
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) dismissNotification(c *gin.Context) {
	q := session(c).Notifications
	body := gin.H{}
	if n, ok := q.Dismiss(); ok {
		body["active"] = n
	}
	body["pending"] = q.Pending()
	c.JSON(http.StatusOK, body)
}
