package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"basketbay/internal/backend"
	"basketbay/internal/cart"
	"basketbay/internal/models"
	"basketbay/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionService owns the session registry and every shopper identity.
type SessionService struct {
	auth     AuthAPI
	history  *HistoryService
	capacity int
	checkout CheckoutCanceller

	mu       sync.RWMutex
	sessions map[string]*Session

	logger *zap.Logger
	now    func() time.Time
}

// NewSessionService creates a session service. capacity bounds each
// session's notification queue.
func NewSessionService(auth AuthAPI, history *HistoryService, capacity int) *SessionService {
	return &SessionService{
		auth:     auth,
		history:  history,
		capacity: capacity,
		sessions: make(map[string]*Session),
		logger:   util.GetLogger(),
		now:      time.Now,
	}
}

// SetCanceller routes checkouts abandoned by logout or expiry through the
// checkout flow so they are journaled and published like any other
// cancellation.
func (ss *SessionService) SetCanceller(c CheckoutCanceller) {
	ss.checkout = c
}

// Create registers a fresh anonymous session
func (ss *SessionService) Create() *Session {
	sess := newSession(uuid.New().String(), ss.capacity, ss.now())

	ss.mu.Lock()
	ss.sessions[sess.ID] = sess
	ss.mu.Unlock()

	util.ActiveSessions.Inc()
	util.SessionLogger(sess.ID).Debug("Session created")
	return sess
}

// Get looks a session up and marks it as seen
func (ss *SessionService) Get(id string) (*Session, error) {
	ss.mu.RLock()
	sess, ok := ss.sessions[id]
	ss.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, models.ErrNotFound)
	}
	sess.touch(ss.now())
	return sess, nil
}

// Range calls fn for every live session
func (ss *SessionService) Range(fn func(*Session)) {
	ss.mu.RLock()
	list := make([]*Session, 0, len(ss.sessions))
	for _, s := range ss.sessions {
		list = append(list, s)
	}
	ss.mu.RUnlock()

	for _, s := range list {
		fn(s)
	}
}

// Len returns the number of live sessions
func (ss *SessionService) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}

// Sweep drops sessions idle for longer than idle. Sessions with an order
// submission in flight are kept; a checkout still awaiting payment is
// cancelled as expired.
func (ss *SessionService) Sweep(ctx context.Context, idle time.Duration) int {
	cutoff := ss.now().Add(-idle)

	ss.mu.Lock()
	var evicted []*Session
	for id, s := range ss.sessions {
		if s.LastSeen().After(cutoff) || s.Ledger.State() == cart.StateSubmitting {
			continue
		}
		delete(ss.sessions, id)
		evicted = append(evicted, s)
	}
	ss.mu.Unlock()

	for _, s := range evicted {
		if err := ss.abandonCheckout(ctx, s, ReasonSessionExpired); err != nil {
			ss.logger.Warn("Failed to cancel checkout of expired session",
				zap.String("session_id", s.ID),
				zap.Error(err))
		}
	}
	if len(evicted) > 0 {
		util.ActiveSessions.Sub(float64(len(evicted)))
		ss.logger.Info("Swept idle sessions", zap.Int("removed", len(evicted)))
	}
	return len(evicted)
}

func (ss *SessionService) abandonCheckout(ctx context.Context, sess *Session, reason string) error {
	if sess.Ledger.State() != cart.StateAwaitingPayment {
		return nil
	}
	if ss.checkout != nil {
		return ss.checkout.Abandon(ctx, sess, reason)
	}
	_, err := sess.Ledger.CancelCheckout()
	return err
}

// RequestOTP sends a login passcode. username may be an email or a
// registered 10-digit mobile number.
func (ss *SessionService) RequestOTP(ctx context.Context, sess *Session, username string) (string, error) {
	ctx, span := util.StartSpan(ctx, "SessionService.RequestOTP", sess.ID)
	defer span.End()

	username = strings.TrimSpace(username)
	if username == "" {
		sess.Notifications.Warning("Please enter email id")
		return "", fmt.Errorf("%w: username is empty", models.ErrValidation)
	}

	email := username
	if isMobile(username) {
		found, err := ss.auth.FindEmailByMobile(ctx, username)
		if err != nil || found == "" {
			ss.logger.Info("Mobile lookup failed",
				zap.String("session_id", sess.ID),
				zap.Error(err))
			sess.Notifications.Warning("No user found with this mobile number")
			if err == nil || errors.Is(err, models.ErrValidation) {
				err = models.ErrNotFound
			}
			return "", fmt.Errorf("find email by mobile: %w", err)
		}
		email = found
	}

	if err := ss.auth.SendOTP(ctx, email); err != nil {
		ss.logger.Warn("Failed to send OTP",
			zap.String("session_id", sess.ID),
			zap.Error(err))
		sess.Notifications.Error(messageOr(err, "Error sending OTP"))
		return "", fmt.Errorf("send otp: %w", err)
	}

	sess.setPendingEmail(email)
	sess.Notifications.Success("OTP sent to " + email)
	return email, nil
}

// VerifyOTP checks the passcode and logs the customer in. An empty email
// falls back to the address the last OTP was sent to.
func (ss *SessionService) VerifyOTP(ctx context.Context, sess *Session, email, otp string) (models.Identity, error) {
	ctx, span := util.StartSpan(ctx, "SessionService.VerifyOTP", sess.ID)
	defer span.End()

	email = strings.TrimSpace(email)
	if email == "" {
		email = sess.getPendingEmail()
	}
	if email == "" {
		sess.Notifications.Warning("Please enter email id")
		return models.Identity{}, fmt.Errorf("%w: no email to verify", models.ErrValidation)
	}
	if !isOTP(otp) {
		sess.Notifications.Warning("Enter 6-digit OTP")
		return models.Identity{}, fmt.Errorf("%w: otp must be 6 digits", models.ErrValidation)
	}

	ok, err := ss.auth.VerifyOTP(ctx, email, otp)
	if err != nil && !errors.Is(err, models.ErrValidation) {
		ss.logger.Warn("OTP verification failed", zap.String("session_id", sess.ID), zap.Error(err))
		sess.Notifications.Error("OTP verification failed")
		return models.Identity{}, fmt.Errorf("verify otp: %w", err)
	}
	if !ok {
		sess.Notifications.Warning("Invalid OTP")
		return models.Identity{}, fmt.Errorf("%w: invalid otp", models.ErrValidation)
	}

	id, err := ss.auth.OTPLogin(ctx, email)
	if err != nil {
		ss.logger.Warn("OTP login failed", zap.String("session_id", sess.ID), zap.Error(err))
		sess.Notifications.Error("OTP verification failed")
		return models.Identity{}, fmt.Errorf("otp login: %w", err)
	}

	ss.login(ctx, sess, id)
	sess.Notifications.Success(fmt.Sprintf("Welcome, %s!", id.FirstName))
	return id, nil
}

// Signup validates the form, checks its OTP and registers the customer.
func (ss *SessionService) Signup(ctx context.Context, sess *Session, form models.SignupForm) (models.Identity, error) {
	ctx, span := util.StartSpan(ctx, "SessionService.Signup", sess.ID)
	defer span.End()

	form.Email = strings.TrimSpace(form.Email)
	if err := ValidateSignup(form); err != nil {
		sess.Notifications.Warning("Please fill in all fields correctly.")
		return models.Identity{}, err
	}

	ok, err := ss.auth.VerifyOTP(ctx, form.Email, form.OTP)
	if err != nil && !errors.Is(err, models.ErrValidation) {
		ss.logger.Warn("Signup OTP verification failed", zap.String("session_id", sess.ID), zap.Error(err))
		sess.Notifications.Error("OTP verification failed")
		return models.Identity{}, fmt.Errorf("verify otp: %w", err)
	}
	if !ok {
		sess.Notifications.Warning("Invalid OTP")
		return models.Identity{}, fmt.Errorf("%w: invalid otp", models.ErrValidation)
	}

	id, msg, err := ss.auth.Signup(ctx, form)
	if err != nil {
		ss.logger.Warn("Signup failed", zap.String("session_id", sess.ID), zap.Error(err))
		sess.Notifications.Error(messageOr(err, "Signup failed"))
		return models.Identity{}, fmt.Errorf("signup: %w", err)
	}

	ss.login(ctx, sess, id)
	if msg == "" {
		msg = fmt.Sprintf("Welcome, %s!", id.FirstName)
	}
	sess.Notifications.Success(msg)
	return id, nil
}

// Logout forgets the customer and their recent orders. The cart is kept.
func (ss *SessionService) Logout(ctx context.Context, sess *Session) error {
	if sess.Ledger.State() == cart.StateSubmitting {
		return fmt.Errorf("%w: an order is being placed", models.ErrStateConflict)
	}
	if err := ss.abandonCheckout(ctx, sess, ReasonLogout); err != nil {
		return err
	}

	prev := sess.logout()
	if prev.Authenticated() {
		ss.history.Clear(ctx, prev.CustomerID)
		ss.logger.Info("Customer logged out",
			zap.String("session_id", sess.ID),
			zap.String("customer_id", prev.CustomerID))
	}
	return nil
}

// AdminLogin unlocks the admin panel for the session.
func (ss *SessionService) AdminLogin(ctx context.Context, sess *Session, password string) error {
	ctx, span := util.StartSpan(ctx, "SessionService.AdminLogin", sess.ID)
	defer span.End()

	if password == "" {
		sess.Notifications.Warning("Please enter the admin password")
		return fmt.Errorf("%w: password is empty", models.ErrValidation)
	}

	ok, msg, err := ss.auth.AdminLogin(ctx, password)
	if err != nil && !errors.Is(err, models.ErrValidation) {
		ss.logger.Warn("Admin login failed", zap.String("session_id", sess.ID), zap.Error(err))
		sess.Notifications.Error("Admin login failed")
		return fmt.Errorf("admin login: %w", err)
	}
	if !ok {
		sess.Notifications.Warning(messageOr(err, firstNonEmpty(msg, "Invalid admin password")))
		return fmt.Errorf("%w: admin password rejected", models.ErrValidation)
	}

	sess.setAdmin(true)
	sess.Notifications.Success(firstNonEmpty(msg, "Welcome, admin!"))
	return nil
}

func (ss *SessionService) login(ctx context.Context, sess *Session, id models.Identity) {
	sess.setIdentity(id)
	ss.logger.Info("Customer logged in",
		zap.String("session_id", sess.ID),
		zap.String("customer_id", id.CustomerID))

	// a failed refresh falls back to the cache inside Refresh
	_, _ = ss.history.Refresh(ctx, sess)
}

// messageOr prefers the backend's own message for err.
func messageOr(err error, fallback string) string {
	if msg := backend.MessageOf(err); msg != "" {
		return msg
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
