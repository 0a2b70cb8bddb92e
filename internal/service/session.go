package service

import (
	"sync"
	"time"

	"basketbay/internal/cart"
	"basketbay/internal/models"
	"basketbay/internal/notify"
)

// Session is one shopper's client-side state. The ledger owns the cart and
// the session service owns identity; the notification queue is shared.
type Session struct {
	ID            string
	Ledger        *cart.Ledger
	Notifications *notify.Queue
	CreatedAt     time.Time

	mu           sync.RWMutex
	identity     models.Identity
	admin        bool
	pendingEmail string
	page         int
	sort         string
	totalPages   int
	recent       []models.Order
	lastSeen     time.Time
}

func newSession(id string, capacity int, now time.Time) *Session {
	q := notify.NewQueue(capacity)
	return &Session{
		ID:            id,
		Ledger:        cart.NewLedger(q),
		Notifications: q,
		CreatedAt:     now,
		page:          1,
		sort:          models.SortLatest,
		totalPages:    1,
		recent:        []models.Order{},
		lastSeen:      now,
	}
}

// Identity returns the logged-in customer, or the zero identity.
func (s *Session) Identity() models.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// IsAdmin reports whether the admin password was accepted for this session
func (s *Session) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.admin
}

// Listing returns the current catalog page, page count and sort
func (s *Session) Listing() (page, totalPages int, sort string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page, s.totalPages, s.sort
}

// RecentOrders returns a copy of the session's recent orders, newest first.
func (s *Session) RecentOrders() []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Order, len(s.recent))
	copy(out, s.recent)
	return out
}

// LastSeen is the time of the last request on this session
func (s *Session) LastSeen() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

func (s *Session) touch(at time.Time) {
	s.mu.Lock()
	s.lastSeen = at
	s.mu.Unlock()
}

func (s *Session) setIdentity(id models.Identity) {
	s.mu.Lock()
	s.identity = id
	s.pendingEmail = ""
	if id.IsAdmin {
		s.admin = true
	}
	s.mu.Unlock()
}

func (s *Session) setAdmin(v bool) {
	s.mu.Lock()
	s.admin = v
	s.mu.Unlock()
}

func (s *Session) setPendingEmail(email string) {
	s.mu.Lock()
	s.pendingEmail = email
	s.mu.Unlock()
}

func (s *Session) getPendingEmail() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingEmail
}

func (s *Session) setListing(page, totalPages int, sort string) {
	s.mu.Lock()
	s.page = page
	s.totalPages = totalPages
	s.sort = sort
	s.mu.Unlock()
}

func (s *Session) setRecent(orders []models.Order) {
	if orders == nil {
		orders = []models.Order{}
	}
	s.mu.Lock()
	s.recent = orders
	s.mu.Unlock()
}

// prependRecent puts order at the head of the list and returns the new list
func (s *Session) prependRecent(order models.Order) []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]models.Order, 0, len(s.recent)+1)
	next = append(next, order)
	next = append(next, s.recent...)
	s.recent = next
	out := make([]models.Order, len(next))
	copy(out, next)
	return out
}

// logout forgets identity and recent orders; the cart survives.
func (s *Session) logout() models.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.identity
	s.identity = models.Identity{}
	s.admin = false
	s.pendingEmail = ""
	s.recent = []models.Order{}
	return prev
}
