package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"basketbay/internal/models"
	"basketbay/internal/notify"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	mu        sync.Mutex
	page      models.ProductPage
	err       error
	listCalls int

	entry    models.CatalogEntry
	stockErr error
	deleted  []models.ProductID
	added    []models.NewProduct
}

func (f *fakeCatalog) ListProducts(_ context.Context, page, limit int, sort string) (models.ProductPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.err != nil {
		return models.ProductPage{}, f.err
	}
	p := f.page
	p.Page = page
	p.Sort = sort
	if p.TotalPages == 0 {
		p.TotalPages = 1
	}
	return p, nil
}

func (f *fakeCatalog) AddProduct(_ context.Context, _ string, p models.NewProduct) (models.CatalogEntry, error) {
	f.added = append(f.added, p)
	return f.entry, f.stockErr
}

func (f *fakeCatalog) DeleteProduct(_ context.Context, _ string, id models.ProductID) error {
	if f.stockErr != nil {
		return f.stockErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeCatalog) IncreaseStock(_ context.Context, _ string, _ models.ProductID) (models.CatalogEntry, error) {
	return f.entry, f.stockErr
}

func (f *fakeCatalog) DecreaseStock(_ context.Context, _ string, _ models.ProductID) (models.CatalogEntry, error) {
	return f.entry, f.stockErr
}

type fakeOrders struct {
	placed      []models.OrderRequest
	keys        []string
	placeCtxErr error
	onPlace     func()

	order models.Order
	msg   string
	err   error

	customer    []models.Order
	customerErr error
	all         []models.Order
	allErr      error
}

func (f *fakeOrders) PlaceOrder(ctx context.Context, _ string, req models.OrderRequest, key string) (models.Order, string, error) {
	f.placed = append(f.placed, req)
	f.keys = append(f.keys, key)
	f.placeCtxErr = ctx.Err()
	if f.onPlace != nil {
		f.onPlace()
	}
	if f.err != nil {
		return models.Order{}, "", f.err
	}
	o := f.order
	o.CustomerID = req.CustomerID
	o.Products = req.Products
	o.TotalAmount = req.TotalAmount
	o.PaymentMethod = req.PaymentMethod
	o.PaymentDetails = req.PaymentDetails
	return o, f.msg, nil
}

func (f *fakeOrders) CustomerOrders(context.Context, string, string) ([]models.Order, error) {
	return f.customer, f.customerErr
}

func (f *fakeOrders) AllOrders(context.Context, string) ([]models.Order, error) {
	return f.all, f.allErr
}

type fakePayments struct {
	gateway    models.GatewayOrder
	gatewayErr error
	status     string
	verifyErr  error
	verified   []models.PaymentReceipt
	onVerify   func()
}

func (f *fakePayments) CreateGatewayOrder(context.Context, string, int64) (models.GatewayOrder, error) {
	return f.gateway, f.gatewayErr
}

func (f *fakePayments) VerifyPayment(_ context.Context, _ string, r models.PaymentReceipt) (string, error) {
	f.verified = append(f.verified, r)
	if f.onVerify != nil {
		f.onVerify()
	}
	return f.status, f.verifyErr
}

type fakeAuth struct {
	email     string
	findErr   error
	sendErr   error
	sent      []string
	otpOK     bool
	verifyErr error
	identity  models.Identity
	loginErr  error
	signupMsg string
	signupErr error
	adminOK   bool
	adminMsg  string
	adminErr  error
}

func (f *fakeAuth) FindEmailByMobile(context.Context, string) (string, error) {
	return f.email, f.findErr
}

func (f *fakeAuth) SendOTP(_ context.Context, email string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, email)
	return nil
}

func (f *fakeAuth) VerifyOTP(context.Context, string, string) (bool, error) {
	return f.otpOK, f.verifyErr
}

func (f *fakeAuth) OTPLogin(context.Context, string) (models.Identity, error) {
	return f.identity, f.loginErr
}

func (f *fakeAuth) Signup(context.Context, models.SignupForm) (models.Identity, string, error) {
	return f.identity, f.signupMsg, f.signupErr
}

func (f *fakeAuth) AdminLogin(context.Context, string) (bool, string, error) {
	return f.adminOK, f.adminMsg, f.adminErr
}

type fakeCache struct {
	mu      sync.Mutex
	saved   map[string][]models.Order
	err     error
	cleared []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{saved: map[string][]models.Order{}}
}

func (f *fakeCache) SaveRecentOrders(_ context.Context, id string, orders []models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved[id] = orders
	return nil
}

func (f *fakeCache) LoadRecentOrders(_ context.Context, id string) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saved[id], f.err
}

func (f *fakeCache) ClearRecentOrders(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.saved, id)
	f.cleared = append(f.cleared, id)
	return nil
}

type fakeReceipts struct {
	claimed  map[string]bool
	err      error
	released []string
}

func newFakeReceipts() *fakeReceipts {
	return &fakeReceipts{claimed: map[string]bool{}}
}

func (f *fakeReceipts) ClaimReceipt(_ context.Context, id string, _ time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.claimed[id] {
		return false, nil
	}
	f.claimed[id] = true
	return true, nil
}

func (f *fakeReceipts) ReleaseReceipt(_ context.Context, id string) error {
	delete(f.claimed, id)
	f.released = append(f.released, id)
	return nil
}

type fakeJournal struct {
	attempts map[string]*models.CheckoutAttempt
	states   []string
	err      error
}

func newFakeJournal() *fakeJournal {
	return &fakeJournal{attempts: map[string]*models.CheckoutAttempt{}}
}

func (f *fakeJournal) CreateAttempt(_ context.Context, a *models.CheckoutAttempt) error {
	if f.err != nil {
		return f.err
	}
	cp := *a
	f.attempts[a.ID] = &cp
	f.states = append(f.states, a.State)
	return nil
}

func (f *fakeJournal) UpdateAttempt(_ context.Context, id, state, method, orderID, reason string) error {
	if f.err != nil {
		return f.err
	}
	a, ok := f.attempts[id]
	if !ok {
		return models.ErrNotFound
	}
	a.State = state
	if method != "" {
		a.PaymentMethod = method
	}
	if orderID != "" {
		a.OrderID = orderID
	}
	if reason != "" {
		a.Reason = reason
	}
	f.states = append(f.states, state)
	return nil
}

func (f *fakeJournal) GetAttempt(_ context.Context, id string) (*models.CheckoutAttempt, error) {
	a, ok := f.attempts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeJournal) ListAttemptsByCustomer(_ context.Context, customerID string, limit int) ([]models.CheckoutAttempt, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []models.CheckoutAttempt{}
	for _, a := range f.attempts {
		if a.CustomerID == customerID {
			out = append(out, *a)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeEvents struct {
	started   []*models.CheckoutStartedEvent
	cancelled []*models.CheckoutCancelledEvent
	placed    []*models.OrderPlacedEvent
	failed    []*models.OrderSubmissionFailedEvent
	stock     []*models.StockAdjustedEvent
	err       error
}

func (f *fakeEvents) PublishCheckoutStarted(_ context.Context, e *models.CheckoutStartedEvent) error {
	f.started = append(f.started, e)
	return f.err
}

func (f *fakeEvents) PublishCheckoutCancelled(_ context.Context, e *models.CheckoutCancelledEvent) error {
	f.cancelled = append(f.cancelled, e)
	return f.err
}

func (f *fakeEvents) PublishOrderPlaced(_ context.Context, e *models.OrderPlacedEvent) error {
	f.placed = append(f.placed, e)
	return f.err
}

func (f *fakeEvents) PublishOrderSubmissionFailed(_ context.Context, e *models.OrderSubmissionFailedEvent) error {
	f.failed = append(f.failed, e)
	return f.err
}

func (f *fakeEvents) PublishStockAdjusted(_ context.Context, e *models.StockAdjustedEvent) error {
	f.stock = append(f.stock, e)
	return f.err
}

// env wires every service against fakes
type env struct {
	catalog  *fakeCatalog
	orders   *fakeOrders
	payments *fakePayments
	auth     *fakeAuth
	cache    *fakeCache
	receipts *fakeReceipts
	journal  *fakeJournal
	events   *fakeEvents

	history  *HistoryService
	sessions *SessionService
	carts    *CartService
	checkout *CheckoutService
	admin    *AdminService
}

var (
	tea = models.CatalogEntry{
		ID:              "tea",
		Name:            "Tea",
		UnitPrice:       decimal.NewFromInt(100),
		DiscountPercent: decimal.NewFromInt(10),
		AvailableStock:  5,
	}
	mug = models.CatalogEntry{
		ID:             "mug",
		Name:           "Mug",
		UnitPrice:      decimal.NewFromInt(50),
		AvailableStock: 3,
	}
	asha = models.Identity{CustomerID: "c1", FirstName: "Asha", LastName: "Rao", Email: "asha@example.in", Token: "jwt-1"}
)

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		catalog:  &fakeCatalog{page: models.ProductPage{Products: []models.CatalogEntry{tea, mug}, TotalPages: 2}},
		orders:   &fakeOrders{order: models.Order{ID: "o1", Status: "placed", CreatedAt: time.Now()}, msg: "Order placed successfully!"},
		payments: &fakePayments{gateway: models.GatewayOrder{ID: "order_gw", Amount: 33000, Currency: "INR"}, status: "success"},
		auth:     &fakeAuth{identity: asha, otpOK: true},
		cache:    newFakeCache(),
		receipts: newFakeReceipts(),
		journal:  newFakeJournal(),
		events:   &fakeEvents{},
	}
	e.history = NewHistoryService(e.orders, e.cache)
	e.sessions = NewSessionService(e.auth, e.history, 32)
	e.carts = NewCartService(e.catalog, 6)
	e.checkout = NewCheckoutService(CheckoutDeps{
		Catalog:  e.catalog,
		Orders:   e.orders,
		Payments: e.payments,
		Receipts: e.receipts,
		Journal:  e.journal,
		Events:   e.events,
		History:  e.history,
	}, time.Hour, 6)
	e.sessions.SetCanceller(e.checkout)
	e.admin = NewAdminService(e.catalog, e.orders, e.events, 6)
	return e
}

// shopper returns a logged-in session holding 2 tea and 3 mugs (total 330).
func (e *env) shopper(t *testing.T) *Session {
	t.Helper()
	sess := e.sessions.Create()
	sess.setIdentity(asha)

	_, err := e.carts.Browse(context.Background(), sess, 1, models.SortLatest)
	require.NoError(t, err)
	for _, id := range []models.ProductID{"tea", "tea", "mug", "mug", "mug"} {
		require.NoError(t, e.carts.Add(sess, id))
	}
	sess.Notifications.Drain()
	return sess
}

func messages(q *notify.Queue) []string {
	var out []string
	for _, n := range q.Drain() {
		out = append(out, n.Message)
	}
	return out
}
