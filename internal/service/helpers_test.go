package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Skotchmaster/coop_market/internal/cache"
	"github.com/Skotchmaster/coop_market/internal/models"
	"github.com/Skotchmaster/coop_market/internal/payment"
	"github.com/Skotchmaster/coop_market/internal/repo"
	"github.com/Skotchmaster/coop_market/internal/search"
	"github.com/Skotchmaster/coop_market/internal/testutil"
	"github.com/Skotchmaster/coop_market/internal/transport"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeGateway struct {
	mu sync.Mutex

	chargeErr error
	delay     time.Duration
	statuses  map[string]string

	charges     []payment.ChargeRequest
	checkouts   int
	statusCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{statuses: map[string]string{}}
}

func (g *fakeGateway) wait(ctx context.Context) error {
	if g.delay == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(g.delay):
		return nil
	}
}

func (g *fakeGateway) Charge(ctx context.Context, req payment.ChargeRequest) (*payment.ChargeResponse, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.charges = append(g.charges, req)
	if g.chargeErr != nil {
		return nil, g.chargeErr
	}
	return &payment.ChargeResponse{
		StatusCode:        "201",
		TransactionID:     "gw-" + req.OrderID,
		OrderID:           req.OrderID,
		TransactionStatus: "pending",
		Actions: []payment.Action{
			{Name: "generate-qr-code", URL: "https://gw.test/qr/" + req.OrderID},
			{Name: "deeplink-redirect", URL: "gojek://pay/" + req.OrderID},
		},
		VANumbers: []payment.VANumber{{Bank: req.Bank, VANumber: "8800123"}},
	}, nil
}

func (g *fakeGateway) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutResponse, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checkouts++
	if g.chargeErr != nil {
		return nil, g.chargeErr
	}
	return &payment.CheckoutResponse{Token: "tok", RedirectURL: "https://gw.test/checkout/" + req.OrderID}, nil
}

func (g *fakeGateway) Status(ctx context.Context, orderID string) (*payment.StatusResponse, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statusCalls++
	if g.chargeErr != nil {
		return nil, g.chargeErr
	}
	return &payment.StatusResponse{OrderID: orderID, TransactionStatus: g.statuses[orderID]}, nil
}

func (g *fakeGateway) setStatus(orderID, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statuses[orderID] = status
}

func (g *fakeGateway) remoteCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.charges) + g.checkouts
}

type publishedEvent struct {
	topic, key, eventType string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) PublishEvent(_ context.Context, topic, key, eventType string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{topic, key, eventType})
	return nil
}

func (p *fakePublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.eventType == eventType {
			n++
		}
	}
	return n
}

type mapCache struct {
	mu    sync.Mutex
	views map[string]transport.PaymentStatusView
	gets  int
}

func (c *mapCache) Get(_ context.Context, orderID string) (*transport.PaymentStatusView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.views[orderID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return &v, nil
}

func (c *mapCache) Set(_ context.Context, v *transport.PaymentStatusView) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.views == nil {
		c.views = map[string]transport.PaymentStatusView{}
	}
	c.views[v.OrderID] = *v
	return nil
}

type memIndex struct {
	mu   sync.Mutex
	docs map[string]search.PaymentDoc
	err  error
}

func (m *memIndex) IndexPayment(_ context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.docs == nil {
		m.docs = map[string]search.PaymentDoc{}
	}
	m.docs[p.OrderID] = search.DocFromPayment(p)
	return nil
}

func (m *memIndex) SearchPayments(_ context.Context, q search.Query) (*search.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := &search.Result{}
	for _, d := range m.docs {
		if d.UserID != nil && *d.UserID == q.UserID {
			res.Docs = append(res.Docs, d)
		}
	}
	res.Total = int64(len(res.Docs))
	return res, nil
}

type fixture struct {
	db      *gorm.DB
	repo    *repo.GormRepo
	gw      *fakeGateway
	pub     *fakePublisher
	cache   *mapCache
	index   *memIndex
	carts   *CartService
	payment *PaymentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	r := &repo.GormRepo{DB: db}
	gw := newFakeGateway()
	pub := &fakePublisher{}
	idx := &memIndex{}
	c := &mapCache{}

	return &fixture{
		db:    db,
		repo:  r,
		gw:    gw,
		pub:   pub,
		cache: c,
		index: idx,
		carts: &CartService{Repo: r, Events: pub},
		payment: &PaymentService{
			Repo:                  r,
			Methods:               payment.NewRegistry(gw, uuid.NewString),
			Gateway:               gw,
			Events:                pub,
			Cache:                 c,
			Index:                 idx,
			GatewayTimeout:        2 * time.Second,
			MembershipFeeFallback: decimal.NewFromInt(15000),
		},
	}
}

func (f *fixture) cart(t *testing.T, id uint) *models.Cart {
	t.Helper()
	var c models.Cart
	require.NoError(t, f.db.Take(&c, id).Error)
	return &c
}

func (f *fixture) user(t *testing.T, id uint) *models.User {
	t.Helper()
	var u models.User
	require.NoError(t, f.db.Take(&u, id).Error)
	return &u
}

func (f *fixture) paymentCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Payment{}).Count(&n).Error)
	return n
}

var errGatewayDown = errors.New("connection refused")
