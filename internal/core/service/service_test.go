package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zibanoo/commerce-core/internal/core/domain"
	"github.com/zibanoo/commerce-core/internal/core/ports"
)

// memStore is an in-memory ports.Store. Transact serializes writers under one
// mutex and restores a snapshot on error, mirroring the single-writer
// rollback semantics of the real store.
type memStore struct {
	mu sync.Mutex

	products  map[string]domain.Product
	promos    map[string]domain.Promotion
	cartLines map[string]domain.CartLine
	orders    map[string]domain.Order
	numbers   map[string]bool
	logs      []domain.StatusLogEntry
	logSeq    int64

	// failOnce maps an operation name to a number of injected transient
	// failures, consumed one per call.
	failOnce map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		products:  make(map[string]domain.Product),
		promos:    make(map[string]domain.Promotion),
		cartLines: make(map[string]domain.CartLine),
		orders:    make(map[string]domain.Order),
		numbers:   make(map[string]bool),
		failOnce:  make(map[string]int),
	}
}

type memTxKey struct{}

func inTx(ctx context.Context) bool {
	return ctx.Value(memTxKey{}) != nil
}

func (m *memStore) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	err := fn(context.WithValue(ctx, memTxKey{}, true))
	if err != nil {
		m.restore(snap)
	}
	return err
}

// lock acquires the store mutex for calls made outside a transaction; calls
// inside Transact already hold it.
func (m *memStore) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

type memSnapshot struct {
	products  map[string]domain.Product
	promos    map[string]domain.Promotion
	cartLines map[string]domain.CartLine
	orders    map[string]domain.Order
	numbers   map[string]bool
	logs      []domain.StatusLogEntry
	logSeq    int64
}

func (m *memStore) snapshot() memSnapshot {
	s := memSnapshot{
		products:  make(map[string]domain.Product, len(m.products)),
		promos:    make(map[string]domain.Promotion, len(m.promos)),
		cartLines: make(map[string]domain.CartLine, len(m.cartLines)),
		orders:    make(map[string]domain.Order, len(m.orders)),
		numbers:   make(map[string]bool, len(m.numbers)),
		logs:      append([]domain.StatusLogEntry(nil), m.logs...),
		logSeq:    m.logSeq,
	}
	for k, v := range m.products {
		s.products[k] = v
	}
	for k, v := range m.promos {
		s.promos[k] = v
	}
	for k, v := range m.cartLines {
		s.cartLines[k] = v
	}
	for k, v := range m.orders {
		v.Lines = append([]domain.OrderLine(nil), v.Lines...)
		s.orders[k] = v
	}
	for k, v := range m.numbers {
		s.numbers[k] = v
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.products = s.products
	m.promos = s.promos
	m.cartLines = s.cartLines
	m.orders = s.orders
	m.numbers = s.numbers
	m.logs = s.logs
	m.logSeq = s.logSeq
}

func (m *memStore) injected(op string) error {
	if m.failOnce[op] > 0 {
		m.failOnce[op]--
		return errTransient
	}
	return nil
}

var errTransient = &transientErr{}

type transientErr struct{}

func (*transientErr) Error() string { return "database is locked" }

func (m *memStore) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	defer m.lock(ctx)()
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}

func (m *memStore) UpdateProductStock(ctx context.Context, id string, stock int, active bool) error {
	defer m.lock(ctx)()
	if err := m.injected("UpdateProductStock"); err != nil {
		return err
	}
	p, ok := m.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.Stock = stock
	p.Active = active
	m.products[id] = p
	return nil
}

func (m *memStore) GetPromotion(ctx context.Context, id string) (*domain.Promotion, error) {
	defer m.lock(ctx)()
	p, ok := m.promos[id]
	if !ok {
		return nil, domain.ErrPromotionNotFound
	}
	return &p, nil
}

func (m *memStore) GetCouponByCode(ctx context.Context, code string) (*domain.Promotion, error) {
	defer m.lock(ctx)()
	for _, p := range m.promos {
		if p.Kind == domain.PromotionCoupon && p.IsActive && p.Code != nil && *p.Code == code {
			return &p, nil
		}
	}
	return nil, domain.ErrPromotionNotFound
}

func (m *memStore) ProductPromotions(ctx context.Context, productIDs []string, now time.Time) (map[string][]domain.Promotion, error) {
	defer m.lock(ctx)()
	out := make(map[string][]domain.Promotion)
	for _, p := range m.promos {
		if p.Kind != domain.PromotionProduct {
			continue
		}
		if now.Before(p.StartDate) || now.After(p.EndDate) {
			continue
		}
		for _, pid := range p.ProductIDs {
			for _, want := range productIDs {
				if pid == want {
					out[pid] = append(out[pid], p)
				}
			}
		}
	}
	return out, nil
}

func (m *memStore) CreatePromotion(ctx context.Context, p *domain.Promotion) error {
	defer m.lock(ctx)()
	m.promos[p.ID] = *p
	return nil
}

func (m *memStore) ListPromotions(ctx context.Context, filter ports.PromotionFilter) ([]domain.Promotion, error) {
	defer m.lock(ctx)()
	var out []domain.Promotion
	for _, p := range m.promos {
		if filter.IsActive != nil && p.IsActive != *filter.IsActive {
			continue
		}
		if filter.Kind != nil && p.Kind != *filter.Kind {
			continue
		}
		if filter.StartAfter != nil && p.StartDate.Before(*filter.StartAfter) {
			continue
		}
		if filter.EndBefore != nil && p.EndDate.After(*filter.EndBefore) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func (m *memStore) IncrementPromotionUse(ctx context.Context, id string) error {
	defer m.lock(ctx)()
	p, ok := m.promos[id]
	if !ok {
		return domain.ErrPromotionNotFound
	}
	if p.Exhausted() {
		return domain.ErrPromotionExhausted
	}
	p.UsedCount++
	m.promos[id] = p
	return nil
}

func (m *memStore) ActiveCartLines(ctx context.Context, userID string) ([]domain.CartLine, error) {
	defer m.lock(ctx)()
	var out []domain.CartLine
	for _, l := range m.cartLines {
		if l.UserID == userID && l.IsActive {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetCartLine(ctx context.Context, id, userID string) (*domain.CartLine, error) {
	defer m.lock(ctx)()
	l, ok := m.cartLines[id]
	if !ok || l.UserID != userID {
		return nil, domain.ErrCartLineNotFound
	}
	return &l, nil
}

func (m *memStore) AddCartLine(ctx context.Context, line *domain.CartLine) error {
	defer m.lock(ctx)()
	m.cartLines[line.ID] = *line
	return nil
}

func (m *memStore) DeactivateCartLine(ctx context.Context, id, userID string) error {
	defer m.lock(ctx)()
	l, ok := m.cartLines[id]
	if !ok || l.UserID != userID || !l.IsActive {
		return domain.ErrCartLineNotFound
	}
	l.IsActive = false
	m.cartLines[id] = l
	return nil
}

func (m *memStore) DeactivateCartLines(ctx context.Context, ids []string) error {
	defer m.lock(ctx)()
	for _, id := range ids {
		if l, ok := m.cartLines[id]; ok {
			l.IsActive = false
			m.cartLines[id] = l
		}
	}
	return nil
}

func (m *memStore) CreateOrder(ctx context.Context, o *domain.Order) error {
	defer m.lock(ctx)()
	if m.numbers[o.Number] {
		return domain.ErrOrderNumberTaken
	}
	m.numbers[o.Number] = true
	stored := *o
	stored.Lines = append([]domain.OrderLine(nil), o.Lines...)
	m.orders[o.ID] = stored
	return nil
}

func (m *memStore) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	defer m.lock(ctx)()
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	o.Lines = append([]domain.OrderLine(nil), o.Lines...)
	return &o, nil
}

func (m *memStore) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	defer m.lock(ctx)()
	var out []domain.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	defer m.lock(ctx)()
	o, ok := m.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Status = status
	m.orders[id] = o
	return nil
}

func (m *memStore) SetOrderPayment(ctx context.Context, id string, bank domain.BankType, trackingCode string) error {
	defer m.lock(ctx)()
	o, ok := m.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.BankType = &bank
	o.TrackingCode = &trackingCode
	m.orders[id] = o
	return nil
}

func (m *memStore) AppendStatusLog(ctx context.Context, entry *domain.StatusLogEntry) error {
	defer m.lock(ctx)()
	m.logSeq++
	e := *entry
	e.ID = m.logSeq
	m.logs = append(m.logs, e)
	return nil
}

func (m *memStore) StatusLogsByOrder(ctx context.Context, orderID string) ([]domain.StatusLogEntry, error) {
	defer m.lock(ctx)()
	var out []domain.StatusLogEntry
	for _, e := range m.logs {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// memCache is a map-backed ports.Cache; TTLs are ignored.
type memCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string]string)}
}

func (c *memCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := value.(string); ok {
		c.data[key] = s
	}
	return nil
}

func (c *memCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], nil
}

func (c *memCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memCache) SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, held := c.data[key]; held {
		return false, nil
	}
	c.data[key] = "1"
	return true, nil
}

func (c *memCache) Key(parts ...string) string {
	return "test:" + strings.Join(parts, ":")
}

// memPublisher records published events.
type memPublisher struct {
	mu     sync.Mutex
	events []ports.StatusChangeEvent
}

func (p *memPublisher) PublishStatusChange(ctx context.Context, ev ports.StatusChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *memPublisher) published() []ports.StatusChangeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ports.StatusChangeEvent(nil), p.events...)
}

var _ ports.Store = (*memStore)(nil)
var _ ports.Cache = (*memCache)(nil)
var _ ports.EventPublisher = (*memPublisher)(nil)
