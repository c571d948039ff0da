//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"club-payment-service/internal/domain"
	"club-payment-service/internal/domain/model"
	"club-payment-service/internal/domain/ports/adapter"
	"club-payment-service/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// =============================
// Transaction manager
// =============================

// MockTxManager just runs the callback with a nil tx; the mock repos are
// plain maps, so there is nothing to roll back.
type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// =============================
// Repositories
// =============================

// ---- Identities ----

type MockIdentityRepo struct {
	mu    sync.Mutex
	seq   int
	byID  map[string]*model.Identity
	email map[string]string // email -> id

	GetOrCreateFunc func(ctx context.Context, tx repository.Tx, email, name string) (*model.Identity, error)
}

func NewMockIdentityRepo() *MockIdentityRepo {
	return &MockIdentityRepo{byID: map[string]*model.Identity{}, email: map[string]string{}}
}

func (m *MockIdentityRepo) GetOrCreate(ctx context.Context, tx repository.Tx, email, name string) (*model.Identity, error) {
	if m.GetOrCreateFunc != nil {
		return m.GetOrCreateFunc(ctx, tx, email, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.email[email]; ok {
		i := m.byID[id]
		if i.Name == "" && name != "" {
			i.Name = name
		}
		cp := *i
		return &cp, nil
	}
	m.seq++
	i := &model.Identity{ID: fmt.Sprintf("identity-%d", m.seq), Email: email, Name: name, CreatedAt: time.Now()}
	m.byID[i.ID] = i
	m.email[email] = i.ID
	cp := *i
	return &cp, nil
}

func (m *MockIdentityRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.byID[id]; ok {
		cp := *i
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockIdentityRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.email[email]; ok {
		cp := *m.byID[id]
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

// ---- Plans ----

type MockPlanRepo struct {
	mu    sync.Mutex
	plans map[string]*model.MembershipPlan
}

func NewMockPlanRepo() *MockPlanRepo {
	return &MockPlanRepo{plans: map[string]*model.MembershipPlan{}}
}

func (m *MockPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.MembershipPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.plans[p.ID] = &cp
	return nil
}

func (m *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.MembershipPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.plans[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockPlanRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.MembershipPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.plans {
		if p.Code == code && p.Active {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.MembershipPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.MembershipPlan
	for _, p := range m.plans {
		if p.Active {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockPlanRepo) Deactivate(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Active = false
	return nil
}

// ---- Memberships ----

type MockMembershipRepo struct {
	mu          sync.Mutex
	memberships map[string]*model.Membership

	ActivateIfPendingFunc func(ctx context.Context, tx repository.Tx, id string, start, end time.Time, instrumentID *string) (bool, error)
}

func NewMockMembershipRepo() *MockMembershipRepo {
	return &MockMembershipRepo{memberships: map[string]*model.Membership{}}
}

func (m *MockMembershipRepo) Save(ctx context.Context, tx repository.Tx, mb *model.Membership) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *mb
	m.memberships[mb.ID] = &cp
	return nil
}

func (m *MockMembershipRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mb, ok := m.memberships[id]; ok {
		cp := *mb
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockMembershipRepo) ActivateIfPending(ctx context.Context, tx repository.Tx, id string, start, end time.Time, instrumentID *string) (bool, error) {
	if m.ActivateIfPendingFunc != nil {
		return m.ActivateIfPendingFunc(ctx, tx, id, start, end, instrumentID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	mb, ok := m.memberships[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if mb.Status != model.MembershipStatusPending {
		return false, nil
	}
	mb.Status = model.MembershipStatusActive
	mb.StartDate = &start
	mb.EndDate = &end
	if instrumentID != nil {
		mb.InstrumentID = instrumentID
	}
	return true, nil
}

func (m *MockMembershipRepo) LatestActiveEndDate(ctx context.Context, tx repository.Tx, identityID string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest time.Time
	found := false
	for _, mb := range m.memberships {
		if mb.IdentityID == identityID && mb.Status == model.MembershipStatusActive && mb.EndDate != nil {
			if mb.EndDate.After(latest) {
				latest = *mb.EndDate
				found = true
			}
		}
	}
	if !found {
		return time.Time{}, domain.ErrNotFound
	}
	return latest, nil
}

func (m *MockMembershipRepo) FindDueForRenewal(ctx context.Context, tx repository.Tx, window time.Duration, attemptCap, limit int) ([]*model.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(window)
	var out []*model.Membership
	for _, mb := range m.memberships {
		if mb.Status == model.MembershipStatusActive && mb.AutoRenew && mb.RenewalAttempts < attemptCap &&
			mb.EndDate != nil && mb.EndDate.After(time.Now()) && !mb.EndDate.After(cutoff) {
			cp := *mb
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MockMembershipRepo) FindDueForWarning(ctx context.Context, tx repository.Tx, window time.Duration, limit int) ([]*model.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(window)
	var out []*model.Membership
	for _, mb := range m.memberships {
		if mb.Status == model.MembershipStatusActive && mb.AutoRenew && !mb.RenewalWarningSent &&
			mb.EndDate != nil && mb.EndDate.After(time.Now()) && !mb.EndDate.After(cutoff) {
			cp := *mb
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MockMembershipRepo) RecordRenewalSuccess(ctx context.Context, tx repository.Tx, id string, newEnd time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mb, ok := m.memberships[id]
	if !ok {
		return domain.ErrNotFound
	}
	mb.EndDate = &newEnd
	mb.RenewalAttempts = 0
	mb.RenewalWarningSent = false
	return nil
}

func (m *MockMembershipRepo) RecordRenewalFailure(ctx context.Context, tx repository.Tx, id string, attempts int, disableAutoRenew bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mb, ok := m.memberships[id]
	if !ok {
		return domain.ErrNotFound
	}
	mb.RenewalAttempts = attempts
	if disableAutoRenew {
		mb.AutoRenew = false
	}
	return nil
}

func (m *MockMembershipRepo) MarkWarningSent(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mb, ok := m.memberships[id]
	if !ok {
		return domain.ErrNotFound
	}
	mb.RenewalWarningSent = true
	return nil
}

func (m *MockMembershipRepo) CancelOrphanedPending(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) (int, error) {
	return 0, nil
}

// ---- Events & tickets ----

type MockEventRepo struct {
	mu     sync.Mutex
	events map[string]*model.Event
}

func NewMockEventRepo() *MockEventRepo {
	return &MockEventRepo{events: map[string]*model.Event{}}
}

func (m *MockEventRepo) Put(e *model.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.events[e.ID] = &cp
}

func (m *MockEventRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.events[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockEventRepo) ListUpcoming(ctx context.Context, tx repository.Tx) ([]*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Event
	for _, e := range m.events {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockEventRepo) IncrementSoldIfAvailable(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if e.Sold >= e.Capacity {
		return false, nil
	}
	e.Sold++
	return true, nil
}

type MockTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*model.Ticket
}

func NewMockTicketRepo() *MockTicketRepo {
	return &MockTicketRepo{tickets: map[string]*model.Ticket{}}
}

func (m *MockTicketRepo) Save(ctx context.Context, tx repository.Tx, t *model.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tickets[t.ID] = &cp
	return nil
}

func (m *MockTicketRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tickets[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockTicketRepo) ActivateIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if t.Status != model.TicketStatusPending {
		return false, nil
	}
	t.Status = model.TicketStatusActive
	return true, nil
}

func (m *MockTicketRepo) CancelOrphanedPending(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) (int, error) {
	return 0, nil
}

// ---- Products & orders ----

type MockProductRepo struct {
	mu       sync.Mutex
	products map[string]*model.Product
}

func NewMockProductRepo() *MockProductRepo {
	return &MockProductRepo{products: map[string]*model.Product{}}
}

func (m *MockProductRepo) Put(p *model.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.products[p.ID] = &cp
}

func (m *MockProductRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockProductRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Product
	for _, p := range m.products {
		if p.Active {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockProductRepo) DecrementStock(ctx context.Context, tx repository.Tx, id string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Stock -= qty
	if p.Stock < 0 {
		p.Stock = 0
	}
	return nil
}

type MockOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*model.Order
}

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{orders: map[string]*model.Order{}}
}

func (m *MockOrderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *MockOrderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockOrderRepo) CompleteIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if o.Status != model.OrderStatusPending {
		return false, nil
	}
	o.Status = model.OrderStatusCompleted
	return true, nil
}

func (m *MockOrderRepo) CancelOrphanedPending(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) (int, error) {
	return 0, nil
}

// ---- Instruments ----

type MockInstrumentRepo struct {
	mu          sync.Mutex
	instruments map[string]*model.PaymentInstrument

	ReplaceActiveFunc func(ctx context.Context, tx repository.Tx, inst *model.PaymentInstrument) error
}

func NewMockInstrumentRepo() *MockInstrumentRepo {
	return &MockInstrumentRepo{instruments: map[string]*model.PaymentInstrument{}}
}

func (m *MockInstrumentRepo) ReplaceActive(ctx context.Context, tx repository.Tx, inst *model.PaymentInstrument) error {
	if m.ReplaceActiveFunc != nil {
		return m.ReplaceActiveFunc(ctx, tx, inst)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range m.instruments {
		if i.IdentityID == inst.IdentityID {
			i.Active = false
		}
	}
	cp := *inst
	cp.Active = true
	m.instruments[inst.ID] = &cp
	return nil
}

func (m *MockInstrumentRepo) FindActiveByIdentity(ctx context.Context, tx repository.Tx, identityID string) (*model.PaymentInstrument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range m.instruments {
		if i.IdentityID == identityID && i.Active {
			cp := *i
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockInstrumentRepo) ListByIdentity(ctx context.Context, tx repository.Tx, identityID string) ([]*model.PaymentInstrument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PaymentInstrument
	for _, i := range m.instruments {
		if i.IdentityID == identityID {
			cp := *i
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ActiveCount reports how many active instruments the identity holds.
func (m *MockInstrumentRepo) ActiveCount(identityID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, i := range m.instruments {
		if i.IdentityID == identityID && i.Active {
			n++
		}
	}
	return n
}

// ---- Transactions ----

type MockTransactionRepo struct {
	mu   sync.Mutex
	txns map[string]*model.Transaction

	SaveFunc func(ctx context.Context, tx repository.Tx, t *model.Transaction) error
}

func NewMockTransactionRepo() *MockTransactionRepo {
	return &MockTransactionRepo{txns: map[string]*model.Transaction{}}
}

func (m *MockTransactionRepo) Save(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.txns[t.ID] = &cp
	return nil
}

func (m *MockTransactionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.txns[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockTransactionRepo) FindByOrderRef(ctx context.Context, tx repository.Tx, orderRef string) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.txns {
		if t.OrderRef == orderRef {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockTransactionRepo) FindByCheckoutRef(ctx context.Context, tx repository.Tx, checkoutRef string) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.txns {
		if t.CheckoutRef == checkoutRef {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockTransactionRepo) FindByIdempotencyKey(ctx context.Context, tx repository.Tx, identityID, key string) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.txns {
		if t.IdentityID == identityID && t.IdempotencyKey != nil && *t.IdempotencyKey == key {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockTransactionRepo) MarkPaidIfPending(ctx context.Context, tx repository.Tx, id string, paymentRef string, paidAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if t.Status != model.TransactionStatusPending {
		return false, nil
	}
	t.Status = model.TransactionStatusPaid
	t.PaymentRef = &paymentRef
	t.PaidAt = &paidAt
	return true, nil
}

func (m *MockTransactionRepo) MarkFailed(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.Status = model.TransactionStatusFailed
	return nil
}

func (m *MockTransactionRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Transaction
	for _, t := range m.txns {
		if t.Status == model.TransactionStatusPending && t.CreatedAt.Before(olderThan) {
			cp := *t
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// Count reports how many ledger rows exist.
func (m *MockTransactionRepo) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txns)
}

// ---- Renewal log ----

type MockRenewalLogRepo struct {
	mu       sync.Mutex
	attempts []*model.RenewalAttempt
}

func NewMockRenewalLogRepo() *MockRenewalLogRepo { return &MockRenewalLogRepo{} }

func (m *MockRenewalLogRepo) Append(ctx context.Context, tx repository.Tx, a *model.RenewalAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.attempts = append(m.attempts, &cp)
	return nil
}

func (m *MockRenewalLogRepo) ListByMembership(ctx context.Context, tx repository.Tx, membershipID string, limit int) ([]*model.RenewalAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.RenewalAttempt
	for _, a := range m.attempts {
		if a.MembershipID == membershipID {
			cp := *a
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MockRenewalLogRepo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.attempts)
}

// =============================
// Adapters
// =============================

// ---- Payment gateway ----

type MockPaymentGateway struct {
	mu       sync.Mutex
	seq      int
	Created  []adapter.CreateCheckoutRequest
	sessions map[string]*adapter.Checkout

	CreateCheckoutFunc func(ctx context.Context, req adapter.CreateCheckoutRequest) (*adapter.Checkout, error)
	GetCheckoutFunc    func(ctx context.Context, id string) (*adapter.Checkout, error)
	CustomerExistsFunc func(ctx context.Context, customerRef string) (bool, error)
	CreateCustomerFunc func(ctx context.Context, customerRef, email, name string) error
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{sessions: map[string]*adapter.Checkout{}}
}

func (g *MockPaymentGateway) Name() string { return "mock" }

func (g *MockPaymentGateway) CreateCheckout(ctx context.Context, req adapter.CreateCheckoutRequest) (*adapter.Checkout, error) {
	if g.CreateCheckoutFunc != nil {
		return g.CreateCheckoutFunc(ctx, req)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	g.Created = append(g.Created, req)
	co := &adapter.Checkout{
		ID:          fmt.Sprintf("co-%d", g.seq),
		Status:      adapter.CheckoutStatusPending,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
	}
	g.sessions[co.ID] = co
	return co, nil
}

func (g *MockPaymentGateway) GetCheckout(ctx context.Context, id string) (*adapter.Checkout, error) {
	if g.GetCheckoutFunc != nil {
		return g.GetCheckoutFunc(ctx, id)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	co, ok := g.sessions[id]
	if !ok {
		return nil, fmt.Errorf("mock: checkout %s not found", id)
	}
	cp := *co
	return &cp, nil
}

// Settle marks a session as paid, optionally attaching a tokenized card.
func (g *MockPaymentGateway) Settle(id string, card *adapter.Card) {
	g.mu.Lock()
	defer g.mu.Unlock()
	co := g.sessions[id]
	co.Status = adapter.CheckoutStatusPaid
	co.PaymentRef = "pay-" + id
	co.Card = card
}

func (g *MockPaymentGateway) CustomerExists(ctx context.Context, customerRef string) (bool, error) {
	if g.CustomerExistsFunc != nil {
		return g.CustomerExistsFunc(ctx, customerRef)
	}
	return true, nil
}

func (g *MockPaymentGateway) CreateCustomer(ctx context.Context, customerRef, email, name string) error {
	if g.CreateCustomerFunc != nil {
		return g.CreateCustomerFunc(ctx, customerRef, email, name)
	}
	return nil
}

// ---- Email sender ----

type MockEmailSender struct {
	mu   sync.Mutex
	Sent []adapter.Email

	SendFunc func(ctx context.Context, e adapter.Email) error
}

var _ adapter.EmailSender = (*MockEmailSender)(nil)

func (m *MockEmailSender) Send(ctx context.Context, e adapter.Email) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, e)
	return nil
}

func (m *MockEmailSender) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

func (m *MockEmailSender) Subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Sent))
	for i, e := range m.Sent {
		out[i] = e.Subject
	}
	return out
}

// ---- Captcha ----

type MockCaptcha struct {
	VerifyFunc func(ctx context.Context, token, clientIP string) (bool, error)
}

var _ adapter.CaptchaVerifier = (*MockCaptcha)(nil)

func (m *MockCaptcha) Verify(ctx context.Context, token, clientIP string) (bool, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, token, clientIP)
	}
	return true, nil
}
