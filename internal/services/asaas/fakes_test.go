package asaas

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kevin07696/lawdesk/internal/domain"
	"github.com/kevin07696/lawdesk/internal/domain/ports"
)

// fakeDB runs transactions inline and rolls back nothing; tests assert on
// the in-memory stores directly.
type fakeDB struct {
	txCount int
}

func (f *fakeDB) GetDB() *pgxpool.Pool { return nil }

func (f *fakeDB) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	f.txCount++
	return fn(ctx, nil)
}

func (f *fakeDB) WithReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}

type memCharges struct {
	mu        sync.Mutex
	rows      map[string]*domain.Charge
	updates   int
	getErr    error
	updateErr error
}

func newMemCharges(charges ...*domain.Charge) *memCharges {
	m := &memCharges{rows: make(map[string]*domain.Charge)}
	for _, c := range charges {
		m.rows[c.AsaasChargeID] = c
	}
	return m
}

func (m *memCharges) GetByAsaasID(ctx context.Context, db ports.DBTX, id string) (*domain.Charge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	c, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrChargeNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCharges) ApplyUpdate(ctx context.Context, tx ports.DBTX, u domain.ChargeUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	c, ok := m.rows[u.AsaasChargeID]
	if !ok {
		return domain.ErrChargeNotFound
	}
	m.updates++
	c.Status = u.Status
	c.LastEvent = u.LastEvent
	c.Payload = u.Payload
	if u.PaidAt != nil {
		c.PaidAt = u.PaidAt
	}
	return nil
}

type memCredentials struct {
	rows map[int64]*domain.Credential
	err  error
}

func (m *memCredentials) Get(ctx context.Context, db ports.DBTX, id int64) (*domain.Credential, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrCredentialNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCredentials) InsertWebhookSecret(ctx context.Context, tx ports.DBTX, id int64, secret string) (bool, error) {
	return false, errors.New("not used")
}

type memEvents struct {
	seen map[string]bool
}

func (m *memEvents) Record(ctx context.Context, tx ports.DBTX, e domain.WebhookEventRecord) (bool, error) {
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	if m.seen[e.EventID] {
		return false, nil
	}
	m.seen[e.EventID] = true
	return true, nil
}

type memCompanies struct {
	rows map[int64]*domain.SubscriptionSnapshot
}

func (m *memCompanies) GetSnapshot(ctx context.Context, db ports.DBTX, id int64) (*domain.SubscriptionSnapshot, error) {
	s, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrCompanyNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memCompanies) ApplyPaymentWindow(ctx context.Context, tx ports.DBTX, id int64, w domain.PaymentWindow) error {
	s, ok := m.rows[id]
	if !ok {
		return domain.ErrCompanyNotFound
	}
	start, end, grace := w.PeriodStart, w.PeriodEnd, w.GraceExpiresAt
	s.CurrentPeriodStart = &start
	s.CurrentPeriodEnd = &end
	s.GraceExpiresAt = &grace
	s.Cadence = w.Cadence
	s.TrialStartedAt = nil
	s.TrialEndsAt = nil
	s.IsActive = true
	return nil
}

func (m *memCompanies) ApplyOverdueWindow(ctx context.Context, tx ports.DBTX, id int64, w domain.OverdueWindow) error {
	s, ok := m.rows[id]
	if !ok {
		return domain.ErrCompanyNotFound
	}
	grace := w.GraceExpiresAt
	s.GraceExpiresAt = &grace
	if s.CurrentPeriodEnd == nil {
		end := w.PeriodEnd
		s.CurrentPeriodEnd = &end
	}
	if !s.Cadence.Valid() {
		s.Cadence = w.Cadence
	}
	return nil
}

func (m *memCompanies) StartSubscription(ctx context.Context, tx ports.DBTX, id int64, start domain.SubscriptionStart) error {
	return errors.New("not used")
}

type memPlans struct{}

func (memPlans) GetPlan(ctx context.Context, db ports.DBTX, id int64) (*domain.Plan, error) {
	return nil, domain.ErrPlanNotFound
}
