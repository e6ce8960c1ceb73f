package asaas

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kevin07696/lawdesk/internal/domain"
	"github.com/kevin07696/lawdesk/internal/services/lifecycle"
)

const credentialSecret = "3f9a0c1d2e4b5a6978877665544332211"

var processorNow = time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)

type processorFixture struct {
	processor *Processor
	db        *fakeDB
	charges   *memCharges
	creds     *memCredentials
	companies *memCompanies
}

func int64Ptr(v int64) *int64 { return &v }

func newProcessorFixture(t *testing.T, opts ...ProcessorOption) *processorFixture {
	t.Helper()

	f := &processorFixture{
		db: &fakeDB{},
		charges: newMemCharges(&domain.Charge{
			ID:            1,
			AsaasChargeID: "ch_1",
			CredentialID:  int64Ptr(3),
			CompanyID:     int64Ptr(7),
			Status:        domain.ChargeStatusPending,
		}, &domain.Charge{
			ID:            2,
			AsaasChargeID: "ch_client",
			CredentialID:  int64Ptr(3),
			Status:        domain.ChargeStatusPending,
		}),
		creds: &memCredentials{rows: map[int64]*domain.Credential{
			3: {ID: 3, WebhookSecret: credentialSecret},
			4: {ID: 4},
		}},
		companies: &memCompanies{rows: map[int64]*domain.SubscriptionSnapshot{
			7: {CompanyID: 7, PlanID: int64Ptr(5), Cadence: domain.CadenceMonthly, IsActive: false},
		}},
	}

	logger := zaptest.NewLogger(t)
	life := lifecycle.NewService(f.db, f.companies, memPlans{}, logger,
		lifecycle.WithClock(func() time.Time { return processorNow }))

	opts = append([]ProcessorOption{WithProcessorClock(func() time.Time { return processorNow })}, opts...)
	f.processor = NewProcessor(f.db, f.charges, f.creds, life, logger, opts...)
	return f
}

func TestProcessor_PaymentReceived_UpdatesChargeAndSubscription(t *testing.T) {
	f := newProcessorFixture(t)
	body := []byte(`{"event":"PAYMENT_RECEIVED","payment":{"id":"ch_1","clientPaymentDate":"2024-03-10T12:00:00Z"}}`)

	outcome, err := f.processor.Process(context.Background(), Delivery{
		Body:      body,
		Signature: Sign(body, credentialSecret),
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	charge := f.charges.rows["ch_1"]
	assert.Equal(t, domain.ChargeStatusReceived, charge.Status)
	assert.Equal(t, "PAYMENT_RECEIVED", charge.LastEvent)
	assert.Equal(t, body, charge.Payload)
	require.NotNil(t, charge.PaidAt)
	assert.Equal(t, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC), *charge.PaidAt)

	company := f.companies.rows[7]
	assert.True(t, company.IsActive)
	assert.Equal(t, domain.CadenceMonthly, company.Cadence)
	assert.Equal(t, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC), *company.CurrentPeriodStart)
	assert.Equal(t, time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC), *company.CurrentPeriodEnd)
	assert.Equal(t, time.Date(2024, 4, 16, 12, 0, 0, 0, time.UTC), *company.GraceExpiresAt)
	assert.Nil(t, company.TrialEndsAt)
}

func TestProcessor_BadSignature_LeavesChargeUntouched(t *testing.T) {
	f := newProcessorFixture(t)
	body := []byte(`{"event":"PAYMENT_RECEIVED","payment":{"id":"ch_1","clientPaymentDate":"2024-03-10T12:00:00Z"}}`)

	outcome, err := f.processor.Process(context.Background(), Delivery{
		Body:      body,
		Signature: Sign(body, "wrong-secret"),
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeRejectedSignature, outcome)
	assert.Equal(t, domain.ChargeStatusPending, f.charges.rows["ch_1"].Status)
	assert.Zero(t, f.charges.updates)
	assert.Nil(t, f.companies.rows[7].CurrentPeriodEnd)
	assert.Zero(t, f.db.txCount)
}

func TestProcessor_Overdue(t *testing.T) {
	f := newProcessorFixture(t)
	body := []byte(`{"event":"PAYMENT_OVERDUE","payment":{"id":"ch_1","dueDate":"2024-04-10"}}`)

	outcome, err := f.processor.Process(context.Background(), Delivery{
		Body:      body,
		Signature: "sha256=" + Sign(body, credentialSecret),
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	charge := f.charges.rows["ch_1"]
	assert.Equal(t, domain.ChargeStatusOverdue, charge.Status)
	assert.Nil(t, charge.PaidAt)

	company := f.companies.rows[7]
	assert.Equal(t, time.Date(2024, 4, 17, 0, 0, 0, 0, time.UTC), *company.GraceExpiresAt)
	assert.Equal(t, time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC), *company.CurrentPeriodEnd)
}

func TestProcessor_PaymentDatePrecedence(t *testing.T) {
	tests := []struct {
		name     string
		payment  string
		expected time.Time
	}{
		{
			name:     "client payment date first",
			payment:  `"clientPaymentDate":"2024-03-01","paymentDate":"2024-03-02","confirmedDate":"2024-03-03"`,
			expected: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "payment date when client date missing",
			payment:  `"paymentDate":"2024-03-02","confirmedDate":"2024-03-03"`,
			expected: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "unreadable dates skipped",
			payment:  `"clientPaymentDate":"soon","confirmedDate":"2024-03-03T10:00:00-03:00"`,
			expected: time.Date(2024, 3, 3, 13, 0, 0, 0, time.UTC),
		},
		{
			name:     "credit date last",
			payment:  `"creditDate":"2024-03-04"`,
			expected: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "now when no date present",
			payment:  `"status":"CONFIRMED"`,
			expected: processorNow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newProcessorFixture(t)
			body := []byte(`{"event":"PAYMENT_CONFIRMED","payment":{"id":"ch_client",` + tt.payment + `}}`)

			outcome, err := f.processor.Process(context.Background(), Delivery{
				Body:      body,
				Signature: Sign(body, credentialSecret),
			})

			require.NoError(t, err)
			assert.Equal(t, OutcomeApplied, outcome)
			charge := f.charges.rows["ch_client"]
			assert.Equal(t, domain.ChargeStatusConfirmed, charge.Status)
			require.NotNil(t, charge.PaidAt)
			assert.Equal(t, tt.expected, *charge.PaidAt)
		})
	}
}

func TestProcessor_ChargeWithoutCompanySkipsLifecycle(t *testing.T) {
	f := newProcessorFixture(t)
	body := []byte(`{"event":"PAYMENT_RECEIVED","payment":{"chargeId":"ch_client","paymentDate":"2024-03-10"}}`)

	outcome, err := f.processor.Process(context.Background(), Delivery{
		Body:      body,
		Signature: Sign(body, credentialSecret),
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)
	assert.Equal(t, domain.ChargeStatusReceived, f.charges.rows["ch_client"].Status)
	assert.Nil(t, f.companies.rows[7].CurrentPeriodStart)
}

func TestProcessor_RejectedDeliveries(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		signature func(body []byte) string
		setup     func(f *processorFixture)
		delivery  func(d *Delivery)
		expected  Outcome
	}{
		{
			name:     "malformed json",
			body:     `{"event":`,
			expected: OutcomeInvalidPayload,
		},
		{
			name:     "missing event",
			body:     `{"payment":{"id":"ch_1"}}`,
			expected: OutcomeInvalidPayload,
		},
		{
			name:     "unhandled event",
			body:     `{"event":"PAYMENT_CREATED","payment":{"id":"ch_1"}}`,
			expected: OutcomeIgnored,
		},
		{
			name:     "missing charge id",
			body:     `{"event":"PAYMENT_RECEIVED","payment":{}}`,
			expected: OutcomeInvalidPayload,
		},
		{
			name:     "unknown charge",
			body:     `{"event":"PAYMENT_RECEIVED","payment":{"id":"ch_missing"}}`,
			expected: OutcomeUnknownCharge,
		},
		{
			name:     "missing signature header",
			body:     `{"event":"PAYMENT_RECEIVED","payment":{"id":"ch_1"}}`,
			signature: func([]byte) string { return "" },
			expected: OutcomeRejectedSignature,
		},
		{
			name: "credential without secret",
			body: `{"event":"PAYMENT_RECEIVED","payment":{"id":"ch_1"}}`,
			setup: func(f *processorFixture) {
				f.charges.rows["ch_1"].CredentialID = int64Ptr(4)
			},
			expected: OutcomeMissingSecret,
		},
		{
			name: "charge without credential and no url credential",
			body: `{"event":"PAYMENT_RECEIVED","payment":{"id":"ch_1"}}`,
			setup: func(f *processorFixture) {
				f.charges.rows["ch_1"].CredentialID = nil
			},
			expected: OutcomeMissingSecret,
		},
		{
			name: "charge lookup failure",
			body: `{"event":"PAYMENT_RECEIVED","payment":{"id":"ch_1"}}`,
			setup: func(f *processorFixture) {
				f.charges.getErr = errors.New("connection refused")
			},
			expected: OutcomeLookupFailed,
		},
		{
			name: "credential lookup failure",
			body: `{"event":"PAYMENT_RECEIVED","payment":{"id":"ch_1"}}`,
			setup: func(f *processorFixture) {
				f.creds.err = errors.New("connection refused")
			},
			expected: OutcomeLookupFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newProcessorFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}
			body := []byte(tt.body)
			sign := tt.signature
			if sign == nil {
				sign = func(b []byte) string { return Sign(b, credentialSecret) }
			}

			outcome, err := f.processor.Process(context.Background(), Delivery{Body: body, Signature: sign(body)})

			require.NoError(t, err)
			assert.Equal(t, tt.expected, outcome)
			assert.Zero(t, f.charges.updates)
		})
	}
}

func TestProcessor_UsesURLCredentialWhenChargeHasNone(t *testing.T) {
	f := newProcessorFixture(t)
	f.charges.rows["ch_1"].CredentialID = nil
	body := []byte(`{"event":"PAYMENT_RECEIVED","payment":{"id":"ch_1"}}`)

	outcome, err := f.processor.Process(context.Background(), Delivery{
		Body:         body,
		Signature:    Sign(body, credentialSecret),
		CredentialID: int64Ptr(3),
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)
}

func TestProcessor_LastWriteWinsWithoutLedger(t *testing.T) {
	f := newProcessorFixture(t)
	body := []byte(`{"id":"evt_1","event":"PAYMENT_RECEIVED","payment":{"id":"ch_1","paymentDate":"2024-03-10"}}`)
	d := Delivery{Body: body, Signature: Sign(body, credentialSecret)}

	for i := 0; i < 2; i++ {
		outcome, err := f.processor.Process(context.Background(), d)
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, outcome)
	}

	assert.Equal(t, 2, f.charges.updates)
}

func TestProcessor_EventLedgerSkipsDuplicates(t *testing.T) {
	f := newProcessorFixture(t, WithEventLedger(&memEvents{}))
	body := []byte(`{"id":"evt_1","event":"PAYMENT_RECEIVED","payment":{"id":"ch_1","paymentDate":"2024-03-10"}}`)
	d := Delivery{Body: body, Signature: Sign(body, credentialSecret)}

	outcome, err := f.processor.Process(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	outcome, err = f.processor.Process(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)

	assert.Equal(t, 1, f.charges.updates)
}

func TestProcessor_PersistenceFailureAfterVerification(t *testing.T) {
	f := newProcessorFixture(t)
	f.charges.updateErr = errors.New("deadlock detected")
	body := []byte(`{"event":"PAYMENT_RECEIVED","payment":{"id":"ch_1"}}`)

	outcome, err := f.processor.Process(context.Background(), Delivery{
		Body:      body,
		Signature: Sign(body, credentialSecret),
	})

	assert.Equal(t, OutcomeFailed, outcome)
	assert.ErrorContains(t, err, "deadlock detected")
}

func TestParseEventKind(t *testing.T) {
	tests := []struct {
		event  string
		kind   EventKind
		status domain.ChargeStatus
		ok     bool
	}{
		{"PAYMENT_RECEIVED", EventPaymentReceived, domain.ChargeStatusReceived, true},
		{"PAYMENT_CONFIRMED", EventPaymentConfirmed, domain.ChargeStatusConfirmed, true},
		{"payment_overdue", EventPaymentOverdue, domain.ChargeStatusOverdue, true},
		{"PAYMENT_DELETED", EventIgnored, "", false},
		{"", EventIgnored, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			kind := ParseEventKind(tt.event)
			assert.Equal(t, tt.kind, kind)

			status, ok := kind.ChargeStatus()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.status, status)
		})
	}
}
