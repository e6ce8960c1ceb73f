package asaas

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/kevin07696/lawdesk/internal/domain"
	"github.com/kevin07696/lawdesk/pkg/timeutil"
)

// EventKind is the closed set of webhook events this service acts on
type EventKind int

const (
	// EventIgnored covers every event without a charge transition
	EventIgnored EventKind = iota
	EventPaymentReceived
	EventPaymentConfirmed
	EventPaymentOverdue
)

// ParseEventKind maps a provider event name to its kind
func ParseEventKind(event string) EventKind {
	switch strings.ToUpper(strings.TrimSpace(event)) {
	case "PAYMENT_RECEIVED":
		return EventPaymentReceived
	case "PAYMENT_CONFIRMED":
		return EventPaymentConfirmed
	case "PAYMENT_OVERDUE":
		return EventPaymentOverdue
	default:
		return EventIgnored
	}
}

func (k EventKind) String() string {
	switch k {
	case EventPaymentReceived:
		return "PAYMENT_RECEIVED"
	case EventPaymentConfirmed:
		return "PAYMENT_CONFIRMED"
	case EventPaymentOverdue:
		return "PAYMENT_OVERDUE"
	default:
		return "IGNORED"
	}
}

// ChargeStatus is the status a charge moves to. The bool is false for
// EventIgnored.
func (k EventKind) ChargeStatus() (domain.ChargeStatus, bool) {
	switch k {
	case EventPaymentReceived:
		return domain.ChargeStatusReceived, true
	case EventPaymentConfirmed:
		return domain.ChargeStatusConfirmed, true
	case EventPaymentOverdue:
		return domain.ChargeStatusOverdue, true
	case EventIgnored:
		return "", false
	default:
		return "", false
	}
}

// Payload is the subset of the Asaas webhook body this service reads
type Payload struct {
	ID      string         `json:"id"`
	Event   string         `json:"event"`
	Payment PaymentPayload `json:"payment"`
}

// PaymentPayload is the "payment" object of a webhook body
type PaymentPayload struct {
	ID                string `json:"id"`
	ChargeID          string `json:"chargeId"`
	Status            string `json:"status"`
	DueDate           string `json:"dueDate"`
	PaymentDate       string `json:"paymentDate"`
	ClientPaymentDate string `json:"clientPaymentDate"`
	ConfirmedDate     string `json:"confirmedDate"`
	CreditDate        string `json:"creditDate"`
}

// ParsePayload decodes a raw webhook body. Only the event name is required
// here; callers check the charge id for events they act on.
func ParsePayload(body []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, domain.WrapError(domain.ErrorCodePayloadInvalid, "decode webhook body", err)
	}
	p.Event = strings.TrimSpace(p.Event)
	if p.Event == "" {
		return nil, domain.ErrPayloadInvalid.WithDetail("field", "event")
	}
	return &p, nil
}

// Kind returns the event kind of p
func (p *Payload) Kind() EventKind {
	return ParseEventKind(p.Event)
}

// ExternalID is the Asaas charge id, from "id" or the legacy "chargeId"
func (pp *PaymentPayload) ExternalID() string {
	if id := strings.TrimSpace(pp.ID); id != "" {
		return id
	}
	return strings.TrimSpace(pp.ChargeID)
}

// PaidAt picks the first readable of clientPaymentDate, paymentDate,
// confirmedDate and creditDate, else now.
func (pp *PaymentPayload) PaidAt(now time.Time) time.Time {
	for _, raw := range []string{pp.ClientPaymentDate, pp.PaymentDate, pp.ConfirmedDate, pp.CreditDate} {
		if t, ok := timeutil.ParseTimestamp(raw); ok {
			return t
		}
	}
	return now
}

// DueAt returns the parsed dueDate or nil
func (pp *PaymentPayload) DueAt() *time.Time {
	t, ok := timeutil.ParseTimestamp(pp.DueDate)
	if !ok {
		return nil
	}
	return &t
}
