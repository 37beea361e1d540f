package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/voltbridge/voltbridge/internal/domain/payment"
	"github.com/voltbridge/voltbridge/internal/domain/tariff"
	"github.com/voltbridge/voltbridge/internal/types"
	"github.com/shopspring/decimal"
)

// FakeTariffResolver returns a fixed snapshot and counts resolutions, so
// tests can assert the frozen snapshot is never re-resolved at close time.
type FakeTariffResolver struct {
	mu       sync.Mutex
	Snapshot tariff.Snapshot
	Err      error
	Calls    int
}

func NewFakeTariffResolver() *FakeTariffResolver {
	return &FakeTariffResolver{
		Snapshot: tariff.Snapshot{
			Version:          tariff.SnapshotVersion,
			BasePricePerKwh:  decimal.RequireFromString("0.45"),
			PricePerMinute:   decimal.Zero,
			SessionStartFee:  decimal.RequireFromString("0.20"),
			IdleFeePerMinute: decimal.Zero,
			MsFeePercent:     decimal.NewFromInt(15),
			Currency:         "EUR",
		},
	}
}

func (f *FakeTariffResolver) Resolve(ctx context.Context, workspaceID, stationID, connectorID string, at time.Time) (tariff.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if f.Err != nil {
		return tariff.Snapshot{}, f.Err
	}
	return f.Snapshot, nil
}

// FakePaymentGateway records hold/capture calls and fails on demand.
type FakePaymentGateway struct {
	mu           sync.Mutex
	HoldErr      error
	CaptureErr   error
	HoldCalls    int
	CaptureCalls int
	LastHold     decimal.Decimal
	LastCapture  decimal.Decimal
}

func NewFakePaymentGateway() *FakePaymentGateway {
	return &FakePaymentGateway{}
}

func (f *FakePaymentGateway) CreateHold(ctx context.Context, endUserID string, amount decimal.Decimal, currency string) (*payment.HoldResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.HoldCalls++
	f.LastHold = amount
	if f.HoldErr != nil {
		return nil, f.HoldErr
	}
	return &payment.HoldResult{
		PaymentIntentID: types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT_TRANSACTION),
		Status:          "requires_capture",
		AmountCents:     amount.Mul(decimal.NewFromInt(100)).IntPart(),
		Amount:          amount,
		Currency:        currency,
	}, nil
}

func (f *FakePaymentGateway) CapturePayment(ctx context.Context, sessionID string, amount decimal.Decimal) (*payment.CaptureResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CaptureCalls++
	f.LastCapture = amount
	if f.CaptureErr != nil {
		return nil, f.CaptureErr
	}
	return &payment.CaptureResult{
		AmountCents: amount.Mul(decimal.NewFromInt(100)).IntPart(),
		Amount:      amount,
	}, nil
}

// RecordingPublisher collects published webhook events for assertions.
type RecordingPublisher struct {
	mu     sync.Mutex
	Events []string
}

func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

func (p *RecordingPublisher) Publish(ctx context.Context, eventName string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, eventName)
	return nil
}

// EventNames returns a copy of the recorded event names.
func (p *RecordingPublisher) EventNames() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.Events...)
}

// ErrGatewayUnavailable is a canned failure for payment gateway fakes.
var ErrGatewayUnavailable = fmt.Errorf("payment gateway unavailable")
