package order

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestStatusConstants(t *testing.T) {
	if StatusNew == "" || StatusFilled == "" {
		t.Fatalf("status constants not set")
	}
	if !TypeIceberg.Valid() || Type("DAY").Valid() {
		t.Fatalf("unexpected type validity")
	}
	if SideBuy.Opposite() != SideSell || SideSell.Opposite() != SideBuy {
		t.Fatalf("opposite side mismatch")
	}
}

func TestStateMachineTransitions(t *testing.T) {
	sm := NewStateMachine()
	legal := []StateTransition{
		{StatusNew, StatusPartiallyFilled},
		{StatusNew, StatusFilled},
		{StatusNew, StatusRejected},
		{StatusPartiallyFilled, StatusPartiallyFilled},
		{StatusPartiallyFilled, StatusCancelled},
		{StatusPartiallyFilled, StatusExpired},
	}
	for _, tr := range legal {
		if err := sm.ValidateTransition(tr.From, tr.To); err != nil {
			t.Fatalf("%s -> %s should be legal: %v", tr.From, tr.To, err)
		}
	}
	err := sm.ValidateTransition(StatusPartiallyFilled, StatusRejected)
	if !errors.Is(err, ErrState) || CodeOf(err) != CodeIllegalTransition {
		t.Fatalf("partial -> rejected should be an illegal transition, got %v", err)
	}
	for _, final := range []Status{StatusFilled, StatusCancelled, StatusRejected, StatusExpired} {
		err := sm.ValidateTransition(final, StatusNew)
		if !errors.Is(err, ErrState) || CodeOf(err) != CodeTerminalOrder {
			t.Fatalf("expected terminal error from %s, got %v", final, err)
		}
	}
}

func TestCancelOnlyActiveOrders(t *testing.T) {
	now := time.Unix(0, 0)
	for _, st := range []Status{StatusNew, StatusPartiallyFilled} {
		o := &Order{ID: "o", Quantity: 200, FilledQuantity: 100, Status: st}
		if err := o.Cancel("user", now); err != nil {
			t.Fatalf("cancel from %s: %v", st, err)
		}
		if o.Status != StatusCancelled || o.RejectReason != "user" {
			t.Fatalf("unexpected order %+v", o)
		}
	}
	for _, st := range []Status{StatusFilled, StatusCancelled, StatusRejected, StatusExpired} {
		o := &Order{ID: "o", Quantity: 100, Status: st}
		err := o.Cancel("user", now)
		if !errors.Is(err, ErrState) || CodeOf(err) != CodeTerminalOrder {
			t.Fatalf("cancel from %s must be a terminal-order error, got %v", st, err)
		}
		if o.Status != st {
			t.Fatalf("status changed from %s to %s", st, o.Status)
		}
	}
}

func TestOrderFillDerivesStatus(t *testing.T) {
	now := time.Unix(0, 0)
	o := &Order{ID: "o1", Quantity: 300, Status: StatusNew}
	if err := o.Fill(100, now); err != nil {
		t.Fatalf("fill: %v", err)
	}
	if o.Status != StatusPartiallyFilled || o.RemainingQuantity() != 200 {
		t.Fatalf("unexpected order %+v", o)
	}
	if err := o.Fill(300, now); CodeOf(err) != CodeOverfill {
		t.Fatalf("expected overfill, got %v", err)
	}
	if err := o.Fill(200, now); err != nil {
		t.Fatalf("fill: %v", err)
	}
	if o.Status != StatusFilled || o.RemainingQuantity() != 0 {
		t.Fatalf("unexpected order %+v", o)
	}
	if err := o.Cancel("late", now); !errors.Is(err, ErrState) {
		t.Fatalf("cancel of filled order must fail, got %v", err)
	}
}

func TestOrderRejectOnlyFromNew(t *testing.T) {
	now := time.Unix(0, 0)
	o := &Order{Quantity: 100, Status: StatusNew}
	if err := o.Reject("tick", now); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if o.Status != StatusRejected || o.RejectReason != "tick" {
		t.Fatalf("unexpected order %+v", o)
	}
	p := &Order{Quantity: 200, Status: StatusNew}
	_ = p.Fill(100, now)
	if err := p.Reject("late", now); err == nil {
		t.Fatalf("partially filled order cannot be rejected")
	}
}

func TestOrderBeforeUsesSequenceOnTie(t *testing.T) {
	ts := time.Unix(10, 0)
	a := &Order{Timestamp: ts, SequenceNumber: 1}
	b := &Order{Timestamp: ts, SequenceNumber: 2}
	c := &Order{Timestamp: ts.Add(-time.Nanosecond), SequenceNumber: 3}
	if !a.Before(b) || b.Before(a) {
		t.Fatalf("sequence tie-break broken")
	}
	if !c.Before(a) {
		t.Fatalf("earlier timestamp must win")
	}
}

func TestReplaceKeepsFilledQuantity(t *testing.T) {
	now := time.Unix(0, 0)
	o := &Order{ID: "old", AccountID: "acc", Symbol: "AAA", Side: SideBuy, Type: TypeIceberg,
		Price: decimal.RequireFromString("10"), Quantity: 500, DisplayQuantity: 400, Status: StatusNew}
	_ = o.Fill(200, now)
	r := o.Replace("new", decimal.RequireFromString("10.5"), 300, now, 9)
	if r.ID != "new" || r.FilledQuantity != 200 || r.Status != StatusPartiallyFilled {
		t.Fatalf("unexpected replacement %+v", r)
	}
	if r.DisplayQuantity != 300 {
		t.Fatalf("display quantity must be clamped, got %d", r.DisplayQuantity)
	}
	full := o.Replace("full", o.Price, 200, now, 10)
	if full.Status != StatusFilled {
		t.Fatalf("replacement at filled quantity must be FILLED, got %s", full.Status)
	}
}

func TestVisibleQuantity(t *testing.T) {
	o := &Order{Type: TypeIceberg, Quantity: 1000, DisplayQuantity: 100}
	if o.VisibleQuantity() != 100 {
		t.Fatalf("iceberg shows display quantity")
	}
	o.FilledQuantity = 950
	if o.VisibleQuantity() != 50 {
		t.Fatalf("iceberg shows remaining when smaller than display")
	}
}
