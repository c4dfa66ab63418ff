package world

import "testing"

func TestDeriveStaminaFullyRecovered(t *testing.T) {
	cfg := DefaultConstant()
	got := DeriveStamina(0, 1000, 0, cfg)
	if got != cfg.MaxStamina {
		t.Errorf("expected %d, got %d", cfg.MaxStamina, got)
	}
}

func TestDeriveStaminaPartialRecovery(t *testing.T) {
	cfg := DefaultConstant()
	now := int64(1_000_000)
	// Three ticks still owed.
	ts := now + 3*cfg.StaminaRecoverTickMs
	got := DeriveStamina(ts, now, 0, cfg)
	want := cfg.MaxStamina - 3
	if got != want {
		t.Errorf("expected %d, got %d", want, got)
	}
}

func TestDeriveStaminaOverfillPersists(t *testing.T) {
	cfg := DefaultConstant()
	now := int64(1_000_000)
	// Checkpoint says "full", but the stored overfill value says 15: an
	// overfill reward must survive until it is spent back down.
	got := DeriveStamina(now-1, now, 15, cfg)
	if got != 15 {
		t.Errorf("expected overfill 15 to persist, got %d", got)
	}
}

func TestDeriveStaminaOverfillDoesNotLeakBelowMax(t *testing.T) {
	cfg := DefaultConstant()
	now := int64(1_000_000)
	// Checkpoint says "full" and the stored value is stale/sub-max: must
	// clamp up to MaxStamina, not report the stale low value.
	got := DeriveStamina(now-1, now, 2, cfg)
	if got != cfg.MaxStamina {
		t.Errorf("expected %d, got %d", cfg.MaxStamina, got)
	}
}

func TestSetStaminaRoundTrips(t *testing.T) {
	cfg := DefaultConstant()
	now := int64(5_000_000)
	state := &UserState{}
	SetStamina(state, 8, now, cfg)
	got := DeriveStamina(state.MaxStaminaTs, now, state.Stamina, cfg)
	if got != 8 {
		t.Errorf("expected 8, got %d", got)
	}
}

func TestSetStaminaOverfillRoundTrips(t *testing.T) {
	cfg := DefaultConstant()
	now := int64(5_000_000)
	state := &UserState{}
	SetStamina(state, cfg.MaxStamina+4, now, cfg)
	got := DeriveStamina(state.MaxStaminaTs, now, state.Stamina, cfg)
	if got != cfg.MaxStamina+4 {
		t.Errorf("expected overfill %d, got %d", cfg.MaxStamina+4, got)
	}
}

func TestDeductStaminaInsufficientFunds(t *testing.T) {
	cfg := DefaultConstant()
	now := int64(0)
	state := &UserState{}
	SetStamina(state, 2, now, cfg)
	if DeductStamina(state, 3, now, cfg) {
		t.Errorf("expected deduction to fail with only 2 stamina available")
	}
}

func TestDeductAndRefundStamina(t *testing.T) {
	cfg := DefaultConstant()
	now := int64(0)
	state := &UserState{}
	SetStamina(state, cfg.MaxStamina, now, cfg)
	if !DeductStamina(state, 4, now, cfg) {
		t.Fatalf("expected deduction of 4 to succeed from a full tank")
	}
	if got := DeriveStamina(state.MaxStaminaTs, now, state.Stamina, cfg); got != cfg.MaxStamina-4 {
		t.Errorf("expected %d after deduction, got %d", cfg.MaxStamina-4, got)
	}
	RefundStamina(state, 4, now, cfg)
	if got := DeriveStamina(state.MaxStaminaTs, now, state.Stamina, cfg); got != cfg.MaxStamina {
		t.Errorf("expected refund to restore %d, got %d", cfg.MaxStamina, got)
	}
}
