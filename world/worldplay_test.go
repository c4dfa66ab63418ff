package world

import (
	"context"
	"math"
	"testing"
)

func newTestPlay(variant Variant, um *UserMap, play *PlayResult, character CharacterSnapshot) *WorldPlay {
	return NewWorldPlay(context.Background(), nil, nil, "user-1", DefaultConstant(), 0, variant, um,
		play, &UserState{}, &CharacterProgression{Level: 1}, character, CharacterModeNormal)
}

func TestBaseProgressNormalVsBeyondFormulas(t *testing.T) {
	um := newNormalMap([]Step{{Capture: 10}})
	normal := newTestPlay(VariantNormal, um, &PlayResult{Rating: 10}, CharacterSnapshot{})
	wantNormal := 2.5 + 2.45*math.Sqrt(10)
	if got := normal.BaseProgress(); math.Abs(got-wantNormal) > 1e-9 {
		t.Errorf("normal base progress: want %v, got %v", wantNormal, got)
	}

	beyond := newTestPlay(VariantBeyond, um, &PlayResult{Rating: 10, ClearType: 1}, CharacterSnapshot{})
	wantBeyond := math.Sqrt(10)*0.43 + 75.0/28
	if got := beyond.BaseProgress(); math.Abs(got-wantBeyond) > 1e-9 {
		t.Errorf("beyond base progress (cleared): want %v, got %v", wantBeyond, got)
	}

	failed := newTestPlay(VariantBeyond, um, &PlayResult{Rating: 10, ClearType: 0}, CharacterSnapshot{})
	wantFailed := math.Sqrt(10)*0.43 + 25.0/28
	if got := failed.BaseProgress(); math.Abs(got-wantFailed) > 1e-9 {
		t.Errorf("beyond base progress (failed): want %v, got %v", wantFailed, got)
	}
}

func TestAffinityMultiplierMatchesCharacter(t *testing.T) {
	um := newNormalMap([]Step{{Capture: 10}})
	um.Desc.IsBeyond = true
	um.Desc.CharacterAffinity = []int{1, 2, 3}
	um.Desc.AffinityMultiplier = []float64{1.2, 1.1, 1.05}

	p := newTestPlay(VariantBeyond, um, &PlayResult{}, CharacterSnapshot{CharacterID: 2})
	if got := p.AffinityMultiplier(); got != 1.1 {
		t.Errorf("expected 1.1 for character 2, got %v", got)
	}

	other := newTestPlay(VariantBeyond, um, &PlayResult{}, CharacterSnapshot{CharacterID: 99})
	if got := other.AffinityMultiplier(); got != 1 {
		t.Errorf("expected 1 for an unlisted character, got %v", got)
	}
}

func TestAffinityMultiplierDisabledOnBreached(t *testing.T) {
	um := newNormalMap([]Step{{Capture: 10}})
	um.Desc.CharacterAffinity = []int{5}
	um.Desc.AffinityMultiplier = []float64{2}
	p := newTestPlay(VariantBreached, um, &PlayResult{}, CharacterSnapshot{CharacterID: 5})
	if got := p.AffinityMultiplier(); got != 1 {
		t.Errorf("expected breached maps to always disable affinity, got %v", got)
	}
}

func TestPartnerAdjustedProgFoldsBonuses(t *testing.T) {
	um := newNormalMap([]Step{{Capture: 10}})
	p := newTestPlay(VariantNormal, um, &PlayResult{}, CharacterSnapshot{ProgValue: 50})
	tempest := 6.0
	skill := 4.0
	p.ProgTempest = &tempest
	p.ProgSkillIncrease = &skill
	if got := p.PartnerAdjustedProg(); got != 60 {
		t.Errorf("expected 50+6+4=60, got %v", got)
	}
}

func TestFinalProgressFoldsKanaeAddAndSubtract(t *testing.T) {
	um := newNormalMap([]Step{{Capture: 1000}})
	play := &PlayResult{Rating: 0, StaminaMultiply: 1, FragmentMultiply: 100, ProgBoostMultiply: 0}
	p := newTestPlay(VariantNormal, um, play, CharacterSnapshot{ProgValue: 0})
	added := 5.0
	stored := 2.0
	p.KanaeAddedProgress = &added
	p.KanaeStoredProgress = &stored
	got := p.FinalProgress()
	want := p.ProgressNormalized()*p.StepTimes() + added - stored
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestStepTimesVariantDifference(t *testing.T) {
	um := newNormalMap([]Step{{Capture: 10}})
	play := &PlayResult{StaminaMultiply: 1, FragmentMultiply: 100, ProgBoostMultiply: 10, BeyondBoostGaugeUsage: 20}
	normal := newTestPlay(VariantNormal, um, play, CharacterSnapshot{})
	if got := normal.StepTimes(); math.Abs(got-1.1) > 1e-9 {
		t.Errorf("normal step_times: want 1.1, got %v", got)
	}
	beyond := newTestPlay(VariantBeyond, um, play, CharacterSnapshot{})
	if got := beyond.StepTimes(); math.Abs(got-1.3) > 1e-9 {
		t.Errorf("beyond step_times: want 1.3, got %v", got)
	}
}

func TestAfterUpdateChargesBeyondBoostGaugeOnEveryVariant(t *testing.T) {
	um := newNormalMap([]Step{{Capture: 10}})
	p := newTestPlay(VariantNormal, um, &PlayResult{Rating: 10}, CharacterSnapshot{})
	p.AfterUpdate()
	want := 2.45*math.Sqrt(10) + 27
	if math.Abs(p.UserState.BeyondBoostGauge-want) > 1e-9 {
		t.Errorf("expected the gauge to charge on a normal-map play too: want %v, got %v", want, p.UserState.BeyondBoostGauge)
	}
}

func TestAfterUpdateSpendsGaugeOnBeyondWhenAffordable(t *testing.T) {
	um := newNormalMap([]Step{{Capture: 10}})
	um.Desc.IsBeyond = true
	play := &PlayResult{Rating: 10, BeyondBoostGaugeUsage: 30}
	p := newTestPlay(VariantBeyond, um, play, CharacterSnapshot{})
	p.UserState.BeyondBoostGauge = 100
	p.AfterUpdate()
	want := 100 + (2.45*math.Sqrt(10) + 27) - 30
	if math.Abs(p.UserState.BeyondBoostGauge-want) > 1e-9 {
		t.Errorf("want %v, got %v", want, p.UserState.BeyondBoostGauge)
	}
}

func TestAfterUpdateGaugeClampsAt200(t *testing.T) {
	um := newNormalMap([]Step{{Capture: 10}})
	p := newTestPlay(VariantNormal, um, &PlayResult{Rating: 10000}, CharacterSnapshot{})
	p.UserState.BeyondBoostGauge = 199
	p.AfterUpdate()
	if p.UserState.BeyondBoostGauge != 200 {
		t.Errorf("expected the gauge to clamp at 200, got %v", p.UserState.BeyondBoostGauge)
	}
}

func TestAfterUpdateWrapsRepeatableMapPosition(t *testing.T) {
	um := newNormalMap([]Step{{Capture: 10}, {Capture: 10}})
	um.Desc.IsRepeatable = true
	um.CurrPosition = len(um.steps) - 1
	p := newTestPlay(VariantNormal, um, &PlayResult{}, CharacterSnapshot{})
	p.AfterUpdate()
	if um.CurrPosition != 0 {
		t.Errorf("expected a repeatable map to wrap back to position 0, got %d", um.CurrPosition)
	}
}
