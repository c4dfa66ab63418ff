package world

import (
	"context"
	"testing"
)

func TestEtoUncapGrantsBonusOnlyWhenAFragmentIsCrossed(t *testing.T) {
	um := newNormalMap([]Step{
		{Capture: 4},
		{Capture: 4, Items: []RewardItem{{ItemType: "fragment", Amount: 10}}},
		{Capture: 4},
	})
	um.PrevPosition = 0
	um.CurrPosition = 1
	p := newTestPlay(VariantNormal, um, &PlayResult{}, CharacterSnapshot{})
	etoUncap(p)
	if p.CharacterBonusProgressNormalized == nil {
		t.Fatal("expected a bonus when a fragment step was crossed")
	}
	if *p.CharacterBonusProgressNormalized != p.cfg.EtoUncapBonusProgress {
		t.Errorf("expected bonus %v, got %v", p.cfg.EtoUncapBonusProgress, *p.CharacterBonusProgressNormalized)
	}
}

func TestEtoUncapNoBonusWithoutFragment(t *testing.T) {
	um := newNormalMap([]Step{{Capture: 4}, {Capture: 4}})
	um.PrevPosition = 0
	um.CurrPosition = 1
	p := newTestPlay(VariantNormal, um, &PlayResult{}, CharacterSnapshot{})
	etoUncap(p)
	if p.CharacterBonusProgressNormalized != nil {
		t.Errorf("expected no bonus when no fragment step was crossed, got %v", *p.CharacterBonusProgressNormalized)
	}
}

func TestAyuUncapNeverDrivesProgressNegative(t *testing.T) {
	um := newNormalMap([]Step{{Capture: 10}})
	for i := 0; i < 50; i++ {
		p := newTestPlay(VariantNormal, um, &PlayResult{Rating: 0}, CharacterSnapshot{ProgValue: 0})
		ayuUncap(p)
		if p.CharacterBonusProgressNormalized == nil {
			t.Fatal("expected ayu_uncap to always set a bonus")
		}
		bonus := *p.CharacterBonusProgressNormalized
		if p.ProgressNormalized()+bonus < -1e-9 {
			t.Errorf("ayu_uncap let total progress go negative: prog=%v bonus=%v", p.ProgressNormalized(), bonus)
		}
		if bonus < -float64(p.cfg.AyuUncapBonusProgress) || bonus > float64(p.cfg.AyuUncapBonusProgress) {
			t.Errorf("bonus %v outside configured bound %d", bonus, p.cfg.AyuUncapBonusProgress)
		}
	}
}

func TestSkillSaltUsesChapterCompletionRatio(t *testing.T) {
	chapter := 3
	um := newNormalMap([]Step{{Capture: 10}})
	um.Desc.Chapter = &chapter
	p := newTestPlay(VariantNormal, um, &PlayResult{}, CharacterSnapshot{})
	p.ChapterCompletion = func(ctx context.Context, chapterID int) (int, int, error) {
		if chapterID != 3 {
			t.Errorf("expected chapter 3, got %d", chapterID)
		}
		return 3, 6, nil
	}
	skillSalt(p)
	if p.CharacterBonusProgressNormalized == nil {
		t.Fatal("expected a bonus from skill_salt")
	}
	if *p.CharacterBonusProgressNormalized != 5 {
		t.Errorf("expected 10*(3/6)=5, got %v", *p.CharacterBonusProgressNormalized)
	}
}

func TestSkillSaltFullUnlockShortCircuitsToFlatTen(t *testing.T) {
	um := newNormalMap([]Step{{Capture: 10}})
	p := newTestPlay(VariantNormal, um, &PlayResult{}, CharacterSnapshot{})
	p.Mode = CharacterModeFullUnlock
	skillSalt(p)
	if p.CharacterBonusProgressNormalized == nil || *p.CharacterBonusProgressNormalized != 10 {
		t.Errorf("expected flat bonus 10 in full-unlock mode, got %v", p.CharacterBonusProgressNormalized)
	}
}

func TestSkillMayaTogglesUnconditionally(t *testing.T) {
	um := newNormalMap([]Step{{Capture: 10}})

	doubled := newTestPlay(VariantNormal, um, &PlayResult{}, CharacterSnapshot{SkillFlag: true})
	skillMaya(doubled)
	if !doubled.ToggleSkillState {
		t.Errorf("expected the toggle to flip even when doubling fires")
	}
	if doubled.CharacterBonusProgressNormalized == nil {
		t.Errorf("expected doubling to set a bonus when SkillFlag is set")
	}

	notDoubled := newTestPlay(VariantNormal, um, &PlayResult{}, CharacterSnapshot{SkillFlag: false})
	skillMaya(notDoubled)
	if !notDoubled.ToggleSkillState {
		t.Errorf("expected the toggle to flip even when doubling does not fire")
	}
	if notDoubled.CharacterBonusProgressNormalized != nil {
		t.Errorf("expected no bonus without SkillFlag set")
	}
}

func TestSkillKanaeUncapGatesOnStaminaCost(t *testing.T) {
	um := newNormalMap([]Step{{Capture: 10}})
	um.Desc.StaminaCost = 0
	free := newTestPlay(VariantNormal, um, &PlayResult{}, CharacterSnapshot{})
	skillKanaeUncap(free)
	if free.KanaeStoredProgress != nil {
		t.Errorf("expected a free map to never bank kanae progress")
	}

	um.Desc.StaminaCost = 2
	paid := newTestPlay(VariantNormal, um, &PlayResult{}, CharacterSnapshot{})
	skillKanaeUncap(paid)
	if paid.KanaeStoredProgress == nil {
		t.Errorf("expected a stamina-costing map to bank kanae progress")
	}
}

func TestSpecialTempestClampsToSixty(t *testing.T) {
	um := newNormalMap([]Step{{Capture: 10}})
	p := newTestPlay(VariantNormal, um, &PlayResult{}, CharacterSnapshot{CharacterID: 35, SkillIDDisplayed: "special_tempest"})
	p.SumCharacterLevels = func(ctx context.Context) (int, error) { return 5000, nil }
	if err := p.BeforeCalculate(context.Background()); err != nil {
		t.Fatalf("BeforeCalculate: %v", err)
	}
	if p.ProgTempest == nil || *p.ProgTempest != 60 {
		t.Errorf("expected the tempest bonus to clamp at 60, got %v", p.ProgTempest)
	}
}

func TestSpecialTempestSkippedOnBeyondGaugeFlag(t *testing.T) {
	um := newNormalMap([]Step{{Capture: 10}})
	play := &PlayResult{BeyondGaugeFlag: 1}
	p := newTestPlay(VariantNormal, um, play, CharacterSnapshot{CharacterID: 35, SkillIDDisplayed: "special_tempest"})
	p.SumCharacterLevels = func(ctx context.Context) (int, error) {
		t.Fatal("special_tempest must not run when beyond_gauge_flag is set")
		return 0, nil
	}
	if err := p.BeforeCalculate(context.Background()); err != nil {
		t.Fatalf("BeforeCalculate: %v", err)
	}
	if p.ProgTempest != nil {
		t.Errorf("expected no tempest bonus when gated off")
	}
}
