package world

import (
	"context"
	"math"

	"github.com/heroiclabs/nakama-common/runtime"

	"crab.casa/world-server/notify"
)

// Variant selects which of the three progress-formula families a play
// uses: a normal map's step ladder, a beyond map's health-race, or a
// breached map's law-modified health-race.
type Variant int

const (
	VariantNormal Variant = iota
	VariantBeyond
	VariantBreached
)

// WorldPlay is the per-request orchestrator that ties together a climbed
// UserMap, the resolved character and play outcome, and the skill/law
// hooks that adjust progress before the climb is applied — the Go analog
// of original_source's WorldPlay / BeyondWorldPlay / BreachedWorldPlay,
// collapsed into one struct with a Variant switch instead of three
// subclasses.
type WorldPlay struct {
	ctx    context.Context
	nk     runtime.NakamaModule
	logger runtime.Logger
	userID string
	cfg    Constant
	nowMs  int64

	UserMap   *UserMap
	Play      *PlayResult
	Character CharacterSnapshot
	Mode      CharacterMode
	Variant   Variant

	UserState *UserState
	CharProg  *CharacterProgression // nil when the character comes from the full-unlock table; nothing to persist in that case

	currentStamina int
	lephonState    int

	// External collaborators, resolved by the caller before Update runs.
	SumCharacterLevels func(ctx context.Context) (int, error)
	ChapterCompletion  func(ctx context.Context, chapterID int) (count, total int, err error)

	ProgTempest                      *float64
	ProgSkillIncrease                *float64
	OverSkillIncrease                *float64
	CharacterBonusProgressNormalized *float64
	KanaeAddedProgress                *float64
	KanaeStoredProgress                *float64
	NewLawProg                         *float64

	ToggleSkillState   bool
	WorldLockedUntilTs *int64

	err error
}

// NewWorldPlay builds an orchestrator for one climb request.
func NewWorldPlay(ctx context.Context, nk runtime.NakamaModule, logger runtime.Logger, userID string, cfg Constant, nowMs int64, variant Variant, um *UserMap, play *PlayResult, userState *UserState, charProg *CharacterProgression, character CharacterSnapshot, mode CharacterMode) *WorldPlay {
	return &WorldPlay{
		ctx: ctx, nk: nk, logger: logger, userID: userID, cfg: cfg, nowMs: nowMs,
		Variant: variant, UserMap: um, Play: play, UserState: userState, CharProg: charProg,
		Character: character, Mode: mode, lephonState: userState.LephonNellState,
	}
}

func (p *WorldPlay) now() int64 { return p.nowMs }

func (p *WorldPlay) reclimb() {
	if p.err != nil {
		return
	}
	p.err = p.UserMap.Reclimb(p.FinalProgress(), p.Play, &p.lephonState)
}

// StepTimes is the multiplier step_value formulas apply on top of the raw
// progress: normal maps fold in fragment and prog-boost multipliers,
// beyond/breached maps additionally fold in spent beyond-boost gauge.
func (p *WorldPlay) StepTimes() float64 {
	base := p.Play.StaminaMultiply * p.Play.FragmentMultiply / 100
	switch p.Variant {
	case VariantNormal:
		return base * (p.Play.ProgBoostMultiply/100 + 1)
	default:
		return base * (1 + p.Play.ProgBoostMultiply/100 + p.Play.BeyondBoostGaugeUsage/100)
	}
}

// ExpTimes scales the character XP a cleared play grants.
func (p *WorldPlay) ExpTimes() float64 {
	return p.Play.StaminaMultiply * (p.Play.ProgBoostMultiply/100 + 1)
}

// BeyondBoostGaugeAddition is the per-play charge added to the gauge,
// regardless of map type — original_source flags this formula as
// reverse-engineered ("guessed by Lost-MSth"), not officially documented.
func (p *WorldPlay) BeyondBoostGaugeAddition() float64 {
	return 2.45*math.Sqrt(p.Play.Rating) + 27
}

// AffinityMultiplier applies a beyond map's per-character bonus; breached
// maps always disable it, normal maps never consult it.
func (p *WorldPlay) AffinityMultiplier() float64 {
	if p.Variant == VariantBreached {
		return 1
	}
	for i, id := range p.UserMap.Desc.CharacterAffinity {
		if id == p.Character.CharacterID && i < len(p.UserMap.Desc.AffinityMultiplier) {
			return p.UserMap.Desc.AffinityMultiplier[i]
		}
	}
	return 1
}

// BaseProgress is the rating-driven progress floor, before any
// partner/skill/law adjustment.
func (p *WorldPlay) BaseProgress() float64 {
	switch p.Variant {
	case VariantNormal:
		return 2.5 + 2.45*math.Sqrt(p.Play.Rating)
	default:
		clearBonus := 75.0 / 28
		if p.Play.ClearType == 0 {
			clearBonus = 25.0 / 28
		}
		return math.Sqrt(p.Play.Rating)*0.43 + clearBonus
	}
}

// PartnerAdjustedProg folds the acting character's prog stat together with
// special_tempest's roster bonus and any skill's prog_skill_increase.
func (p *WorldPlay) PartnerAdjustedProg() float64 {
	prog := p.Character.ProgValue
	if p.ProgTempest != nil {
		prog += *p.ProgTempest
	}
	if p.ProgSkillIncrease != nil {
		prog += *p.ProgSkillIncrease
	}
	return prog
}

// NewLawMultiply is 1 with no breached law in effect, else the law's
// NewLawProg rescaled the same way OVER/50 rescales in the other variants.
func (p *WorldPlay) NewLawMultiply() float64 {
	if p.NewLawProg == nil {
		return 1
	}
	return *p.NewLawProg / 50
}

// ProgressNormalized is the per-variant core formula, before step_times
// and the kanae add/subtract the normal-map formula applies.
func (p *WorldPlay) ProgressNormalized() float64 {
	switch p.Variant {
	case VariantNormal:
		return p.BaseProgress() * (p.PartnerAdjustedProg() / 50)
	case VariantBreached:
		if p.UserMap.Desc.DisableOver {
			return p.BaseProgress() * p.NewLawMultiply()
		}
		return p.BaseProgress() * (p.effectiveOver() / 50) * p.NewLawMultiply()
	default: // VariantBeyond
		return p.BaseProgress() * (p.effectiveOver() / 50) * p.AffinityMultiplier()
	}
}

// FinalProgress is the exact stepValue handed to UserMap.Climb/Reclimb.
func (p *WorldPlay) FinalProgress() float64 {
	if p.Variant == VariantNormal {
		bonus := 0.0
		if p.CharacterBonusProgressNormalized != nil {
			bonus = *p.CharacterBonusProgressNormalized
		}
		kanaeAdded := 0.0
		if p.KanaeAddedProgress != nil {
			kanaeAdded = *p.KanaeAddedProgress
		}
		kanaeStored := 0.0
		if p.KanaeStoredProgress != nil {
			kanaeStored = *p.KanaeStoredProgress
		}
		return (p.ProgressNormalized()+bonus)*p.StepTimes() + kanaeAdded - kanaeStored
	}
	return p.ProgressNormalized() * p.StepTimes()
}

// BeforeUpdate consumes the stored prog boost when this play uses one,
// picks up any banked kanae progress, and clears the steps-modified flag,
// before any hook has run.
func (p *WorldPlay) BeforeUpdate() {
	if p.Play.ProgBoostMultiply != 0 {
		p.UserState.ProgBoost = 0
	}
	if p.Play.BeyondGaugeFlag == 0 && p.UserState.KanaeStoredProg > 0 {
		v := p.UserState.KanaeStoredProg
		p.KanaeAddedProgress = &v
	}
	p.UserMap.stepsModified = false
}

// AfterUpdate grants the last climbed step's plusstamina bonus, levels the
// acting character, wraps a repeatable map back to its first step, and
// applies each variant's beyond-boost gauge bookkeeping.
func (p *WorldPlay) AfterUpdate() {
	steps := p.UserMap.StepsForClimbing()
	if len(steps) > 0 {
		last := steps[len(steps)-1]
		if last.hasTag(StepTagPlusStamina) && last.PlusStaminaValue != 0 {
			SetStamina(p.UserState, p.currentStamina+last.PlusStaminaValue, p.nowMs, p.cfg)
			p.currentStamina += last.PlusStaminaValue
		}
	}

	if p.CharProg != nil {
		gainedExp := p.ExpTimes() * p.Play.Rating * 6
		p.CharProg.Exp += int(math.Round(gainedExp))
		for p.CharProg.Exp >= expForNextLevel(p.CharProg.Level) {
			p.CharProg.Exp -= expForNextLevel(p.CharProg.Level)
			p.CharProg.Level++
		}
		if p.ToggleSkillState {
			p.CharProg.SkillState = !p.CharProg.SkillState
		}
	}

	if p.UserMap.Desc.IsRepeatable && p.UserMap.CurrPosition == len(p.UserMap.steps)-1 {
		p.UserMap.CurrPosition = 0
	}

	p.UserState.BeyondBoostGauge += p.BeyondBoostGaugeAddition()
	p.UserState.BeyondBoostGauge = math.Min(p.UserState.BeyondBoostGauge, 200)

	if p.Variant != VariantNormal && p.Play.BeyondBoostGaugeUsage != 0 && p.Play.BeyondBoostGaugeUsage <= p.UserState.BeyondBoostGauge {
		p.UserState.BeyondBoostGauge -= p.Play.BeyondBoostGaugeUsage
		if math.Abs(p.UserState.BeyondBoostGauge) <= 1e-5 {
			p.UserState.BeyondBoostGauge = 0
		}
	}

	if p.Variant == VariantNormal {
		if p.KanaeStoredProgress != nil {
			p.UserState.KanaeStoredProg = *p.KanaeStoredProgress
		} else if p.KanaeAddedProgress != nil {
			p.UserState.KanaeStoredProg = 0
		}
	}

	p.UserState.LephonNellState = p.lephonState
}

// expForNextLevel is a placeholder linear curve; the real curve lives in
// the character-progression collaborator this package does not own (spec
// §1 Non-goals: character leveling curves are out of scope). It exists so
// AfterUpdate's XP bookkeeping has somewhere to go when no external
// collaborator is wired.
func expForNextLevel(level int) int { return 1000 + level*100 }

// Update runs the full World Mode pipeline: before_update, the skill
// pre-hooks, the breached-map law (if any), the climb itself, the skill
// post-hooks, and after_update. It returns the rewards crossed so the
// caller can build a notify.RewardPayload and PendingWrites.
func (p *WorldPlay) Update() ([]StepReward, error) {
	p.BeforeUpdate()

	if err := p.BeforeCalculate(p.ctx); err != nil {
		return nil, err
	}

	if p.Variant == VariantBreached {
		p.BreachedBeforeCalculate()
		if err := p.UserMap.Reclimb(p.FinalProgress(), p.Play, &p.lephonState); err != nil {
			return nil, err
		}
	} else {
		if err := p.UserMap.Climb(p.FinalProgress(), p.Play, &p.lephonState); err != nil {
			return nil, err
		}
	}

	p.AfterClimb()
	if p.err != nil {
		return nil, p.err
	}

	p.AfterUpdate()
	return p.UserMap.RewardsForClimbing(), nil
}

// BuildRewardPayload turns this play's outcome into the unified
// notification schema sent to the client.
func (p *WorldPlay) BuildRewardPayload(rewards []StepReward) *notify.RewardPayload {
	payload := notify.NewRewardPayload("world_climb")
	var items []notify.ItemGrant
	for _, r := range rewards {
		for _, it := range r.Items {
			items = append(items, notify.ItemGrant{ItemType: it.ItemType, ItemID: it.ItemID, Amount: it.Amount})
		}
	}
	if len(items) > 0 {
		payload.Inventory = &notify.InventoryDelta{Items: items}
	}
	if p.CharProg != nil {
		payload.Progression = &notify.ProgressionDelta{
			XpGranted:    notify.IntPtr(int(math.Round(p.ExpTimes() * p.Play.Rating * 6))),
			NewCharLevel: notify.IntPtr(p.CharProg.Level),
		}
	}
	payload.World = &notify.WorldDelta{
		MapID:            p.UserMap.MapID,
		NewPosition:      p.UserMap.CurrPosition,
		NewCapture:       int(math.Round(p.UserMap.CurrCapture)),
		StaminaAfter:     notify.IntPtr(p.currentStamina),
		BeyondGaugeAfter: notify.Float64Ptr(p.UserState.BeyondBoostGauge),
	}
	if p.WorldLockedUntilTs != nil {
		payload.World.WorldLockedUntilTs = p.WorldLockedUntilTs
	}
	return payload
}
