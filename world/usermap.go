package world

import (
	"context"
	"fmt"
	"math"

	"github.com/heroiclabs/nakama-common/runtime"

	"crab.casa/world-server/errors"
)

// Lephon-nell phase geometry (original_source's hard-coded teleports):
// phase 1 drops the climber on tile 44, phase 2 on tile 200, and phase 3
// on tile 65 but only when the climber arrived at phase 3 directly from
// the position recorded at the end of phase 2.
const (
	lephonPhase1Position = 44
	lephonPhase2Position = 200
	lephonPhase3Position = 65

	lephonFinalRecoilTiles  = 13
	lephonToggleForwardTiles = 4

	lephonMapID = "lephon_nell"
)

// ItemOwnershipChecker is the external inventory collaborator UserMap.Unlock
// consults for require_type in {pack, single}. Ownership itself is out of
// this package's scope (spec §1 Non-goals) — only this seam is specified.
type ItemOwnershipChecker interface {
	OwnsItem(ctx context.Context, userID, requireType, requireID string) (bool, error)
}

// UserMap is one user's live progress on one map: the position/capture the
// player has climbed to, whether the map is locked, and (for lephon_nell)
// the phase-specific step overlay and wall state.
type UserMap struct {
	catalog *MapCatalog
	owner   ItemOwnershipChecker

	Desc  *MapDescriptor
	MapID string

	CurrPosition int
	CurrCapture  float64
	IsLocked     bool

	PrevPosition int
	PrevCapture  float64

	lephonActive  bool
	lephonFinal   bool
	stepsModified bool

	steps   []Step
	version string
}

// LoadUserMap reads (or lazily creates) a user's progress row for mapID and
// binds it to the map's parsed content, including the lephon_nell phase
// overlay when applicable.
func LoadUserMap(ctx context.Context, nk runtime.NakamaModule, catalog *MapCatalog, owner ItemOwnershipChecker, userID, mapID string, lephonState int) (*UserMap, error) {
	desc, err := catalog.GetMapDescriptor(mapID)
	if err != nil {
		return nil, err
	}
	state, version, err := readUserMapState(ctx, nk, userID, mapID)
	if err != nil {
		return nil, err
	}
	if version == "" {
		// First touch: persist the lazily-created locked row immediately,
		// matching original_source's select()-on-miss initialize() call.
		v, err := writeUserMapState(ctx, nk, userID, mapID, state, "")
		if err != nil {
			return nil, err
		}
		version = v
	}

	m := &UserMap{
		catalog:      catalog,
		owner:        owner,
		Desc:         desc,
		MapID:        mapID,
		CurrPosition: state.CurrPosition,
		CurrCapture:  float64(state.CurrCapture),
		IsLocked:     state.IsLocked,
		steps:        desc.Steps,
		version:      version,
	}

	if mapID == lephonMapID {
		m.lephonFinal = lephonState == 3
		m.lephonActive = m.lephonFinal
		if lephonState >= 0 && lephonState <= 3 {
			phaseSteps, err := catalog.GetLephonPhase(lephonState)
			if err != nil {
				return nil, err
			}
			m.steps = phaseSteps
		}
	}
	return m, nil
}

// Unlock clears the locked flag once any pack/single ownership requirement
// is satisfied, or leaves it set and returns false otherwise. A map with no
// ownership requirement unlocks unconditionally on first touch.
func (m *UserMap) Unlock(ctx context.Context, userID string) (bool, error) {
	if !m.IsLocked {
		return true, nil
	}
	unlocked := true
	if m.Desc.RequireType == RequireTypePack || m.Desc.RequireType == RequireTypeSingle {
		if m.owner == nil {
			return false, nil
		}
		owned, err := m.owner.OwnsItem(ctx, userID, m.Desc.RequireType, m.Desc.RequireID)
		if err != nil {
			return false, err
		}
		unlocked = owned
	}
	if unlocked {
		m.IsLocked = false
		m.CurrPosition = 0
		m.CurrCapture = 0
	}
	return unlocked, nil
}

// Climb advances position/capture by stepValue, the direct port of
// original_source's `UserMap.climb`. lephonState is read and written in
// place: for lephon_nell it drives the phase machine; for every other map
// it is ignored (spec.md narrows the original's unconditional teleport
// checks to "lephon only").
func (m *UserMap) Climb(stepValue float64, play *PlayResult, lephonState *int) error {
	if m.IsLocked {
		return errors.ErrMapLocked
	}
	if m.Desc.IsBeyond && stepValue < 0 {
		return errors.ErrNegativeStepOnBeyond
	}

	isLephon := m.MapID == lephonMapID && lephonState != nil
	m.lephonActive = false

	if isLephon {
		state := *lephonState
		if state == 0 {
			curStep := m.stepAt(m.CurrPosition)
			if curStep.hasTag(StepTagWallImpossible) {
				m.stepsModified = true
				state = 1
			}
		} else if state > 0 && state < 3 {
			state++
			m.stepsModified = true
		}
		if state != 0 {
			phaseSteps, err := m.catalog.GetLephonPhase(state)
			if err != nil {
				return err
			}
			m.steps = phaseSteps
		}
		*lephonState = state

		curStep := m.stepAt(m.CurrPosition)
		if !m.lephonFinal && (curStep.hasTag(StepTagWallNell) || curStep.hasTag(StepTagWallImpossible)) {
			m.lephonActive = true
		}
	}

	m.PrevPosition = m.CurrPosition
	m.PrevCapture = m.CurrCapture

	curStep := m.stepAt(m.CurrPosition)
	if len(curStep.StepType) > 0 {
		if !m.lephonFinal && m.lephonActive {
			if play.NellToggle {
				m.fastForwardLephonWall()
				return nil
			}
			stepValue = 0
		}
		if !m.lephonFinal && curStep.hasTag(StepTagWallImpossible) {
			stepValue = 0
		}
		if m.lephonFinal && curStep.hasTag(StepTagSpecialLamentRain) {
			stepValue = 0
		}
	}

	if isLephon {
		switch *lephonState {
		case 1:
			m.teleportTo(lephonPhase1Position)
			return nil
		case 2:
			m.teleportTo(lephonPhase2Position)
			return nil
		case 3:
			if m.PrevPosition == lephonPhase2Position {
				m.teleportTo(lephonPhase3Position)
				return nil
			}
		}
	}

	if m.lephonFinal {
		if play.ClearType == 0 {
			m.recoilFromFinalPhaseFailure()
		}
		return nil
	}

	if m.Desc.IsBeyond {
		m.climbBeyond(stepValue)
	} else {
		m.climbNormal(stepValue)
	}
	return nil
}

func (m *UserMap) teleportTo(position int) {
	m.CurrPosition = position
	m.CurrCapture = 1
	m.PrevPosition = m.CurrPosition
	m.PrevCapture = m.CurrCapture
}

func (m *UserMap) fastForwardLephonWall() {
	i, j := m.CurrPosition, m.CurrCapture
	remaining := lephonToggleForwardTiles
	for remaining > 0 && i < len(m.steps) {
		if m.steps[i].hasTag(StepTagWallImpossible) {
			break
		}
		j += float64(m.steps[i].Capture)
		i++
		remaining--
	}
	if i >= len(m.steps) {
		m.CurrPosition = len(m.steps) - 1
		m.CurrCapture = 0
		return
	}
	m.CurrPosition = i
	m.CurrCapture = j
}

func (m *UserMap) recoilFromFinalPhaseFailure() {
	i, j := m.CurrPosition, m.CurrCapture
	remaining := lephonFinalRecoilTiles
	for remaining > 0 && i >= 0 {
		j -= float64(m.steps[i].Capture)
		i--
		remaining--
	}
	if i < 0 {
		m.CurrPosition = 0
		m.CurrCapture = 0
		return
	}
	m.CurrPosition = i
	m.CurrCapture = j
}

func (m *UserMap) climbBeyond(stepValue float64) {
	remainingHealth := float64(m.Desc.BeyondHealth) - m.PrevCapture
	if remainingHealth >= stepValue {
		m.CurrCapture = m.PrevCapture + stepValue
	} else {
		m.CurrCapture = float64(m.Desc.BeyondHealth)
	}

	i := 0
	t := m.PrevCapture + stepValue
	for i < len(m.steps) && t > 0 {
		capture := float64(m.steps[i].Capture)
		if capture > t {
			t = 0
		} else {
			t -= capture
			i++
		}
	}
	if i >= len(m.steps) {
		m.CurrPosition = len(m.steps) - 1
	} else {
		m.CurrPosition = i
	}
}

func (m *UserMap) climbNormal(stepValue float64) {
	i, j := m.PrevPosition, m.PrevCapture
	t := stepValue
	for t > 0 && i < len(m.steps) {
		step := &m.steps[i]
		if len(step.StepType) > 0 {
			if step.hasTag(StepTagWallImpossible) || (!m.lephonActive && step.hasTag(StepTagWallNell)) {
				break
			}
		}
		remaining := float64(step.Capture) - j
		if remaining > t {
			j += t
			t = 0
		} else {
			t -= remaining
			j = 0
			i++
		}
	}
	if i >= len(m.steps) {
		m.CurrPosition = len(m.steps) - 1
		m.CurrCapture = 0
		return
	}
	m.CurrPosition = i
	m.CurrCapture = j
}

func (m *UserMap) stepAt(position int) *Step {
	if position < 0 || position >= len(m.steps) {
		return nil
	}
	return &m.steps[position]
}

// Reclimb restarts the climb from the previous checkpoint, used when a
// play must be redone in place (original_source's `UserMap.reclimb`).
func (m *UserMap) Reclimb(stepValue float64, play *PlayResult, lephonState *int) error {
	m.CurrPosition = m.PrevPosition
	m.CurrCapture = m.PrevCapture
	return m.Climb(stepValue, play, lephonState)
}

// RewardsForClimbing lists every step reward crossed between the previous
// and current position, inclusive of the endpoint reached.
func (m *UserMap) RewardsForClimbing() []StepReward {
	lo, hi := m.PrevPosition, m.CurrPosition
	if lo > hi {
		lo, hi = hi, lo
	}
	var out []StepReward
	for i := lo + 1; i <= hi; i++ {
		if i < 0 || i >= len(m.steps) {
			continue
		}
		if step := m.steps[i]; len(step.Items) > 0 {
			out = append(out, StepReward{Position: step.Position, Items: step.Items})
		}
	}
	return out
}

// StepsForClimbing returns every step traversed between the previous and
// current position, inclusive of both endpoints.
func (m *UserMap) StepsForClimbing() []Step {
	lo, hi := m.PrevPosition, m.CurrPosition
	if lo > hi {
		lo, hi = hi, lo
	}
	lo = clampInt(lo, 0, len(m.steps)-1)
	hi = clampInt(hi, 0, len(m.steps)-1)
	if lo > hi {
		return nil
	}
	return m.steps[lo : hi+1]
}

// Persist writes the user's (position, capture, locked) row back, rounding
// the working float64 capture to the nearest integer exactly once, at this
// persistence boundary, using math.Round, which rounds halves away from
// zero (original_source's own capture arithmetic never lands reliably on
// a .5 boundary either way).
func (m *UserMap) Persist(ctx context.Context, nk runtime.NakamaModule, userID string) error {
	state := &UserMapState{
		CurrPosition: m.CurrPosition,
		CurrCapture:  int(math.Round(m.CurrCapture)),
		IsLocked:     m.IsLocked,
	}
	v, err := writeUserMapState(ctx, nk, userID, m.MapID, state, m.version)
	if err != nil {
		return fmt.Errorf("persist user map %s: %w", m.MapID, err)
	}
	m.version = v
	return nil
}
