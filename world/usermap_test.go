package world

import (
	"context"
	"testing"

	"crab.casa/world-server/errors"
)

func newNormalMap(steps []Step) *UserMap {
	return &UserMap{
		Desc:  &MapDescriptor{Steps: steps},
		MapID: "normal_map",
		steps: steps,
	}
}

func TestClimbNormalAdvancesWithinAStep(t *testing.T) {
	m := newNormalMap([]Step{{Capture: 10}, {Capture: 10}})
	if err := m.Climb(4, &PlayResult{}, nil); err != nil {
		t.Fatalf("Climb: %v", err)
	}
	if m.CurrPosition != 0 || m.CurrCapture != 4 {
		t.Errorf("expected (0, 4), got (%d, %v)", m.CurrPosition, m.CurrCapture)
	}
}

func TestClimbNormalCrossesSteps(t *testing.T) {
	m := newNormalMap([]Step{{Capture: 4}, {Capture: 4}, {Capture: 6}})
	if err := m.Climb(10, &PlayResult{}, nil); err != nil {
		t.Fatalf("Climb: %v", err)
	}
	if m.CurrPosition != 2 || m.CurrCapture != 2 {
		t.Errorf("expected (2, 2), got (%d, %v)", m.CurrPosition, m.CurrCapture)
	}
}

func TestClimbNormalStopsAtLastStep(t *testing.T) {
	m := newNormalMap([]Step{{Capture: 4}, {Capture: 4}})
	if err := m.Climb(100, &PlayResult{}, nil); err != nil {
		t.Fatalf("Climb: %v", err)
	}
	if m.CurrPosition != 1 || m.CurrCapture != 0 {
		t.Errorf("expected to clamp at the last step (1, 0), got (%d, %v)", m.CurrPosition, m.CurrCapture)
	}
}

func TestClimbLockedMapErrors(t *testing.T) {
	m := newNormalMap([]Step{{Capture: 4}})
	m.IsLocked = true
	if err := m.Climb(1, &PlayResult{}, nil); err != errors.ErrMapLocked {
		t.Errorf("expected ErrMapLocked, got %v", err)
	}
}

func TestClimbStopsAtWallImpossible(t *testing.T) {
	m := newNormalMap([]Step{{Capture: 4}, {Capture: 4, StepType: []string{StepTagWallImpossible}}, {Capture: 4}})
	if err := m.Climb(100, &PlayResult{}, nil); err != nil {
		t.Fatalf("Climb: %v", err)
	}
	if m.CurrPosition != 1 || m.CurrCapture != 0 {
		t.Errorf("expected to stop at the wall (1, 0), got (%d, %v)", m.CurrPosition, m.CurrCapture)
	}
}

func TestClimbBeyondCapsAtHealth(t *testing.T) {
	m := newNormalMap([]Step{{Capture: 50}, {Capture: 50}})
	m.Desc.IsBeyond = true
	m.Desc.BeyondHealth = 80
	if err := m.Climb(100, &PlayResult{}, nil); err != nil {
		t.Fatalf("Climb: %v", err)
	}
	if m.CurrCapture != 80 {
		t.Errorf("expected capture capped at beyond_health 80, got %v", m.CurrCapture)
	}
}

func TestClimbBeyondRejectsNegativeStep(t *testing.T) {
	m := newNormalMap([]Step{{Capture: 50}})
	m.Desc.IsBeyond = true
	if err := m.Climb(-1, &PlayResult{}, nil); err != errors.ErrNegativeStepOnBeyond {
		t.Errorf("expected ErrNegativeStepOnBeyond, got %v", err)
	}
}

func TestRewardsForClimbingCollectsCrossedSteps(t *testing.T) {
	m := newNormalMap([]Step{
		{Capture: 4},
		{Position: 1, Capture: 4, Items: []RewardItem{{ItemType: "fragment", Amount: 10}}},
		{Position: 2, Capture: 4, Items: []RewardItem{{ItemType: "core", Amount: 1}}},
	})
	m.PrevPosition = 0
	m.CurrPosition = 2
	rewards := m.RewardsForClimbing()
	if len(rewards) != 2 {
		t.Fatalf("expected 2 reward steps, got %d (%+v)", len(rewards), rewards)
	}
	if rewards[0].Position != 1 || rewards[1].Position != 2 {
		t.Errorf("unexpected reward positions: %+v", rewards)
	}
}

func TestStepsForClimbingIsInclusiveBothEnds(t *testing.T) {
	m := newNormalMap([]Step{{Capture: 4}, {Capture: 4}, {Capture: 4}})
	m.PrevPosition = 0
	m.CurrPosition = 2
	steps := m.StepsForClimbing()
	if len(steps) != 3 {
		t.Errorf("expected 3 steps inclusive of both ends, got %d", len(steps))
	}
}

type stubOwner struct {
	owns bool
	err  error
}

func (s stubOwner) OwnsItem(ctx context.Context, userID, requireType, requireID string) (bool, error) {
	return s.owns, s.err
}

func TestUnlockWithNoRequirement(t *testing.T) {
	m := newNormalMap([]Step{{Capture: 4}})
	m.IsLocked = true
	ok, err := m.Unlock(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if !ok || m.IsLocked {
		t.Errorf("expected an unrestricted map to unlock unconditionally")
	}
}

func TestUnlockRequiresOwnership(t *testing.T) {
	m := newNormalMap([]Step{{Capture: 4}})
	m.IsLocked = true
	m.Desc.RequireType = RequireTypePack
	m.Desc.RequireID = "pack_1"
	m.owner = stubOwner{owns: false}
	ok, err := m.Unlock(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if ok || !m.IsLocked {
		t.Errorf("expected the map to stay locked without ownership")
	}

	m.owner = stubOwner{owns: true}
	ok, err = m.Unlock(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if !ok || m.IsLocked {
		t.Errorf("expected the map to unlock once ownership is confirmed")
	}
}
