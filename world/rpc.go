package world

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"crab.casa/world-server/errors"
	"crab.casa/world-server/notify"
)

// Engine bundles every long-lived collaborator an RPC handler needs: the
// parsed map catalog, tunables, and the ownership collaborator. One Engine
// is built once in InitModule and closed over by every registered RPC.
type Engine struct {
	Catalog *MapCatalog
	Config  Constant
	Owner   ItemOwnershipChecker
}

func nowMs() int64 { return time.Now().UnixMilli() }

// --- GET /score/token/world ------------------------------------------------

type tokenRequest struct {
	MapID string `json:"map_id"`

	// SkillID/IsSkillSealed and the multipliers are bound to the token at
	// reserve time (original_source's GET /score/token/world query
	// params), not at submission — see IssueWorldToken.
	SkillID               string `json:"skill_id,omitempty"`
	IsSkillSealed         bool   `json:"is_skill_sealed"`
	StaminaMultiply       *int   `json:"stamina_multiply,omitempty"`
	FragmentMultiply      *int   `json:"fragment_multiply,omitempty"`
	ProgBoostMultiply     *int   `json:"prog_boost_multiply,omitempty"`
	BeyondBoostGaugeUsage *int   `json:"beyond_boost_gauge_use,omitempty"`
}

type tokenResponse struct {
	Token            string `json:"token"`
	CurrentStamina   int    `json:"current_stamina"`
	MaxStaminaTs     int64  `json:"max_stamina_ts"`
}

// RpcWorldToken issues a play token for a map, deducting its stamina cost
// up front. This is the token-gate spec §4.6 describes: a play session
// cannot submit a score without first holding a freshly issued token.
func (e *Engine) RpcWorldToken(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := GetUserIDFromContext(ctx, logger)
	if err != nil {
		return "", err
	}
	var req tokenRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil || req.MapID == "" {
		return "", errors.ErrInputError
	}

	desc, err := e.Catalog.GetMapDescriptor(req.MapID)
	if err != nil {
		logError(ctx, logger, "map not found for token issuance", err)
		return "", err
	}

	now := nowMs()
	token, _, err := IssueWorldToken(ctx, nk, userID, req.MapID, desc.StaminaCost, now, e.Config,
		req.SkillID, req.IsSkillSealed,
		intOr(req.StaminaMultiply, 1), intOr(req.FragmentMultiply, 100),
		intOr(req.ProgBoostMultiply, 0), intOr(req.BeyondBoostGaugeUsage, 0))
	if err != nil {
		return "", err
	}

	state, err := readUserState(ctx, nk, userID, e.Config)
	if err != nil {
		return "", err
	}
	resp := tokenResponse{
		Token:          token,
		CurrentStamina: DeriveStamina(state.MaxStaminaTs, now, state.Stamina, e.Config),
		MaxStaminaTs:   state.MaxStaminaTs,
	}
	out, err := json.Marshal(resp)
	if err != nil {
		return "", errors.ErrMarshal
	}
	logInfo(ctx, logger, "world token issued for map "+req.MapID)
	return string(out), nil
}

// --- POST /score/song -------------------------------------------------------

type playRequest struct {
	Token  string      `json:"token"`
	Result PlayResult  `json:"play_result"`
	Character CharacterSnapshot `json:"character"`
	Mode      int             `json:"mode"`
}

type playResponse struct {
	Rewards           []StepReward `json:"rewards"`
	Progress          float64      `json:"progress"`
	BaseProgress      float64      `json:"base_progress"`
	NewPosition       int          `json:"new_position"`
	NewCapture        int          `json:"new_capture"`
	StepsModified     bool         `json:"steps_modified"`
	LephonActive      bool         `json:"lephon_active"`
	LephonFinal       bool         `json:"lephon_final"`
	CurrentStamina    int          `json:"current_stamina"`
	BeyondBoostGauge  float64      `json:"beyond_boost_gauge"`
}

// RpcWorldPlay is the single entrypoint that redeems a token, runs the
// full World Mode update pipeline, and persists the result. The user map
// row, the world_user row and the character row are each written by their
// own storage call, one after another; only the chapter-completion counter
// goes through nk.MultiUpdate. The writes of one play are not committed as
// a single atomic transaction.
func (e *Engine) RpcWorldPlay(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := GetUserIDFromContext(ctx, logger)
	if err != nil {
		return "", err
	}
	var req playRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil || req.Token == "" {
		return "", errors.ErrInputError
	}

	pending, err := RedeemWorldToken(ctx, nk, userID, req.Token)
	if err != nil {
		return "", err
	}

	now := nowMs()
	state, err := readUserState(ctx, nk, userID, e.Config)
	if err != nil {
		return "", err
	}
	if state.WorldModeLockedEndTs > now {
		return "", errors.ErrMapLocked
	}

	um, err := LoadUserMap(ctx, nk, e.Catalog, e.Owner, userID, pending.MapID, state.LephonNellState)
	if err != nil {
		return "", err
	}
	if um.IsLocked {
		return "", errors.ErrMapLocked
	}

	mode := CharacterModeNormal
	if req.Mode == int(CharacterModeFullUnlock) || e.Config.CharacterFullUnlock {
		mode = CharacterModeFullUnlock
	}

	var charProg *CharacterProgression
	if !req.Character.IsFullUnlockTable {
		charProg, err = readCharacterProgression(ctx, nk, userID, req.Character.CharacterID)
		if err != nil {
			return "", err
		}
		req.Character.Level = charProg.Level
		req.Character.SkillFlag = charProg.SkillState
	}

	play := req.Result
	switch pending.SkillID {
	case "skill_ilith_ivy", "skill_hikari_vanessa":
		play.SkillCytusiiFlag = pending.SkillFlags
	case "skill_chinatsu":
		play.SkillChinatsuFlag = pending.SkillFlags
	}
	play.StaminaMultiply = float64(pending.StaminaMultiply)
	play.FragmentMultiply = float64(pending.FragmentMultiply)
	play.ProgBoostMultiply = float64(pending.ProgBoostMultiply)
	play.BeyondBoostGaugeUsage = float64(pending.BeyondBoostGaugeUsage)

	variant := VariantNormal
	if um.Desc.IsBreached {
		variant = VariantBreached
	} else if um.Desc.IsBeyond {
		variant = VariantBeyond
	}

	wp := NewWorldPlay(ctx, nk, logger, userID, e.Config, now, variant, um, &play, state, charProg, req.Character, mode)
	wp.currentStamina = DeriveStamina(state.MaxStaminaTs, now, state.Stamina, e.Config)
	wp.SumCharacterLevels = func(ctx context.Context) (int, error) { return SumCharacterLevels(ctx, nk, userID) }
	wp.ChapterCompletion = func(ctx context.Context, chapterID int) (int, int, error) {
		return ChapterCompletion(ctx, nk, e.Catalog, userID, chapterID)
	}

	rewards, err := wp.Update()
	if err != nil {
		return "", err
	}

	pw := NewPendingWrites()
	if err := um.Persist(ctx, nk, userID); err != nil {
		return "", err
	}
	if wp.WorldLockedUntilTs != nil {
		state.WorldModeLockedEndTs = *wp.WorldLockedUntilTs
	}
	if _, err := writeUserState(ctx, nk, userID, state); err != nil {
		return "", err
	}
	if charProg != nil {
		if _, err := writeCharacterProgression(ctx, nk, userID, req.Character.CharacterID, charProg); err != nil {
			return "", err
		}
	}
	if um.Desc.Chapter != nil && !um.Desc.IsRepeatable && um.CurrPosition == len(um.steps)-1 && um.PrevPosition != len(um.steps)-1 {
		write, err := MarkMapCompleted(ctx, nk, userID, *um.Desc.Chapter)
		if err == nil {
			pw.AddStorageWrite(write)
		}
	}

	payloadOut := wp.BuildRewardPayload(rewards)
	if err := notify.SendReward(ctx, nk, userID, payloadOut); err != nil {
		logWarn(ctx, logger, "reward notification failed: "+err.Error())
	}
	if wp.WorldLockedUntilTs != nil {
		if err := notify.SendWorldLocked(ctx, nk, userID, *wp.WorldLockedUntilTs); err != nil {
			logWarn(ctx, logger, "world-locked notification failed: "+err.Error())
		}
	}
	if len(pw.StorageWrites) > 0 {
		if _, _, err := nk.MultiUpdate(ctx, nil, pw.StorageWrites, nil, nil, true); err != nil {
			logError(ctx, logger, "failed to commit chapter completion counter", err)
		}
	}

	resp := playResponse{
		Rewards:          rewards,
		Progress:         wp.FinalProgress(),
		BaseProgress:     wp.BaseProgress(),
		NewPosition:      um.CurrPosition,
		NewCapture:       int(math.Round(um.CurrCapture)),
		StepsModified:    um.stepsModified,
		LephonActive:     um.lephonActive,
		LephonFinal:      um.lephonFinal,
		CurrentStamina:   wp.currentStamina,
		BeyondBoostGauge: state.BeyondBoostGauge,
	}
	out, err := json.Marshal(resp)
	if err != nil {
		return "", errors.ErrMarshal
	}
	logDebug(ctx, logger, "world play completed for map "+um.MapID)
	return string(out), nil
}

// --- GET /score/token/world abandonment ------------------------------------

type abandonRequest struct {
	Token string `json:"token"`
}

// RpcWorldTokenAbandon refunds a token's stamina without requiring a play
// result, for clients that back out of a selected map before playing.
func (e *Engine) RpcWorldTokenAbandon(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := GetUserIDFromContext(ctx, logger)
	if err != nil {
		return "", err
	}
	var req abandonRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil || req.Token == "" {
		return "", errors.ErrInputError
	}
	if err := AbandonWorldToken(ctx, nk, userID, req.Token, nowMs(), e.Config); err != nil {
		return "", err
	}
	return "{}", nil
}

// --- map listing / unlock ----------------------------------------------------

type userMapResponse struct {
	MapID        string `json:"map_id"`
	CurrPosition int    `json:"curr_position"`
	CurrCapture  int    `json:"curr_capture"`
	IsLocked     bool   `json:"is_locked"`
}

func (e *Engine) RpcGetUserMap(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := GetUserIDFromContext(ctx, logger)
	if err != nil {
		return "", err
	}
	var req tokenRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil || req.MapID == "" {
		return "", errors.ErrInputError
	}
	state, err := readUserState(ctx, nk, userID, e.Config)
	if err != nil {
		return "", err
	}
	um, err := LoadUserMap(ctx, nk, e.Catalog, e.Owner, userID, req.MapID, state.LephonNellState)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(userMapResponse{
		MapID:        um.MapID,
		CurrPosition: um.CurrPosition,
		CurrCapture:  int(um.CurrCapture),
		IsLocked:     um.IsLocked,
	})
	if err != nil {
		return "", errors.ErrMarshal
	}
	return string(out), nil
}

func (e *Engine) RpcUnlockMap(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := GetUserIDFromContext(ctx, logger)
	if err != nil {
		return "", err
	}
	var req tokenRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil || req.MapID == "" {
		return "", errors.ErrInputError
	}
	state, err := readUserState(ctx, nk, userID, e.Config)
	if err != nil {
		return "", err
	}
	um, err := LoadUserMap(ctx, nk, e.Catalog, e.Owner, userID, req.MapID, state.LephonNellState)
	if err != nil {
		return "", err
	}
	unlocked, err := um.Unlock(ctx, userID)
	if err != nil {
		return "", err
	}
	if !unlocked {
		return "", errors.ErrItemUnavailable
	}
	if err := um.Persist(ctx, nk, userID); err != nil {
		return "", err
	}
	return "{}", nil
}
