package world

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/heroiclabs/nakama-common/runtime"

	"crab.casa/world-server/errors"
)

// PendingPlay is the hidden (PermissionRead 0) token row a client must
// echo back on POST /score/song before a climb is accepted. It pins the
// map and the stamina already spent so a late or replayed submission
// cannot be redirected to a different map.
type PendingPlay struct {
	UserID      string `json:"user_id"`
	MapID       string `json:"map_id"`
	StaminaCost int    `json:"stamina_cost"`
	IssuedAtMs  int64  `json:"issued_at_ms"`

	// SkillID is the skill the acting character displayed at reserve time,
	// carried through so redemption knows which PlayResult flag field
	// SkillFlags belongs in (skill_cytusii_flag vs skill_chinatsu_flag).
	SkillID string `json:"skill_id,omitempty"`

	// SkillFlags is the random {0,1,2} alphabet string some unsealed
	// skills (ilith/ivy, hikari/vanessa, chinatsu) consume at climb time —
	// generated once at issuance so the client can't bias the roll.
	SkillFlags string `json:"skill_flags,omitempty"`

	// Multipliers bound at reserve time, the same way original_source's
	// /score/token/world query params feed set_play_state_for_world — a
	// client cannot alter them by editing the later play submission.
	StaminaMultiply       int `json:"stamina_multiply"`
	FragmentMultiply      int `json:"fragment_multiply"`
	ProgBoostMultiply     int `json:"prog_boost_multiply"`
	BeyondBoostGaugeUsage int `json:"beyond_boost_gauge_use"`

	Version string `json:"-"`
}

// cytusiiFlagLen and chinatsuFlagLen are the skill flag string lengths
// original_source's score_token_world draws: 5 chars for skill_ilith_ivy /
// skill_hikari_vanessa, 7 for skill_chinatsu.
const (
	cytusiiFlagLen  = 5
	chinatsuFlagLen = 7
)

// IssueWorldToken deducts the map's stamina cost and mints a token the
// client must present with its play result. skillID/isSkillSealed select
// whether a random skill flag string is generated and at what length;
// the multipliers are bound now so the client cannot alter them later at
// submission time.
func IssueWorldToken(ctx context.Context, nk runtime.NakamaModule, userID, mapID string, staminaCost int, nowMs int64, cfg Constant, skillID string, isSkillSealed bool, staminaMultiply, fragmentMultiply, progBoostMultiply, beyondBoostGaugeUsage int) (string, *PendingPlay, error) {
	state, err := readUserState(ctx, nk, userID, cfg)
	if err != nil {
		return "", nil, err
	}
	if !DeductStamina(state, staminaCost, nowMs, cfg) {
		return "", nil, errors.ErrInputError
	}
	if _, err := writeUserState(ctx, nk, userID, state); err != nil {
		return "", nil, err
	}

	token, err := randomToken()
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}

	flagLen := 0
	if !isSkillSealed {
		switch skillID {
		case "skill_ilith_ivy", "skill_hikari_vanessa":
			flagLen = cytusiiFlagLen
		case "skill_chinatsu":
			flagLen = chinatsuFlagLen
		}
	}
	flags := ""
	if flagLen > 0 {
		flags, err = randomFlagString(flagLen)
		if err != nil {
			return "", nil, fmt.Errorf("generate skill flags: %w", err)
		}
	}
	pending := &PendingPlay{
		UserID:                userID,
		MapID:                 mapID,
		StaminaCost:           staminaCost,
		IssuedAtMs:            nowMs,
		SkillID:               skillID,
		SkillFlags:            flags,
		StaminaMultiply:       staminaMultiply,
		FragmentMultiply:      fragmentMultiply,
		ProgBoostMultiply:     progBoostMultiply,
		BeyondBoostGaugeUsage: beyondBoostGaugeUsage,
	}
	payload, err := marshalJSON(pending)
	if err != nil {
		return "", nil, err
	}
	if _, err := nk.StorageWrite(ctx, []*runtime.StorageWrite{
		{
			Collection:      collectionTokens,
			Key:             token,
			UserID:          userID,
			Value:           payload,
			PermissionRead:  0,
			PermissionWrite: 0,
		},
	}); err != nil {
		return "", nil, fmt.Errorf("%w: %s", errors.ErrCouldNotWriteStorage, err)
	}
	return token, pending, nil
}

// RedeemWorldToken reads and deletes a pending play, erroring if the token
// is unknown (already redeemed, never issued, or expired from storage).
func RedeemWorldToken(ctx context.Context, nk runtime.NakamaModule, userID, token string) (*PendingPlay, error) {
	objs, err := nk.StorageRead(ctx, []*runtime.StorageRead{
		{Collection: collectionTokens, Key: token, UserID: userID},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrCouldNotReadStorage, err)
	}
	if len(objs) == 0 {
		return nil, errors.ErrTokenInvalid
	}
	pending, err := UnmarshalJSON[PendingPlay](objs[0].Value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrUnmarshal, err)
	}
	if pending.UserID != userID {
		return nil, errors.ErrTokenInvalid
	}
	if err := nk.StorageDelete(ctx, []*runtime.StorageDelete{
		{Collection: collectionTokens, Key: token, UserID: userID},
	}); err != nil {
		return nil, fmt.Errorf("delete redeemed token: %w", err)
	}
	return pending, nil
}

// AbandonWorldToken redeems a token without a play result and refunds its
// stamina cost — the client gave up before submitting a score.
func AbandonWorldToken(ctx context.Context, nk runtime.NakamaModule, userID, token string, nowMs int64, cfg Constant) error {
	pending, err := RedeemWorldToken(ctx, nk, userID, token)
	if err != nil {
		return err
	}
	state, err := readUserState(ctx, nk, userID, cfg)
	if err != nil {
		return err
	}
	RefundStamina(state, pending.StaminaCost, nowMs, cfg)
	_, err = writeUserState(ctx, nk, userID, state)
	return err
}

func randomToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", b), nil
}

// randomFlagString draws n digits from {0,1,2}, the alphabet
// skill_ilith_ivy/skill_hikari_vanessa/skill_chinatsu count "1"s and "2"s
// out of.
func randomFlagString(n int) (string, error) {
	out := make([]byte, n)
	for i := range out {
		v, err := rand.Int(rand.Reader, big.NewInt(3))
		if err != nil {
			return "", err
		}
		out[i] = byte('0' + v.Int64())
	}
	return string(out), nil
}
