package world

import "math"

// DeriveStamina computes current stamina from the stored max_stamina_ts
// checkpoint, the same way original_source's Stamina.stamina getter does:
// the checkpoint alone tells us how many ticks are left to recover, but an
// overfill grant (stamina pushed above MaxStamina by a reward) has no tick
// count to recover from, so it is carried separately in storedStamina and
// only consulted once the checkpoint math already says "full or above".
func DeriveStamina(maxStaminaTs, nowMs int64, storedStamina int, cfg Constant) int {
	stamina := int(math.Round(float64(cfg.MaxStamina) - float64(maxStaminaTs-nowMs)/float64(cfg.StaminaRecoverTickMs)))
	if stamina >= cfg.MaxStamina {
		if storedStamina >= cfg.MaxStamina {
			return storedStamina
		}
		return cfg.MaxStamina
	}
	return stamina
}

// SetStamina rewrites both max_stamina_ts and the stored overfill field so
// that DeriveStamina(state.MaxStaminaTs, nowMs, state.Stamina, cfg) == value
// immediately after the call — ported from original_source's stamina
// setter, which always moves the checkpoint rather than writing the
// recovered value directly.
func SetStamina(state *UserState, value int, nowMs int64, cfg Constant) {
	state.Stamina = value
	state.MaxStaminaTs = nowMs - int64(value-cfg.MaxStamina)*cfg.StaminaRecoverTickMs
}

// DeductStamina spends cost stamina for a token issuance. It returns false
// and leaves state untouched if the player cannot currently afford it.
func DeductStamina(state *UserState, cost int, nowMs int64, cfg Constant) bool {
	current := DeriveStamina(state.MaxStaminaTs, nowMs, state.Stamina, cfg)
	if current < cost {
		return false
	}
	SetStamina(state, current-cost, nowMs, cfg)
	return true
}

// RefundStamina credits cost stamina back, used when a token is abandoned
// without being redeemed.
func RefundStamina(state *UserState, cost int, nowMs int64, cfg Constant) {
	current := DeriveStamina(state.MaxStaminaTs, nowMs, state.Stamina, cfg)
	SetStamina(state, current+cost, nowMs, cfg)
}
