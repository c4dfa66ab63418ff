package world

import (
	"context"
	"strconv"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Constant holds the environment-driven tunables that original_source's
// Constant/Config classes externalise. Defaults match that source; a
// runtime environment map (Nakama's initializer env, read once at
// InitModule time) may override MaxStamina, StaminaRecoverTickMs,
// SkillFatalisWorldLockedMs and CharacterFullUnlock. The uncap bonuses and
// SkillMikaSongs always keep their compiled-in defaults.
type Constant struct {
	MaxStamina                 int
	StaminaRecoverTickMs       int64
	SkillFatalisWorldLockedMs  int64
	EtoUncapBonusProgress      float64
	LunaUncapBonusProgress     float64
	AyuUncapBonusProgress      int
	SkillMikaSongs             map[string]struct{}
	CharacterFullUnlock        bool
}

// DefaultConstant reproduces original_source's compiled-in defaults.
func DefaultConstant() Constant {
	return Constant{
		MaxStamina:                12,
		StaminaRecoverTickMs:       30 * 60 * 1000, // one stamina point per 30 minutes
		SkillFatalisWorldLockedMs:  60 * 60 * 1000, // 60 minutes
		EtoUncapBonusProgress:      7,
		LunaUncapBonusProgress:     7,
		AyuUncapBonusProgress:      5,
		SkillMikaSongs:             map[string]struct{}{},
		CharacterFullUnlock:        false,
	}
}

// LoadConstantFromEnv overlays a Nakama runtime env map (as handed to
// InitModule via initializer config, or ctx) onto the compiled-in
// defaults. Missing/unparsable keys keep their default.
func LoadConstantFromEnv(env map[string]string) Constant {
	c := DefaultConstant()
	if env == nil {
		return c
	}
	if v, ok := env["WORLD_MAX_STAMINA"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxStamina = n
		}
	}
	if v, ok := env["WORLD_STAMINA_RECOVER_TICK_MS"]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.StaminaRecoverTickMs = n
		}
	}
	if v, ok := env["WORLD_SKILL_FATALIS_LOCKED_MS"]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.SkillFatalisWorldLockedMs = n
		}
	}
	if v, ok := env["WORLD_CHARACTER_FULL_UNLOCK"]; ok {
		c.CharacterFullUnlock = v == "1" || v == "true"
	}
	return c
}

// envFromContext extracts the Nakama runtime env map from ctx, as set
// on every RPC invocation under runtime.RUNTIME_CTX_ENV.
func envFromContext(ctx context.Context) map[string]string {
	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		return env
	}
	return nil
}
