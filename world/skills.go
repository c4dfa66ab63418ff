package world

import (
	"context"
	"math/rand"
)

// Pre-hooks run inside WorldPlay.BeforeCalculate, dispatched by
// CharacterSnapshot.SkillIDDisplayed — the direct port of
// original_source's WorldSkillMixin.before_calculate factory_dict.
var preHooks = map[string]func(*WorldPlay){
	"skill_vita":            skillVita,
	"skill_mika":             skillMika,
	"skill_ilith_ivy":        skillIlithIvy,
	"ilith_awakened_skill":   ilithAwakenedSkill,
	"skill_hikari_vanessa":   skillHikariVanessa,
	"skill_mithra":           skillMithra,
	"skill_chinatsu":         skillChinatsu,
	"skill_salt":             skillSalt,
	"skill_hikari_selene":    skillHikariSelene,
	"skill_nami_sui":         skillNamiSui,
}

// Post-hooks run inside WorldPlay.AfterClimb, after the first climb.
var postHooks = map[string]func(*WorldPlay){
	"eto_uncap":          etoUncap,
	"ayu_uncap":          ayuUncap,
	"skill_fatalis":      skillFatalis,
	"skill_amane":        skillAmane,
	"skill_maya":         skillMaya,
	"luna_uncap":         lunaUncap,
	"skill_kanae_uncap":  skillKanaeUncap,
	"skill_eto_hoppe":    skillEtoHoppe,
	"skill_intruder":     skillIntruder,
}

// BeforeCalculate runs special_tempest's partner-agnostic gate (hardcoded
// to character 35) and then any per-character skill hook, exactly the
// order original_source evaluates them in.
func (p *WorldPlay) BeforeCalculate(ctx context.Context) error {
	if p.Play.BeyondGaugeFlag == 0 && p.Character.CharacterID == 35 && p.Character.SkillIDDisplayed != "" {
		if err := specialTempest(ctx, p); err != nil {
			return err
		}
	}
	if hook, ok := preHooks[p.Character.SkillIDDisplayed]; ok {
		hook(p)
	}
	return nil
}

// AfterClimb runs the per-character post hook, if any.
func (p *WorldPlay) AfterClimb() {
	if hook, ok := postHooks[p.Character.SkillIDDisplayed]; ok {
		hook(p)
	}
}

// specialTempest scales prog with the sum of every character's level in
// the player's roster (full-unlock mode short-circuits to the cap): the
// "storm vs. conflict" skill that rewards broad roster investment.
func specialTempest(ctx context.Context, p *WorldPlay) error {
	var tempest float64
	if p.Mode == CharacterModeFullUnlock {
		tempest = 60
	} else if p.SumCharacterLevels != nil {
		sum, err := p.SumCharacterLevels(ctx)
		if err != nil {
			return err
		}
		tempest = float64(sum) / 10
	}
	tempest = clampFloat(tempest, 0, 60)
	p.ProgTempest = &tempest
	return nil
}

func skillVita(p *WorldPlay) {
	var v float64
	if p.Play.Health > 0 && p.Play.Health <= 100 {
		v = float64(p.Play.Health) / 10
	}
	p.OverSkillIncrease = &v
}

func skillMika(p *WorldPlay) {
	if p.Play.ClearType == 0 {
		return
	}
	if _, ok := p.cfg.SkillMikaSongs[p.Play.SongID]; !ok {
		return
	}
	over := p.Character.OverdriveValue
	prog := p.Character.ProgValue
	p.OverSkillIncrease = &over
	p.ProgSkillIncrease = &prog
}

func skillMithra(p *WorldPlay) {
	if p.Play.ComboIntervalBonus != 0 {
		v := float64(p.Play.ComboIntervalBonus)
		p.CharacterBonusProgressNormalized = &v
	}
}

func skillIlithIvy(p *WorldPlay) {
	flag := p.Play.SkillCytusiiFlag
	if flag == "" {
		return
	}
	n := clampInt(p.Play.HighestHealth/20, 0, len(flag))
	x := flag[:n]
	over := float64(countRune(x, '2')) * 10
	prog := float64(countRune(x, '1')) * 10
	p.OverSkillIncrease = &over
	p.ProgSkillIncrease = &prog
}

func skillHikariVanessa(p *WorldPlay) {
	flag := p.Play.SkillCytusiiFlag
	if flag == "" {
		return
	}
	n := clampInt(5-p.Play.LowestHealth/20, 0, len(flag))
	x := flag[:n]
	over := -float64(countRune(x, '2')) * 10
	prog := -float64(countRune(x, '1')) * 10
	p.OverSkillIncrease = &over
	p.ProgSkillIncrease = &prog
}

func ilithAwakenedSkill(p *WorldPlay) {
	if p.Play.Health > 0 {
		v := 6.0
		p.ProgSkillIncrease = &v
	}
}

func skillChinatsu(p *WorldPlay) {
	flag := p.Play.SkillChinatsuFlag
	if p.Play.HpIntervalBonus == 0 || flag == "" {
		return
	}
	n := minInt(len(flag), p.Play.HpIntervalBonus)
	x := flag[:n]
	over := float64(countRune(x, '2')) * 5
	prog := float64(countRune(x, '1')) * 5
	p.OverSkillIncrease = &over
	p.ProgSkillIncrease = &prog
}

func skillSalt(p *WorldPlay) {
	if p.Mode == CharacterModeFullUnlock {
		v := 10.0
		p.CharacterBonusProgressNormalized = &v
		return
	}
	if p.ChapterCompletion == nil || p.UserMap.Desc.Chapter == nil {
		return
	}
	count, total, err := p.ChapterCompletion(p.ctx, *p.UserMap.Desc.Chapter)
	if err != nil || total == 0 {
		v := 10.0
		if total == 0 {
			p.CharacterBonusProgressNormalized = &v
		}
		return
	}
	if count > total {
		count = total
	}
	ratio := float64(count) / float64(total)
	v := 10 * ratio
	p.CharacterBonusProgressNormalized = &v
}

func skillHikariSelene(p *WorldPlay) {
	var over, prog float64
	if p.Play.Health > 0 && p.Play.Health <= 100 {
		over = float64(p.Play.Health/10) * 2
		prog = float64(p.Play.Health/10) * 2
	}
	p.OverSkillIncrease = &over
	p.ProgSkillIncrease = &prog
}

func skillNamiSui(p *WorldPlay) {
	if p.Play.FeverBonus == nil {
		return
	}
	v := *p.Play.FeverBonus / 1000
	p.CharacterBonusProgressNormalized = &v
}

// etoUncap grants +bonus progress the instant a climbed step pays out a
// fragment reward, then reclimbs with the boosted progress.
func etoUncap(p *WorldPlay) {
	fragmentFlag := false
	for _, reward := range p.UserMap.RewardsForClimbing() {
		for _, item := range reward.Items {
			if item.ItemType == "fragment" {
				fragmentFlag = true
				break
			}
		}
		if fragmentFlag {
			break
		}
	}
	if fragmentFlag {
		v := p.cfg.EtoUncapBonusProgress
		p.CharacterBonusProgressNormalized = &v
	}
	p.reclimb()
}

// lunaUncap grants +bonus progress when the step the climb started on was
// restricted (a "challenge" tile), then reclimbs.
func lunaUncap(p *WorldPlay) {
	steps := p.UserMap.StepsForClimbing()
	if len(steps) == 0 {
		return
	}
	first := steps[0]
	if first.RestrictID != "" && first.RestrictType != "" {
		v := p.cfg.LunaUncapBonusProgress
		p.CharacterBonusProgressNormalized = &v
		p.reclimb()
	}
}

// ayuUncap applies a random nudge to progress, clamped so the result never
// drives total progress negative, and always reclimbs.
func ayuUncap(p *WorldPlay) {
	bound := p.cfg.AyuUncapBonusProgress
	bonus := float64(rand.Intn(2*bound+1) - bound)
	if p.ProgressNormalized()+bonus < 0 {
		bonus = -p.ProgressNormalized()
	}
	p.CharacterBonusProgressNormalized = &bonus
	p.reclimb()
}

func skillFatalis(p *WorldPlay) {
	end := p.now() + p.cfg.SkillFatalisWorldLockedMs
	p.WorldLockedUntilTs = &end
}

// skillAmane halves progress if the climb started on a speed-limited or
// random-song tile and the play scored below EX.
func skillAmane(p *WorldPlay) {
	steps := p.UserMap.StepsForClimbing()
	if len(steps) == 0 {
		return
	}
	first := &steps[0]
	if (first.hasTag(StepTagRandomSong) || first.hasTag(StepTagSpeedLimit)) && p.Play.SongGrade < 5 {
		v := -p.ProgressNormalized() / 2
		p.CharacterBonusProgressNormalized = &v
		p.reclimb()
	}
}

// skillMaya doubles progress on every other climb, toggling the sticky
// flag unconditionally regardless of whether this climb doubled.
func skillMaya(p *WorldPlay) {
	if p.Character.SkillFlag {
		v := p.ProgressNormalized()
		p.CharacterBonusProgressNormalized = &v
		p.reclimb()
	}
	p.ToggleSkillState = true
}

// skillKanaeUncap banks this climb's progress for payout on the player's
// next play, but only when the current map costs stamina (free "infinite"
// taps never bank).
func skillKanaeUncap(p *WorldPlay) {
	if p.UserMap.Desc.StaminaCost > 0 {
		v := p.ProgressNormalized()
		p.KanaeStoredProgress = &v
		p.reclimb()
	}
}

func skillEtoHoppe(p *WorldPlay) {
	if p.currentStamina >= 6 {
		v := p.ProgressNormalized()
		p.CharacterBonusProgressNormalized = &v
		p.reclimb()
	}
}

func skillIntruder(p *WorldPlay) {
	if p.Play.InvasionFlag != 0 {
		v := p.ProgressNormalized()
		p.CharacterBonusProgressNormalized = &v
		p.reclimb()
	}
}

func countRune(s string, r rune) int {
	n := 0
	for _, c := range s {
		if c == r {
			n++
		}
	}
	return n
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
