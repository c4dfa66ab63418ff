package world

import "math"

// Breached-map laws. A breached map names one of these in its new_law
// field; BreachedBeforeCalculate dispatches to the matching formula before
// the first reclimb, the direct port of original_source's
// WorldLawMixin.breached_before_calculate.
var lawHooks = map[string]func(*WorldPlay){
	"over100_step50": lawOver100Step50,
	"frag50":          lawFrag50,
	"lowlevel":        lawLowLevel,
	"antiheroism":     lawAntiheroism,
}

// BreachedBeforeCalculate applies the map's law, if any, setting NewLawProg
// which NewLawMultiply and ProgressNormalized then consume.
func (p *WorldPlay) BreachedBeforeCalculate() {
	if p.UserMap.Desc.NewLaw == "" {
		return
	}
	if hook, ok := lawHooks[p.UserMap.Desc.NewLaw]; ok {
		hook(p)
	}
}

func (p *WorldPlay) effectiveOver() float64 {
	v := p.Character.OverdriveValue
	if p.OverSkillIncrease != nil {
		v += *p.OverSkillIncrease
	}
	return v
}

func (p *WorldPlay) effectiveProg() float64 {
	v := p.Character.ProgValue
	if p.ProgSkillIncrease != nil {
		v += *p.ProgSkillIncrease
	}
	return v
}

// lawOver100Step50: PROG = OVER + STEP/2.
func lawOver100Step50(p *WorldPlay) {
	v := p.effectiveOver() + p.effectiveProg()/2
	p.NewLawProg = &v
}

// lawFrag50: PROG := FRAG.
func lawFrag50(p *WorldPlay) {
	v := p.Character.FragValue
	p.NewLawProg = &v
}

// lawLowLevel: PROG := 50 * max(1, 2 - 0.1*LEVEL).
func lawLowLevel(p *WorldPlay) {
	v := 50 * math.Max(1, 2-0.1*float64(p.Character.Level))
	p.NewLawProg = &v
}

// lawAntiheroism: PROG = OVER - ||OVER-FRAG| - |OVER-STEP||.
func lawAntiheroism(p *WorldPlay) {
	over := p.effectiveOver()
	prog := p.effectiveProg()
	x := math.Abs(over - p.Character.FragValue)
	y := math.Abs(over - prog)
	v := over - math.Abs(x-y)
	p.NewLawProg = &v
}
