// Package world implements the World Mode progression engine: the map/step
// ladder, the progress-computation pipeline, the climb algorithm, the
// partner-skill and breached-map law registries, and the reward/stamina
// bookkeeping that a finished chart play triggers.
package world

// Storage collections. One row per (user, key) unless noted.
const (
	collectionMap    = "world_map"    // key=map_id, value=UserMapState
	collectionUser   = "world_user"   // key=userStateKey, value=UserState (stamina, gauge, lephon phase, ...)
	collectionChar   = "world_char"   // key=character_<id>, value=CharacterProgression
	collectionKV     = "world_kv"     // key=class_key, value=KVEntry — generic per-user counters (skill_salt)
	collectionTokens = "world_tokens" // key=token, value=PendingPlay — hidden (PermissionRead 0)
)

const userStateKey = "state"

// Step is a single rung of a Map ladder.
type Step struct {
	Position         int          `json:"position"`
	Capture          int          `json:"capture"`
	Items            []RewardItem `json:"items,omitempty"`
	RestrictID       string       `json:"restrict_id,omitempty"`
	RestrictIDs      []string     `json:"restrict_ids,omitempty"`
	RestrictType     string       `json:"restrict_type,omitempty"`
	RestrictDifficulty *int       `json:"restrict_difficulty,omitempty"`
	StepType         []string     `json:"step_type,omitempty"`
	SpeedLimitValue  int          `json:"speed_limit_value,omitempty"`
	PlusStaminaValue int          `json:"plus_stamina_value,omitempty"`
}

// hasTag reports whether the step carries the given step_type tag. A step
// with a nil/empty StepType has no tags — never treat that as a panic or a
// match (original_source's _skill_amane consults step_type with no null
// guard; this is the nil-safe equivalent).
func (s *Step) hasTag(tag string) bool {
	if s == nil {
		return false
	}
	for _, t := range s.StepType {
		if t == tag {
			return true
		}
	}
	return false
}

// RewardItem is one entry of a Step's reward list.
type RewardItem struct {
	ItemType string `json:"item_type"`
	ItemID   string `json:"item_id,omitempty"`
	Amount   int    `json:"amount,omitempty"`
}

// StepReward pairs a position with the items granted when it is traversed.
type StepReward struct {
	Position int          `json:"position"`
	Items    []RewardItem `json:"items"`
}

const (
	RequireTypeNone        = ""
	RequireTypePack        = "pack"
	RequireTypeSingle      = "single"
	RequireTypeWorld       = "world"
	RequireTypeCourse      = "course"
	RequireTypeAchievement = "achievement"
)

const (
	StepTagPlusStamina        = "plusstamina"
	StepTagRandomSong         = "randomsong"
	StepTagSpeedLimit         = "speedlimit"
	StepTagWallNell           = "wall_nell"
	StepTagWallImpossible     = "wall_impossible"
	StepTagSpecialLamentRain  = "special_lament_rain"
)

// Requirement is one structured prerequisite entry of `requires`/`requires_any`.
type Requirement struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Value int    `json:"value,omitempty"`
}

// MapDescriptor is the immutable, process-lifetime content of one map.
// It is loaded once by MapCatalog and never mutated after parse.
type MapDescriptor struct {
	MapID             string        `json:"-"`
	Chapter           *int          `json:"chapter,omitempty"`
	IsLegacy          bool          `json:"is_legacy"`
	IsBeyond          bool          `json:"is_beyond"`
	IsBreached        bool          `json:"is_breached"`
	BeyondHealth      int           `json:"beyond_health,omitempty"`
	CharacterAffinity []int         `json:"character_affinity,omitempty"`
	AffinityMultiplier []float64    `json:"affinity_multiplier,omitempty"`
	AvailableFrom     int64         `json:"available_from"`
	AvailableTo       int64         `json:"available_to"`
	IsRepeatable      bool          `json:"is_repeatable"`
	RequireID         string        `json:"require_id,omitempty"`
	RequireType       string        `json:"require_type,omitempty"`
	RequireValue      int           `json:"require_value"`
	Requires          []Requirement `json:"requires,omitempty"`
	RequiresAny       []Requirement `json:"requires_any,omitempty"`
	Coordinate        string        `json:"coordinate,omitempty"`
	CustomBG          string        `json:"custom_bg,omitempty"`
	StaminaCost       int           `json:"stamina_cost"`
	RequireLocalUnlockSongID       string `json:"require_localunlock_songid,omitempty"`
	RequireLocalUnlockChallengeID  string `json:"require_localunlock_challengeid,omitempty"`
	ChainInfo         map[string]any `json:"chain_info,omitempty"`
	DisableOver       bool          `json:"disable_over,omitempty"`
	NewLaw            string        `json:"new_law,omitempty"`
	Steps             []Step        `json:"steps"`
}

// defaultAvailableFrom/To mirror original_source's raw_dict.get defaults.
const (
	defaultAvailableFrom int64 = -1
	defaultAvailableTo   int64 = 9999999999999
)

func (m *MapDescriptor) stepCount() int { return len(m.Steps) }

// UserMapState is the persisted per-(user,map) projection: `(user_id,
// map_id) -> {curr_position, curr_capture, is_locked}`.
type UserMapState struct {
	CurrPosition int  `json:"curr_position"`
	CurrCapture  int  `json:"curr_capture"`
	IsLocked     bool `json:"is_locked"`
}

// UserState is the per-user `user` row touched by world mode: stamina,
// the beyond-boost gauge, the world-mode lock, kanae storage, the
// currently-selected map, and the lephon_nell phase.
type UserState struct {
	MaxStaminaTs         int64   `json:"max_stamina_ts"`
	Stamina              int     `json:"stamina"`
	CurrentMap           string  `json:"current_map,omitempty"`
	BeyondBoostGauge     float64 `json:"beyond_boost_gauge"`
	WorldModeLockedEndTs int64   `json:"world_mode_locked_end_ts"`
	KanaeStoredProg      float64 `json:"kanae_stored_prog"`
	ProgBoost            int     `json:"prog_boost"`
	LephonNellState      int     `json:"lephon_nell_state"`

	Version string `json:"-"`
}

// CharacterProgression is the per-user, per-character level/XP row.
type CharacterProgression struct {
	Level int `json:"level"`
	Exp   int `json:"exp"`

	// SkillState is skill_maya's sticky toggle: the skill doubles progress
	// every other climb, flipping unconditionally on every climb regardless
	// of whether the doubling fired.
	SkillState bool `json:"skill_state,omitempty"`

	Version string `json:"-"`
}

// CharacterSnapshot is the frag/prog/overdrive/level view of the character
// used for a play. RpcWorldPlay takes it from the request as sent, only
// refreshing Level and SkillFlag from storage for per-user characters; no
// sealed 50/50/50 default and no invader substitution is applied to it.
type CharacterSnapshot struct {
	CharacterID        int
	FragValue          float64
	ProgValue          float64
	OverdriveValue     float64
	Level              int
	SkillIDDisplayed   string
	SkillFlag          bool
	IsFullUnlockTable  bool // database_table_name == "user_char_full"
}

// CharacterMode records which of original_source's two full-unlock
// short-circuits (special_tempest's table check, skill_salt's config
// check) apply to this request. Both hinge on the same server-wide
// CHARACTER_FULL_UNLOCK toggle, so one enum carries both instead of two
// independent string comparisons.
type CharacterMode int

const (
	CharacterModeNormal CharacterMode = iota
	CharacterModeFullUnlock
)

// PlayResult is the finalized chart-play outcome the scoring pipeline
// hands to World Mode. It is produced entirely outside this package's
// scope — only its fields consumed here are modeled.
type PlayResult struct {
	SongID             string
	Difficulty         int
	Rating             float64
	ClearType          int // 0 == track failure
	Health             int
	HighestHealth      int
	LowestHealth       int
	SongGrade          int
	ComboIntervalBonus int
	HpIntervalBonus    int
	FeverBonus         *float64
	SkillCytusiiFlag   string
	SkillChinatsuFlag  string
	InvasionFlag       int
	NellToggle         bool

	// BeyondGaugeFlag is the client-declared "this submission targets a
	// beyond map" flag. It is independent of UserState.BeyondBoostGauge
	// (the meter): zero on every normal-map play, non-zero on beyond-map
	// plays, and gates special_tempest plus the kanae_stored_prog payout.
	BeyondGaugeFlag int

	StaminaMultiply       float64
	FragmentMultiply      float64
	ProgBoostMultiply     float64
	BeyondBoostGaugeUsage float64
}

