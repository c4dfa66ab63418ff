package world

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"crab.casa/world-server/errors"
)

const mapParseCacheCapacity = 128

// mapSummary is the lightweight index entry MapCatalog keeps for every
// known map_id without holding the full parsed descriptor in memory —
// original_source's `world_info` dict.
type mapSummary struct {
	Chapter      *int
	IsRepeatable bool
	IsBeyond     bool
	IsLegacy     bool
	StepCount    int
}

// MapCatalog scans a content directory once, indexes map descriptors by
// id, groups them by chapter, and parses individual map JSON files
// through a bounded LRU cache. It is safe for concurrent use; the only
// mutation after initial parse is a full Reinitialise.
type MapCatalog struct {
	mu sync.RWMutex

	content       fs.FS // <content>/<map_id>.json
	lephonContent fs.FS // <lephon>/1.json .. 4.json

	mapIDs                       map[string]struct{}
	worldInfo                    map[string]mapSummary
	chapterInfo                  map[int][]string
	chapterInfoWithoutRepeatable map[int][]string

	parseCache  *lru.Cache[string, *MapDescriptor]
	lephonCache *lru.Cache[int, []Step]
}

// NewMapCatalog walks content once and returns a ready catalog.
func NewMapCatalog(content, lephonContent fs.FS) (*MapCatalog, error) {
	parseCache, err := lru.New[string, *MapDescriptor](mapParseCacheCapacity)
	if err != nil {
		return nil, fmt.Errorf("allocate map parse cache: %w", err)
	}
	lephonCache, err := lru.New[int, []Step](4)
	if err != nil {
		return nil, fmt.Errorf("allocate lephon phase cache: %w", err)
	}
	c := &MapCatalog{
		content:       content,
		lephonContent: lephonContent,
		parseCache:    parseCache,
		lephonCache:   lephonCache,
	}
	if err := c.Reinitialise(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reinitialise clears all indexes and the parse cache, then re-walks the
// content directory. MapCatalog.Reinitialise is idempotent: re-running it
// against an unchanged content tree yields identical indexes.
func (c *MapCatalog) Reinitialise() error {
	mapIDs := map[string]struct{}{}
	worldInfo := map[string]mapSummary{}
	chapterInfo := map[int][]string{}
	chapterInfoNoRepeat := map[int][]string{}

	err := fs.WalkDir(c.content, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		mapID := strings.TrimSuffix(d.Name(), ".json")
		raw, err := fs.ReadFile(c.content, path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		desc, err := parseMapDescriptor(mapID, raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		mapIDs[mapID] = struct{}{}
		if desc.Chapter != nil {
			chapterInfo[*desc.Chapter] = append(chapterInfo[*desc.Chapter], mapID)
			if !desc.IsRepeatable {
				chapterInfoNoRepeat[*desc.Chapter] = append(chapterInfoNoRepeat[*desc.Chapter], mapID)
			}
		}
		worldInfo[mapID] = mapSummary{
			Chapter:      desc.Chapter,
			IsRepeatable: desc.IsRepeatable,
			IsBeyond:     desc.IsBeyond,
			IsLegacy:     desc.IsLegacy,
			StepCount:    len(desc.Steps),
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk content: %w", err)
	}

	c.mu.Lock()
	c.mapIDs = mapIDs
	c.worldInfo = worldInfo
	c.chapterInfo = chapterInfo
	c.chapterInfoWithoutRepeatable = chapterInfoNoRepeat
	c.mu.Unlock()

	c.parseCache.Purge()
	c.lephonCache.Purge()
	return nil
}

func parseMapDescriptor(mapID string, raw []byte) (*MapDescriptor, error) {
	var wire struct {
		Chapter           *int            `json:"chapter"`
		IsLegacy          bool            `json:"is_legacy"`
		IsBeyond          bool            `json:"is_beyond"`
		IsBreached        bool            `json:"is_breached"`
		BeyondHealth      int             `json:"beyond_health"`
		CharacterAffinity []int           `json:"character_affinity"`
		AffinityMultiplier []float64      `json:"affinity_multiplier"`
		AvailableFrom     *int64          `json:"available_from"`
		AvailableTo       *int64          `json:"available_to"`
		IsRepeatable      bool            `json:"is_repeatable"`
		RequireID         string          `json:"require_id"`
		RequireType       string          `json:"require_type"`
		RequireValue      *int            `json:"require_value"`
		Requires          []Requirement   `json:"requires"`
		RequiresAny       []Requirement   `json:"requires_any"`
		Coordinate        string          `json:"coordinate"`
		CustomBG          string          `json:"custom_bg"`
		StaminaCost       int             `json:"stamina_cost"`
		RequireLocalUnlockSongID      string         `json:"require_localunlock_songid"`
		RequireLocalUnlockChallengeID string         `json:"require_localunlock_challengeid"`
		ChainInfo         map[string]any  `json:"chain_info"`
		DisableOver       bool            `json:"disable_over"`
		NewLaw            string          `json:"new_law"`
		Steps             []Step          `json:"steps"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, err
	}

	d := &MapDescriptor{
		MapID:              mapID,
		Chapter:            wire.Chapter,
		IsLegacy:           wire.IsLegacy,
		IsBeyond:           wire.IsBeyond,
		IsBreached:         wire.IsBreached,
		BeyondHealth:       wire.BeyondHealth,
		CharacterAffinity:  wire.CharacterAffinity,
		AffinityMultiplier: wire.AffinityMultiplier,
		IsRepeatable:       wire.IsRepeatable,
		RequireID:          wire.RequireID,
		RequireType:        wire.RequireType,
		Requires:           wire.Requires,
		RequiresAny:        wire.RequiresAny,
		Coordinate:         wire.Coordinate,
		CustomBG:           wire.CustomBG,
		StaminaCost:        wire.StaminaCost,
		RequireLocalUnlockSongID:      wire.RequireLocalUnlockSongID,
		RequireLocalUnlockChallengeID: wire.RequireLocalUnlockChallengeID,
		ChainInfo:          wire.ChainInfo,
		DisableOver:        wire.DisableOver,
		NewLaw:             wire.NewLaw,
		Steps:              wire.Steps,
	}
	d.RequireValue = 1
	if wire.RequireValue != nil {
		d.RequireValue = *wire.RequireValue
	}
	d.AvailableFrom = defaultAvailableFrom
	if wire.AvailableFrom != nil {
		d.AvailableFrom = *wire.AvailableFrom
	}
	d.AvailableTo = defaultAvailableTo
	if wire.AvailableTo != nil {
		d.AvailableTo = *wire.AvailableTo
	}
	for i := range d.Steps {
		d.Steps[i].Position = i
	}
	return d, nil
}

// GetMapDescriptor parses (or returns the cached parse of) one map's
// content file. Parses are cached in a capacity-128 LRU, mirroring
// original_source's `@lru_cache(maxsize=128)` on `get_world_info`.
func (c *MapCatalog) GetMapDescriptor(mapID string) (*MapDescriptor, error) {
	if cached, ok := c.parseCache.Get(mapID); ok {
		return cached, nil
	}

	c.mu.RLock()
	_, known := c.mapIDs[mapID]
	c.mu.RUnlock()
	if !known {
		return nil, errors.ErrMapNotFound
	}

	raw, err := fs.ReadFile(c.content, mapID+".json")
	if err != nil {
		return nil, fmt.Errorf("read %s.json: %w", mapID, err)
	}
	desc, err := parseMapDescriptor(mapID, raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s.json: %w", mapID, err)
	}
	c.parseCache.Add(mapID, desc)
	return desc, nil
}

// GetLephonPhase returns the step list for a lephon_nell phase (0..3),
// parsed through its own small LRU.
func (c *MapCatalog) GetLephonPhase(phase int) ([]Step, error) {
	if cached, ok := c.lephonCache.Get(phase); ok {
		return cached, nil
	}
	filename := strconv.Itoa(phase+1) + ".json"
	raw, err := fs.ReadFile(c.lephonContent, filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrLephonPhaseNotFound, err)
	}
	var wrapped struct {
		Steps []Step `json:"steps"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("parse lephon phase %d: %w", phase, err)
	}
	for i := range wrapped.Steps {
		wrapped.Steps[i].Position = i
	}
	c.lephonCache.Add(phase, wrapped.Steps)
	return wrapped.Steps, nil
}

// AllMapIDs returns every known map_id, used by the "list all maps" RPC
// (original_source's `MapParser.get_world_all`).
func (c *MapCatalog) AllMapIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.mapIDs))
	for id := range c.mapIDs {
		ids = append(ids, id)
	}
	return ids
}

// ChapterMapIDs returns the maps in a chapter; withoutRepeatable selects
// the denominator skill_salt needs (repeatable "infinite" maps excluded).
func (c *MapCatalog) ChapterMapIDs(chapter int, withoutRepeatable bool) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if withoutRepeatable {
		return c.chapterInfoWithoutRepeatable[chapter]
	}
	return c.chapterInfo[chapter]
}
