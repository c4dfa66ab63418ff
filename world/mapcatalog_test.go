package world

import (
	"testing"
	"testing/fstest"

	"crab.casa/world-server/errors"
)

func newTestCatalog(t *testing.T) *MapCatalog {
	t.Helper()
	content := fstest.MapFS{
		"road.json": &fstest.MapFile{Data: []byte(`{
			"chapter": 1,
			"stamina_cost": 1,
			"steps": [{"capture": 4}, {"capture": 4}, {"capture": 6}]
		}`)},
		"infinite.json": &fstest.MapFile{Data: []byte(`{
			"chapter": 1,
			"is_repeatable": true,
			"stamina_cost": 2,
			"steps": [{"capture": 10}]
		}`)},
		"beyond.json": &fstest.MapFile{Data: []byte(`{
			"chapter": 2,
			"is_beyond": true,
			"beyond_health": 100,
			"stamina_cost": 4,
			"steps": [{"capture": 20}, {"capture": 30}]
		}`)},
	}
	lephon := fstest.MapFS{
		"1.json": &fstest.MapFile{Data: []byte(`{"steps": [{"capture": 1}, {"capture": 1}]}`)},
	}
	cat, err := NewMapCatalog(content, lephon)
	if err != nil {
		t.Fatalf("NewMapCatalog: %v", err)
	}
	return cat
}

func TestMapCatalogParsesDefaults(t *testing.T) {
	cat := newTestCatalog(t)
	desc, err := cat.GetMapDescriptor("road")
	if err != nil {
		t.Fatalf("GetMapDescriptor: %v", err)
	}
	if desc.RequireValue != 1 {
		t.Errorf("expected default require_value 1, got %d", desc.RequireValue)
	}
	if desc.AvailableFrom != defaultAvailableFrom || desc.AvailableTo != defaultAvailableTo {
		t.Errorf("expected default availability window, got [%d, %d]", desc.AvailableFrom, desc.AvailableTo)
	}
	for i, s := range desc.Steps {
		if s.Position != i {
			t.Errorf("step %d: expected stamped position %d, got %d", i, i, s.Position)
		}
	}
}

func TestMapCatalogUnknownMap(t *testing.T) {
	cat := newTestCatalog(t)
	if _, err := cat.GetMapDescriptor("does-not-exist"); err != errors.ErrMapNotFound {
		t.Errorf("expected ErrMapNotFound, got %v", err)
	}
}

func TestMapCatalogParseCache(t *testing.T) {
	cat := newTestCatalog(t)
	first, err := cat.GetMapDescriptor("road")
	if err != nil {
		t.Fatalf("GetMapDescriptor: %v", err)
	}
	second, err := cat.GetMapDescriptor("road")
	if err != nil {
		t.Fatalf("GetMapDescriptor: %v", err)
	}
	if first != second {
		t.Errorf("expected the cached parse to be returned by pointer identity")
	}
}

func TestMapCatalogChapterMapIDs(t *testing.T) {
	cat := newTestCatalog(t)
	all := cat.ChapterMapIDs(1, false)
	if len(all) != 2 {
		t.Errorf("expected 2 maps in chapter 1, got %d (%v)", len(all), all)
	}
	noRepeat := cat.ChapterMapIDs(1, true)
	if len(noRepeat) != 1 || noRepeat[0] != "road" {
		t.Errorf("expected only 'road' excluding repeatables, got %v", noRepeat)
	}
}

func TestMapCatalogReinitialiseIsIdempotent(t *testing.T) {
	cat := newTestCatalog(t)
	before := cat.AllMapIDs()
	if err := cat.Reinitialise(); err != nil {
		t.Fatalf("Reinitialise: %v", err)
	}
	after := cat.AllMapIDs()
	if len(before) != len(after) {
		t.Errorf("expected %d map ids after reinitialise, got %d", len(before), len(after))
	}
}

func TestGetLephonPhaseParsesAndCaches(t *testing.T) {
	cat := newTestCatalog(t)
	steps, err := cat.GetLephonPhase(0)
	if err != nil {
		t.Fatalf("GetLephonPhase: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if steps[1].Position != 1 {
		t.Errorf("expected stamped position 1, got %d", steps[1].Position)
	}
}

func TestGetLephonPhaseUnknown(t *testing.T) {
	cat := newTestCatalog(t)
	if _, err := cat.GetLephonPhase(3); err == nil {
		t.Errorf("expected an error for an unconfigured phase file")
	}
}
