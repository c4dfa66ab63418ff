package world

import (
	"context"
	"fmt"

	"github.com/heroiclabs/nakama-common/runtime"
)

// SumCharacterLevels adds up the Level of every character row a user owns
// in collectionChar — the roster-wide total special_tempest scales on.
func SumCharacterLevels(ctx context.Context, nk runtime.NakamaModule, userID string) (int, error) {
	sum := 0
	cursor := ""
	for {
		objs, nextCursor, err := nk.StorageList(ctx, "", userID, collectionChar, 100, cursor)
		if err != nil {
			return 0, err
		}
		for _, obj := range objs {
			cp, err := UnmarshalJSON[CharacterProgression](obj.Value)
			if err != nil {
				continue
			}
			sum += cp.Level
		}
		if nextCursor == "" {
			break
		}
		cursor = nextCursor
	}
	return sum, nil
}

func chapterCompleteKey(chapterID int) string { return fmt.Sprintf("chapter_complete_count_%d", chapterID) }

// ChapterCompletion reports how many of a chapter's non-repeatable maps a
// user has completed (count) against how many exist (total) — skill_salt's
// denominator comes from the catalog, the numerator from a kv counter
// bumped by MarkMapCompleted.
func ChapterCompletion(ctx context.Context, nk runtime.NakamaModule, catalog *MapCatalog, userID string, chapterID int) (count, total int, err error) {
	total = len(catalog.ChapterMapIDs(chapterID, true))
	entry, err := readKV(ctx, nk, userID, chapterCompleteKey(chapterID))
	if err != nil {
		return 0, total, err
	}
	return entry.Value, total, nil
}

// MarkMapCompleted bumps a chapter's completion counter. Call this once,
// the first time a user's position reaches a non-repeatable map's final
// step; callers are responsible for not double-counting a repeat clear.
func MarkMapCompleted(ctx context.Context, nk runtime.NakamaModule, userID string, chapterID int) (*runtime.StorageWrite, error) {
	entry, err := readKV(ctx, nk, userID, chapterCompleteKey(chapterID))
	if err != nil {
		return nil, err
	}
	entry.Value++
	return kvStorageWrite(userID, chapterCompleteKey(chapterID), entry)
}
