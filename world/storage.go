package world

import (
	"context"
	"fmt"

	"github.com/heroiclabs/nakama-common/runtime"

	"crab.casa/world-server/errors"
)

// readUserState loads the single per-user world row, lazily creating a
// fresh one (12 stamina, no current map, phase 0) on first access —
// original_source's `User.__init__` default column values.
func readUserState(ctx context.Context, nk runtime.NakamaModule, userID string, cfg Constant) (*UserState, error) {
	objs, err := nk.StorageRead(ctx, []*runtime.StorageRead{
		{Collection: collectionUser, Key: userStateKey, UserID: userID},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrCouldNotReadStorage, err)
	}
	if len(objs) == 0 {
		return &UserState{
			MaxStaminaTs: 0,
			Stamina:      cfg.MaxStamina,
		}, nil
	}
	state, err := UnmarshalJSON[UserState](objs[0].Value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrUnmarshal, err)
	}
	state.Version = objs[0].Version
	return state, nil
}

func writeUserState(ctx context.Context, nk runtime.NakamaModule, userID string, state *UserState) (string, error) {
	payload, err := marshalJSON(state)
	if err != nil {
		return "", fmt.Errorf("%w: %s", errors.ErrMarshal, err)
	}
	ids, err := nk.StorageWrite(ctx, []*runtime.StorageWrite{
		{
			Collection:      collectionUser,
			Key:             userStateKey,
			UserID:          userID,
			Value:           payload,
			Version:         state.Version,
			PermissionRead:  1,
			PermissionWrite: 0,
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s", errors.ErrCouldNotWriteStorage, err)
	}
	if len(ids) == 0 {
		return "", errors.ErrCouldNotWriteStorage
	}
	return ids[0].Version, nil
}

// readUserMapState loads the (user, map) position row, lazily creating a
// locked (0,0) row on first access (original_source's `UserMap.initialize`
// call inside `select()` on miss).
func readUserMapState(ctx context.Context, nk runtime.NakamaModule, userID, mapID string) (*UserMapState, string, error) {
	objs, err := nk.StorageRead(ctx, []*runtime.StorageRead{
		{Collection: collectionMap, Key: mapID, UserID: userID},
	})
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s", errors.ErrCouldNotReadStorage, err)
	}
	if len(objs) == 0 {
		return &UserMapState{CurrPosition: 0, CurrCapture: 0, IsLocked: true}, "", nil
	}
	state, err := UnmarshalJSON[UserMapState](objs[0].Value)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s", errors.ErrUnmarshal, err)
	}
	return state, objs[0].Version, nil
}

func writeUserMapState(ctx context.Context, nk runtime.NakamaModule, userID, mapID string, state *UserMapState, version string) (string, error) {
	payload, err := marshalJSON(state)
	if err != nil {
		return "", fmt.Errorf("%w: %s", errors.ErrMarshal, err)
	}
	ids, err := nk.StorageWrite(ctx, []*runtime.StorageWrite{
		{
			Collection:      collectionMap,
			Key:             mapID,
			UserID:          userID,
			Value:           payload,
			Version:         version,
			PermissionRead:  1,
			PermissionWrite: 0,
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s", errors.ErrCouldNotWriteStorage, err)
	}
	if len(ids) == 0 {
		return "", errors.ErrCouldNotWriteStorage
	}
	return ids[0].Version, nil
}

func characterKey(characterID int) string { return fmt.Sprintf("character_%d", characterID) }

// readCharacterProgression loads a per-user, per-character level/exp row,
// defaulting to level 1 / 0 exp when the character has never been played.
func readCharacterProgression(ctx context.Context, nk runtime.NakamaModule, userID string, characterID int) (*CharacterProgression, error) {
	objs, err := nk.StorageRead(ctx, []*runtime.StorageRead{
		{Collection: collectionChar, Key: characterKey(characterID), UserID: userID},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrCouldNotReadStorage, err)
	}
	if len(objs) == 0 {
		return &CharacterProgression{Level: 1, Exp: 0}, nil
	}
	cp, err := UnmarshalJSON[CharacterProgression](objs[0].Value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrUnmarshal, err)
	}
	cp.Version = objs[0].Version
	return cp, nil
}

func writeCharacterProgression(ctx context.Context, nk runtime.NakamaModule, userID string, characterID int, cp *CharacterProgression) (string, error) {
	payload, err := marshalJSON(cp)
	if err != nil {
		return "", fmt.Errorf("%w: %s", errors.ErrMarshal, err)
	}
	ids, err := nk.StorageWrite(ctx, []*runtime.StorageWrite{
		{
			Collection:      collectionChar,
			Key:             characterKey(characterID),
			UserID:          userID,
			Value:           payload,
			Version:         cp.Version,
			PermissionRead:  1,
			PermissionWrite: 0,
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s", errors.ErrCouldNotWriteStorage, err)
	}
	if len(ids) == 0 {
		return "", errors.ErrCouldNotWriteStorage
	}
	return ids[0].Version, nil
}

// KVEntry is a generic per-user counter row under collectionKV, used by
// skill_salt to track "maps cleared in the current chapter" without a
// dedicated column (original_source's ad hoc `user_kv` table).
type KVEntry struct {
	Value   int    `json:"value"`
	Version string `json:"-"`
}

func readKV(ctx context.Context, nk runtime.NakamaModule, userID, key string) (*KVEntry, error) {
	objs, err := nk.StorageRead(ctx, []*runtime.StorageRead{
		{Collection: collectionKV, Key: key, UserID: userID},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrCouldNotReadStorage, err)
	}
	if len(objs) == 0 {
		return &KVEntry{Value: 0}, nil
	}
	entry, err := UnmarshalJSON[KVEntry](objs[0].Value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrUnmarshal, err)
	}
	entry.Version = objs[0].Version
	return entry, nil
}

func kvStorageWrite(userID, key string, entry *KVEntry) (*runtime.StorageWrite, error) {
	payload, err := marshalJSON(entry)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrMarshal, err)
	}
	return &runtime.StorageWrite{
		Collection:      collectionKV,
		Key:             key,
		UserID:          userID,
		Value:           payload,
		Version:         entry.Version,
		PermissionRead:  1,
		PermissionWrite: 0,
	}, nil
}
