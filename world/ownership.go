package world

import (
	"context"
	"encoding/json"

	"github.com/heroiclabs/nakama-common/runtime"
)

// The inventory collection and keys a map's require_type is checked
// against, one key per item class — the same (collection, key)
// pairing the economy RPCs already read from.
const (
	inventoryCollection  = "inventory"
	inventoryKeySongPack = "song_pack"
	inventoryKeySingle   = "song_single"
)

type inventoryData struct {
	Items []string `json:"items"`
}

// StorageOwnershipChecker is the default ItemOwnershipChecker: it consults
// the same per-item inventory rows the rest of the plugin writes, the
// world-domain analog of items.IsItemOwned.
type StorageOwnershipChecker struct {
	NK runtime.NakamaModule
}

func (c *StorageOwnershipChecker) OwnsItem(ctx context.Context, userID, requireType, requireID string) (bool, error) {
	key := inventoryKeySingle
	if requireType == RequireTypePack {
		key = inventoryKeySongPack
	}
	objs, err := c.NK.StorageRead(ctx, []*runtime.StorageRead{
		{Collection: inventoryCollection, Key: key, UserID: userID},
	})
	if err != nil {
		return false, err
	}
	if len(objs) == 0 {
		return false, nil
	}
	var data inventoryData
	if err := json.Unmarshal([]byte(objs[0].Value), &data); err != nil {
		return false, err
	}
	for _, id := range data.Items {
		if id == requireID {
			return true, nil
		}
	}
	return false, nil
}
