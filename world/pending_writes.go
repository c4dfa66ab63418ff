package world

import (
	"github.com/heroiclabs/nakama-common/runtime"

	"crab.casa/world-server/notify"
)

// PendingWrites batches storage writes for one nk.MultiUpdate commit —
// adapted from the plugin's existing economy pipeline, which uses the same
// accumulator shape for its own atomic writes. RpcWorldPlay routes only the
// kv chapter-completion counter through it; the user map, world_user and
// character rows are written directly.
type PendingWrites struct {
	StorageWrites []*runtime.StorageWrite
	Payload       *notify.RewardPayload
}

func NewPendingWrites() *PendingWrites {
	return &PendingWrites{StorageWrites: make([]*runtime.StorageWrite, 0)}
}

func (pw *PendingWrites) AddStorageWrite(write *runtime.StorageWrite) {
	pw.StorageWrites = append(pw.StorageWrites, write)
}

func (pw *PendingWrites) Merge(other *PendingWrites) {
	if other == nil {
		return
	}
	pw.StorageWrites = append(pw.StorageWrites, other.StorageWrites...)
	if other.Payload != nil {
		if pw.Payload == nil {
			pw.Payload = other.Payload
		} else {
			pw.MergePayload(other.Payload)
		}
	}
}

// MergePayload additively combines other into pw.Payload: inventory items
// append, the other domains simply overwrite since a single update pipeline
// never produces two progression/world deltas to reconcile.
func (pw *PendingWrites) MergePayload(other *notify.RewardPayload) {
	if other == nil {
		return
	}
	if pw.Payload == nil {
		pw.Payload = notify.NewRewardPayload(other.Source)
	}
	if other.Inventory != nil {
		if pw.Payload.Inventory == nil {
			pw.Payload.Inventory = &notify.InventoryDelta{}
		}
		pw.Payload.Inventory.Items = append(pw.Payload.Inventory.Items, other.Inventory.Items...)
	}
	if other.Progression != nil {
		pw.Payload.Progression = other.Progression
	}
	if other.World != nil {
		pw.Payload.World = other.World
	}
}

func (pw *PendingWrites) IsEmpty() bool {
	return len(pw.StorageWrites) == 0
}
