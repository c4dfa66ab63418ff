// Package notify provides unified notification types and helpers for
// server-to-client communication about World Mode outcomes. The schema
// mirrors the client's reward-ceremony payload.
package notify

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Notification codes matching the client's ServerNotifyCode enum.
const (
	CodeSystem        = 0 // System messages / fallback toast
	CodeToast         = 1 // Simple toast notifications
	CodeReward        = 2 // Reward ceremonies (step items, level-up)
	CodeCenterMessage = 3 // Center flyout message
	CodeWorldLocked   = 4 // World-mode lock (skill_fatalis) notice
	CodeAnnouncement  = 8 // Maintenance/server announcements
)

// RewardPayload is the unified reward schema for a completed climb.
// Domains are MECE - each maps to a player state bucket touched by the
// World Mode update pipeline.
type RewardPayload struct {
	RewardID  string `json:"reward_id"`
	CreatedAt int64  `json:"created_at"`

	Source string `json:"source,omitempty"` // world_climb

	Inventory   *InventoryDelta   `json:"inventory,omitempty"`
	Progression *ProgressionDelta `json:"progression,omitempty"`
	World       *WorldDelta       `json:"world,omitempty"`
}

// InventoryDelta carries step-reward item grants. Add-only, never removals.
type InventoryDelta struct {
	Items []ItemGrant `json:"items"`
}

// ItemGrant represents a single reward item granted by a climbed step.
type ItemGrant struct {
	ItemType string `json:"item_type"`
	ItemID   string `json:"item_id,omitempty"`
	Amount   int    `json:"amount,omitempty"`
}

// ProgressionDelta covers the character XP/level side of a climb.
type ProgressionDelta struct {
	XpGranted    *int `json:"xp_granted,omitempty"`
	NewCharLevel *int `json:"new_char_level,omitempty"`
}

// WorldDelta covers the map/stamina/gauge side of a climb.
type WorldDelta struct {
	MapID              string   `json:"map_id"`
	NewPosition        int      `json:"new_position"`
	NewCapture         int      `json:"new_capture"`
	StaminaAfter       *int     `json:"stamina_after,omitempty"`
	BeyondGaugeAfter   *float64 `json:"beyond_gauge_after,omitempty"`
	WorldLockedUntilTs *int64   `json:"world_locked_until_ts,omitempty"`
}

// NewRewardPayload creates a new RewardPayload with generated ID and timestamp.
func NewRewardPayload(source string) *RewardPayload {
	return &RewardPayload{
		RewardID:  generateID(),
		CreatedAt: time.Now().UnixMilli(),
		Source:    source,
	}
}

func generateID() string {
	b := make([]byte, 6)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func IntPtr(v int) *int           { return &v }
func Float64Ptr(v float64) *float64 { return &v }
func Int64Ptr(v int64) *int64     { return &v }

// SendReward ships a finished RewardPayload down to the client.
func SendReward(ctx context.Context, nk runtime.NakamaModule, userID string, payload *RewardPayload) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("reward marshal: %w", err)
	}
	var content map[string]interface{}
	if err := json.Unmarshal(payloadBytes, &content); err != nil {
		return fmt.Errorf("reward unmarshal: %w", err)
	}
	return nk.NotificationSend(ctx, userID, "World Mode reward", content, CodeReward, "", true)
}

// SendWorldLocked notifies the client that skill_fatalis has locked World
// Mode for the player until the given timestamp.
func SendWorldLocked(ctx context.Context, nk runtime.NakamaModule, userID string, lockedUntilTs int64) error {
	content := map[string]interface{}{"world_mode_locked_end_ts": lockedUntilTs}
	return nk.NotificationSend(ctx, userID, "World Mode locked", content, CodeWorldLocked, "", true)
}
