package world

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/heroiclabs/nakama-common/runtime"

	"crab.casa/world-server/errors"
)

// GetUserIDFromContext pulls the caller's user id out of the RPC context,
// the same convention every RPC in this plugin relies on.
func GetUserIDFromContext(ctx context.Context, logger runtime.Logger) (string, error) {
	userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if !ok || userID == "" {
		logger.Error("no user ID found in context")
		return "", errors.ErrNoUserIdFound
	}
	return userID, nil
}

// UnmarshalJSON is a typed decoding wrapper so storage callers get a
// consistently wrapped error instead of a bare encoding/json one.
func UnmarshalJSON[T any](value string) (*T, error) {
	var data T
	if err := json.Unmarshal([]byte(value), &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %T: %w", data, err)
	}
	return &data, nil
}

func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %T: %w", v, err)
	}
	return string(b), nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// intOr returns the dereferenced value, or def when p is nil — the request
// struct uses pointers on fields that carry a non-zero default so an
// omitted field is distinguishable from an explicit zero.
func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
