// Package errors defines sentinel errors for the World Mode RPCs. Return
// these unwrapped — wrapping changes the gRPC code on the wire.
package errors

import "github.com/heroiclabs/nakama-common/runtime"

// gRPC status codes.
const (
	CodeInternal     = 13 // codes.Internal
	CodeInvalidArg   = 3  // codes.InvalidArgument
	CodeForbidden    = 7  // codes.PermissionDenied
	CodeNotFound     = 5  // codes.NotFound
)

// Unified error definitions. Five caller-visible kinds from spec §7
// (InputError, MapLocked, NoData, ItemUnavailable, TokenInvalid) plus the
// internal plumbing errors every storage-backed RPC needs.
var (
	// InputError (code 3) — malformed payload, negative step on a beyond
	// map, unknown skill id, impossible token state.
	ErrInputError         = runtime.NewError("invalid world mode request", CodeInvalidArg)
	ErrUnknownSkill        = runtime.NewError("unknown skill id", CodeInvalidArg)
	ErrNegativeStepOnBeyond = runtime.NewError("step_value must be non-negative on a beyond map", CodeInvalidArg)

	// MapLocked (code 7) — climb attempted on a locked map.
	ErrMapLocked = runtime.NewError("the map is locked", CodeForbidden)

	// NoData (code 5) — user row not found when computing stamina.
	ErrNoData = runtime.NewError("the user does not exist", CodeNotFound)

	// ItemUnavailable (code 3) — unlock could not be satisfied. Normally
	// surfaced as UserMap.Unlock returning false rather than this error;
	// kept for call sites that must fail hard.
	ErrItemUnavailable = runtime.NewError("required item not owned", CodeInvalidArg)

	// TokenInvalid (code 3) — submitted token does not match a pending
	// play for the user.
	ErrTokenInvalid = runtime.NewError("token invalid or expired", CodeInvalidArg)

	// Internal errors (code 13)
	ErrInternalError        = runtime.NewError("internal server error", CodeInternal)
	ErrMarshal              = runtime.NewError("cannot marshal type", CodeInternal)
	ErrUnmarshal            = runtime.NewError("cannot unmarshal type", CodeInternal)
	ErrCouldNotReadStorage  = runtime.NewError("could not read storage", CodeInternal)
	ErrCouldNotWriteStorage = runtime.NewError("could not write storage", CodeInternal)
	ErrCouldNotGetAccount   = runtime.NewError("could not get user account", CodeInternal)
	ErrMapNotFound          = runtime.NewError("map not found in catalog", CodeInternal)
	ErrLephonPhaseNotFound  = runtime.NewError("lephon_nell phase not found", CodeInternal)
	ErrTransactionFailed    = runtime.NewError("transaction failed", CodeInternal)

	// Invalid argument errors (code 3)
	ErrNoUserIdFound = runtime.NewError("no user ID in context", CodeInvalidArg)
	ErrInvalidInput  = runtime.NewError("invalid request", CodeInvalidArg)
)
