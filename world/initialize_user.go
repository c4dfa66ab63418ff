package world

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// AfterAuthorizeUserDevice seeds a fresh world_user row with full stamina
// for newly created accounts. readUserState still falls back to the same
// default when the row is missing.
func (e *Engine) AfterAuthorizeUserDevice(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, out *api.Session, in *api.AuthenticateDeviceRequest) error {
	return e.initializeUser(ctx, logger, nk, out)
}

func (e *Engine) AfterAuthorizeUserGC(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, out *api.Session, in *api.AuthenticateGameCenterRequest) error {
	return e.initializeUser(ctx, logger, nk, out)
}

func (e *Engine) initializeUser(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, out *api.Session) error {
	if !out.Created {
		return nil
	}
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return nil
	}

	state := &UserState{Stamina: e.Config.MaxStamina}
	if _, err := writeUserState(ctx, nk, userID, state); err != nil {
		logError(ctx, logger, "world user initialization failed", err)
		return fmt.Errorf("world user init: %w", err)
	}
	return nil
}
