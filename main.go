package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"crab.casa/world-server/world"
)

// InitModule wires the World Mode progression engine into the running
// Nakama instance: the map catalog is parsed once from the embedded
// content tree, tunables are loaded from the environment, and every RPC
// and authentication hook closes over the resulting Engine.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	initStart := time.Now()

	mapsFS, lephonFS, err := world.DefaultContent()
	if err != nil {
		logger.Error("Failed to load embedded world content: %v", err)
		return err
	}
	catalog, err := world.NewMapCatalog(mapsFS, lephonFS)
	if err != nil {
		logger.Error("Failed to parse world map catalog: %v", err)
		return err
	}
	logger.Info("Loaded world map catalog: %d maps", len(catalog.AllMapIDs()))

	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	cfg := world.LoadConstantFromEnv(env)

	engine := &world.Engine{
		Catalog: catalog,
		Config:  cfg,
		Owner:   &world.StorageOwnershipChecker{NK: nk},
	}

	if err := initializer.RegisterAfterAuthenticateDevice(engine.AfterAuthorizeUserDevice); err != nil {
		logger.Error("Unable to register: %v", err)
		return err
	}
	if err := initializer.RegisterAfterAuthenticateGameCenter(engine.AfterAuthorizeUserGC); err != nil {
		logger.Error("Unable to register: %v", err)
		return err
	}
	if err := initializer.RegisterRpc("world_token", engine.RpcWorldToken); err != nil {
		logger.Error("Unable to register: %v", err)
		return err
	}
	if err := initializer.RegisterRpc("world_token_abandon", engine.RpcWorldTokenAbandon); err != nil {
		logger.Error("Unable to register: %v", err)
		return err
	}
	if err := initializer.RegisterRpc("world_play", engine.RpcWorldPlay); err != nil {
		logger.Error("Unable to register: %v", err)
		return err
	}
	if err := initializer.RegisterRpc("world_get_map", engine.RpcGetUserMap); err != nil {
		logger.Error("Unable to register: %v", err)
		return err
	}
	if err := initializer.RegisterRpc("world_unlock_map", engine.RpcUnlockMap); err != nil {
		logger.Error("Unable to register: %v", err)
		return err
	}

	logger.Info("Plugin loaded in '%d' msec.", time.Since(initStart).Milliseconds())
	return nil
}
