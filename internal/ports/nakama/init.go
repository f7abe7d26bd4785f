package nakama

import (
	"context"
	"database/sql"

	"tcgtable/internal/app"
	"tcgtable/internal/config"

	"github.com/heroiclabs/nakama-common/runtime"
)

// InitModule wires the table coordinator, RPCs and hooks for the Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)

	cfg := loadTableConfig(logger, env)
	store := NewNakamaStorageAdapter(nk)
	coord, err := app.NewCoordinator(app.Dependencies{
		Tables:   store,
		Profiles: store,
	}, cfg)
	if err != nil {
		return err
	}

	voice := app.NewVoiceService(env[envVivoxSecret], env[envVivoxIssuer], env[envVivoxDomain])
	if env[envVivoxSecret] == "" {
		logger.Warn("Vivox credentials missing from env; %s will fail.", RpcTableVoiceToken)
	}

	handlers := newRPCHandlers(coord, voice)
	if err := handlers.RegisterRPCs(initializer); err != nil {
		return err
	}

	onboarding := newOnboardingHook(store)
	if err := initializer.RegisterAfterAuthenticateDevice(onboarding.AfterAuthenticateDevice); err != nil {
		return err
	}

	logger.WithFields(map[string]interface{}{
		"session_timeout_sec": cfg.SessionTimeoutSeconds,
		"conditional_writes":  cfg.ConditionalWrites,
	}).Info("Card table Go module loaded.")
	return nil
}

// loadTableConfig reads the optional config file, then applies env overrides.
// A bad file or override falls back to the defaults.
func loadTableConfig(logger runtime.Logger, env map[string]string) config.TableConfig {
	cfg := config.Default()
	if path := env[envTableConfigPath]; path != "" {
		loaded, err := config.LoadTableConfig(path)
		if err != nil {
			logger.Warn("Failed to load table config %s, using defaults: %v", path, err)
		}
		cfg = loaded
	}

	cfg.ApplyEnv(env)
	if err := cfg.Validate(); err != nil {
		logger.Warn("Invalid table config overrides, using defaults: %v", err)
		return config.Default()
	}
	return cfg
}
