package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/possamhq/possam/internal/cli"
	"github.com/possamhq/possam/internal/config"
	"github.com/possamhq/possam/internal/identity"
	"github.com/possamhq/possam/internal/localstore"
	"github.com/possamhq/possam/internal/logging"
	"github.com/possamhq/possam/internal/session"
	"github.com/possamhq/possam/internal/toolstate"
	"github.com/possamhq/possam/internal/voicesession"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger := logging.NewTextLogger(os.Stderr, slog.LevelInfo)

	store, err := localstore.Open(ctx, cfg.DataFile)
	if err != nil {
		log.Fatalf("opening local store: %v", err)
	}
	defer store.Close()

	tokens := localstore.NewTokenStore(store.DB())
	gateway := identity.NewHTTPGateway(cfg.BackendURL, cfg.AnonKey,
		cfg.RequestTimeout, tokens, logger)

	tools := toolstate.NewStore(store.DB(), logger)
	provider := cli.NewPromptProvider()

	coordinator := session.NewCoordinator(gateway, provider, tools, logger,
		cfg.LaunchDelay, cfg.ResendCooldown)

	voiceClient := cli.NewSimClient(3 * time.Second)
	voice := voicesession.NewSession(voiceClient, cfg.AssistantID, logger)
	voiceClient.Bind(voice)
	voice.Subscribe(voiceClient)

	app := cli.NewApp(coordinator, voice, tools, logger)
	app.Run(ctx)
}
