package main

import (
	"context"
	"fmt"

	"github.com/comigor/meditranslate-go/internal/audio"
	"github.com/comigor/meditranslate-go/internal/config"
	"github.com/comigor/meditranslate-go/internal/feed"
	"github.com/comigor/meditranslate-go/internal/gateway"
	"github.com/comigor/meditranslate-go/internal/history"
	"github.com/comigor/meditranslate-go/internal/llm"
	"github.com/comigor/meditranslate-go/internal/logger"
	"github.com/comigor/meditranslate-go/internal/session"
)

// app is everything a command may need, built from config.
type app struct {
	cfg     *config.Config
	store   *history.Store
	audio   *audio.Store
	hub     *feed.Hub
	gateway *gateway.Gateway
	orch    *session.Orchestrator
}

func openStore(ctx context.Context, cfg *config.Config) (*history.Store, error) {
	store, err := history.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func newGateway(cfg *config.Config) (*gateway.Gateway, error) {
	key, source, err := config.ResolveAPIKey(cfg)
	if err != nil {
		return nil, err
	}
	logger.L.Info("api key loaded", "source", source, "provider", cfg.LLM.Provider)

	provider, err := llm.New(cfg.LLM, key)
	if err != nil {
		return nil, fmt.Errorf("init llm provider: %w", err)
	}
	return gateway.New(provider, cfg.LLM.Model, cfg.LLM.SummaryModel), nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	gw, err := newGateway(cfg)
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:     cfg,
		store:   store,
		audio:   audio.New(cfg.Storage.AudioDir),
		hub:     feed.NewHub(),
		gateway: gw,
	}
	a.orch = session.New(a.store, a.gateway, a.audio, a.hub)
	logger.L.Info("message log ready", "db", cfg.Storage.DBPath, "audio_dir", a.audio.Dir())
	return a, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
