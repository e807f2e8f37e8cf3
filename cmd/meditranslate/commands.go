package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/comigor/meditranslate-go/internal/config"
	"github.com/comigor/meditranslate-go/internal/gateway"
	"github.com/comigor/meditranslate-go/internal/handler"
	"github.com/comigor/meditranslate-go/internal/logger"
	"github.com/comigor/meditranslate-go/internal/mcpserver"
	"github.com/comigor/meditranslate-go/internal/transcript"
	"github.com/comigor/meditranslate-go/pkg/tools"
)

const cliSession = "cli"

func runServe(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler.NewRouter(handler.New(a.orch, a.audio, a.hub)),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.L.Info("starting server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.L.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runTranscript(ctx context.Context, cfg *config.Config, args []string) error {
	fs := pflag.NewFlagSet("transcript", pflag.ContinueOnError)
	query := fs.StringP("query", "q", "", "only show messages containing this keyword")
	width := fs.IntP("width", "w", 80, "wrap width")
	raw := fs.Bool("raw", false, "print Markdown without terminal styling")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	messages, err := store.Search(ctx, *query)
	if err != nil {
		return err
	}
	md := transcript.Markdown(messages, *query)
	if *raw {
		fmt.Print(md)
		return nil
	}
	out, err := transcript.Render(md, *width)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func runSummarize(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.orch.Summarize(ctx, cliSession)
	if err != nil {
		fmt.Fprintln(os.Stderr, gatewayMessage(err))
		return err
	}
	out, err := transcript.Render(summary, 80)
	if err != nil {
		out = summary
	}
	fmt.Print(out)
	return nil
}

func runModels(ctx context.Context, cfg *config.Config) error {
	gw, err := newGateway(cfg)
	if err != nil {
		return err
	}
	models, err := gw.Models(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, gatewayMessage(err))
		return err
	}
	for _, m := range models {
		fmt.Println(m)
	}
	return nil
}

func runClear(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(ctx); err != nil {
		return err
	}
	fmt.Println("Chat history cleared.")
	return nil
}

func runMCP(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	manager := tools.NewToolManager()
	tools.Register(manager, a.orch)
	logger.L.Info("serving mcp on stdio", "tools", len(manager.List()))
	return mcpserver.ServeStdio(mcpserver.New(manager))
}

func gatewayMessage(err error) string {
	if _, ok := gateway.KindOf(err); ok {
		return gateway.UserMessage(err)
	}
	return err.Error()
}
