// Reflexguard bridges an external strategy planner and an MT5-style broker
// HTTP endpoint: it ingests price ticks, gates them through a confirmation
// engine, fires broker orders on trigger, and streams the result to
// monitor subscribers over WebSocket.
//
// Architecture:
//
//	main.go                    — entry point: loads config, wires components, waits for SIGINT/SIGTERM
//	internal/state/state.go    — the single shared mutable picture of plan/position/history
//	internal/reflex            — per-tick gate sequence deciding whether to trigger
//	internal/confirmation      — spread/probe/dwell/RSI confirmation gates
//	internal/risk              — kill switch, daily cap, cooldown, auto-kill
//	internal/executor          — builds and posts broker orders
//	internal/dispatch          — orchestrates risk check → order → broker call → broadcast
//	internal/closeingress      — applies broker position-close notifications
//	internal/backtest          — replays historical ticks through the same gates
//	internal/events            — event types and the /ws/monitor hub
//	internal/api               — HTTP routes and middleware
//	internal/store             — JSON snapshot persistence (trade history + risk state)
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/akephisit/reflexguard/internal/api"
	"github.com/akephisit/reflexguard/internal/closeingress"
	"github.com/akephisit/reflexguard/internal/config"
	"github.com/akephisit/reflexguard/internal/dispatch"
	"github.com/akephisit/reflexguard/internal/events"
	"github.com/akephisit/reflexguard/internal/executor"
	"github.com/akephisit/reflexguard/internal/risk"
	"github.com/akephisit/reflexguard/internal/state"
	"github.com/akephisit/reflexguard/internal/store"

	"log/slog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	persist, err := store.Open(cfg.StateDir)
	if err != nil {
		logger.Error("failed to open state store", "error", err)
		os.Exit(1)
	}

	riskMgr := risk.New(cfg.Risk, logger)
	st := state.New(riskMgr, cfg.Confirm)

	if snap, err := persist.Load(); err != nil {
		logger.Error("failed to load persisted state", "error", err)
	} else {
		riskMgr.Restore(snap.Risk)
		st.RestoreHistory(snap.History)
		logger.Info("restored persisted state", "history_entries", len(snap.History))
	}

	hub := events.NewHub(logger)
	go hub.Run()

	exec := executor.New()
	dispatcher := dispatch.New(st, exec, hub, cfg.MT5BaseURL, logger)
	closer := closeingress.New(st, hub, logger)

	_, routes := api.New(st, dispatcher, closer, hub, cfg.Confirm, cfg.APIKey, logger)

	srv := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: routes,
	}

	go func() {
		logger.Info("reflexguard listening", "addr", cfg.BindAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	bgCtx, bgCancel := context.WithCancel(context.Background())
	var bgWG sync.WaitGroup
	bgWG.Add(2)
	go func() {
		defer bgWG.Done()
		persistLoop(bgCtx, persist, st, riskMgr, logger)
	}()
	go func() {
		defer bgWG.Done()
		statsLoop(bgCtx, hub, st)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}

	bgCancel()
	bgWG.Wait()

	if err := persist.Save(store.Snapshot{History: st.History(), Risk: riskMgr.Status()}); err != nil {
		logger.Error("failed to persist state on shutdown", "error", err)
	}
}

// persistLoop periodically snapshots trade history and risk state to disk,
// so a crash loses at most one interval's worth of history. Returns once ctx
// is cancelled.
func persistLoop(ctx context.Context, persist *store.Store, st *state.State, riskMgr *risk.Manager, logger *slog.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := persist.Save(store.Snapshot{History: st.History(), Risk: riskMgr.Status()}); err != nil {
				logger.Error("periodic state persist failed", "error", err)
			}
		}
	}
}

// statsLoop periodically broadcasts aggregate counters to monitor
// subscribers, independent of any trade-triggering event. Returns once ctx
// is cancelled.
func statsLoop(ctx context.Context, hub *events.Hub, st *state.State) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ticks, trades := st.Counts()
			hub.Broadcast(events.NewServerStats(events.ServerStatsPayload{
				TickCount:   ticks,
				TradeCount:  trades,
				HasPosition: st.Position() != nil,
				HasStrategy: st.ActivePlan() != nil,
			}))
		}
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
