package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"actcal/internal/backend"
	"actcal/internal/catalog"
	"actcal/internal/config"
	"actcal/internal/graph"
	appLog "actcal/internal/log"
	"actcal/internal/model"
	"actcal/internal/orchestrator"
	"actcal/internal/refresh"
	"actcal/internal/registry"
	"actcal/internal/web"
)

const version = "0.1.0"

type flagConfig struct {
	configPath string
	envPath    string
	listen     string
	once       bool
	cachedGet  bool
}

func main() {
	flags := parseFlags()

	// A missing .env file is normal outside development.
	if err := godotenv.Load(flags.envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		appLog.Warn("failed to read env file", "path", flags.envPath, "err", err)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	conf.ApplyEnv(os.Getenv)

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("actcal starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"backend", conf.Backend.BaseURL,
		"graph_enabled", conf.Graph.Enabled,
		"synced_category", conf.SyncedCategory,
		"ics_enabled", conf.ICS.Enabled,
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	loc := conf.Location()
	be := backend.New(conf.Backend.BaseURL, backend.WithTimeout(conf.BackendTimeout()))
	cat := catalog.New(be, conf.SyncedCategory)
	reg := registry.New(cat, registry.WithLocation(loc))

	var opts []orchestrator.Option
	if flags.cachedGet {
		opts = append(opts, orchestrator.WithCachedLoadOne())
	}
	orch := orchestrator.New(reg, cat, be, newProvider(conf), opts...)

	if err := orch.LoadAll(ctx); err != nil {
		appLog.Error("initial load failed", err)
		if flags.once {
			os.Exit(1)
		}
	}
	if err := cat.LoadLookups(ctx); err != nil {
		appLog.Warn("lookup lists unavailable", "err", err)
	}

	if flags.once {
		printAgenda(os.Stdout, reg.GroupedByDay(), loc)
		return
	}

	sched, err := refresh.New(conf.RefreshCron, func(ctx context.Context) error {
		if err := orch.LoadAll(ctx); err != nil {
			return err
		}
		return cat.LoadLookups(ctx)
	}, loc, refresh.WithTimeout(2*time.Minute))
	if err != nil {
		appLog.Error("failed to create refresh scheduler", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	sched.Start(ctx)
	defer sched.Stop()

	srv := web.NewServer(conf, web.Deps{
		Registry:     reg,
		Orchestrator: orch,
		Catalog:      cat,
		Refresher:    sched,
	})
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              conf.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		appLog.Info("http server listening", "addr", "http://"+conf.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("http server failed", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLog.Error("http server shutdown failed", err)
	}
	appLog.Info("actcal exiting")
}

// newProvider returns nil when the external calendar is disabled or cannot
// be configured. The orchestrator then treats it as signed out.
func newProvider(conf *config.Config) orchestrator.Provider {
	if !conf.Graph.Enabled {
		return nil
	}
	c, err := graph.New(graph.Config{
		BaseURL:      conf.Graph.BaseURL,
		TenantID:     conf.Graph.TenantID,
		ClientID:     conf.Graph.ClientID,
		ClientSecret: conf.Graph.ClientSecret,
		TokenURL:     conf.Graph.TokenURL,
		Scopes:       conf.Graph.Scopes,
		GroupID:      conf.Graph.CalendarGroupID,
		User:         conf.Graph.User,
		PageSize:     conf.Graph.PageSize,
	})
	if err != nil {
		appLog.Error("external calendar disabled", err)
		return nil
	}
	return c
}

func printAgenda(w io.Writer, groups []model.DayGroup, loc *time.Location) {
	if len(groups) == 0 {
		fmt.Fprintln(w, "no activities")
		return
	}
	for _, g := range groups {
		fmt.Fprintln(w, g.Date)
		for _, a := range g.Activities {
			when := "all day"
			if !a.AllDayEvent {
				when = a.Start.In(loc).Format("15:04") + "-" + a.End.In(loc).Format("15:04")
			}
			fmt.Fprintf(w, "  %-13s %s", when, a.Title)
			if a.Category.Name != "" {
				fmt.Fprintf(w, " [%s]", a.Category.Name)
			}
			fmt.Fprintln(w)
		}
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/actcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.envPath, "env", ".env", "Path to an optional dotenv file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Load both providers, print the agenda and exit")
	flag.BoolVar(&cfg.cachedGet, "cached-get", false, "Serve single-activity reads from memory when present")

	flag.Parse()

	return cfg
}
