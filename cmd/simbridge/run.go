package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/text/language"

	"simbridge/internal/api"
	"simbridge/pkg/action"
	"simbridge/pkg/config"
	"simbridge/pkg/connector"
	"simbridge/pkg/core"
	"simbridge/pkg/db"
	"simbridge/pkg/defs"
	"simbridge/pkg/logging"
	"simbridge/pkg/probe"
	"simbridge/pkg/sim"
	"simbridge/pkg/sim/mocksim"
	"simbridge/pkg/simvar"
	"simbridge/pkg/store"
	"simbridge/pkg/surface"
	"simbridge/pkg/surface/wsclient"
	"simbridge/pkg/version"
)

func run(ctx context.Context, configPath string) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("SimBridge started", "version", version.Version)

	st, closeStore, err := initStore(appCfg)
	if err != nil {
		return err
	}
	defer closeStore()
	prov := config.NewProvider(appCfg, st)

	settings := core.SettingsFromConfig(appCfg)
	settings.PollInterval = prov.PollInterval(ctx)
	settings.Locale = prov.Locale(ctx)

	vars, actions, err := loadRegistries(appCfg, settings.Locale)
	if err != nil {
		return err
	}

	if err := startupChecks(ctx, st, vars, actions); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	simClient := initializeSimClient(ctx, prov)

	surf := connectSurface(ctx, appCfg)
	var pub surface.Publisher
	if surf != nil {
		pub = surf
		defer surf.Close()
	}

	svc := core.NewService(simClient, vars, actions, connector.NewTracker(connector.WithPluginID(appCfg.Surface.PluginID)), pub, prov, settings,
		core.WithLastLog(logging.GlobalLogCapture),
		core.WithShutdown(cancel),
		core.WithQueueSize(appCfg.Sync.QueueSize),
	)

	engineDone := make(chan error, 1)
	go func() {
		err := svc.Run(ctx)
		if err != nil {
			cancel()
		}
		engineDone <- err
	}()

	if surf != nil {
		go func() {
			if err := surf.Run(ctx, svc); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("Control surface connection lost", "error", err)
			}
			cancel()
		}()
	}

	var srvErr error
	if appCfg.Server.Enabled {
		srv := api.NewServer(appCfg.Server.Address, svc, cancel)
		srv.Handler = loggingMiddleware(srv.Handler)
		srvErr = runServerLifecycle(ctx, srv)
	} else {
		<-ctx.Done()
	}
	cancel()

	if err := <-engineDone; err != nil {
		return fmt.Errorf("sync engine failed: %w", err)
	}
	slog.Info("SimBridge stopped")
	return srvErr
}

// initStore opens the SQLite state store. An empty path keeps state in
// memory for the lifetime of the process.
func initStore(appCfg *config.Config) (store.StateStore, func(), error) {
	if appCfg.DB.Path == "" {
		slog.Info("No database path configured, state is not persisted")
		return store.NewMemoryStore(), func() {}, nil
	}
	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	st := store.NewSQLiteStore(dbConn)
	return st, func() {
		if err := st.Close(); err != nil {
			slog.Warn("Failed to close database", "error", err)
		}
	}, nil
}

// loadRegistries reads the action and variable tables and indexes them.
func loadRegistries(appCfg *config.Config, locale string) (*simvar.Registry, *action.Registry, error) {
	actionDefs, err := defs.LoadActions(appCfg.Defs.Actions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load actions: %w", err)
	}
	actions := action.BuildRegistry(append(action.PluginDefinitions(), actionDefs...), slog.With("component", "action"))

	tag, err := language.Parse(locale)
	if err != nil {
		slog.Warn("Invalid locale, using English", "locale", locale, "error", err)
		tag = language.English
	}
	vars := simvar.NewRegistry(simvar.WithLocale(tag))
	loaded, err := defs.LoadVariables(appCfg.Defs.Variables, slog.With("component", "defs"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load variables: %w", err)
	}
	for _, v := range loaded {
		if _, err := vars.Register(v); err != nil {
			slog.Warn("Skipping variable", "key", v.Key, "error", err)
		}
	}

	slog.Info("Definitions loaded", "actions", actions.Len(), "variables", vars.Len())
	return vars, actions, nil
}

func startupChecks(ctx context.Context, st store.StateStore, vars *simvar.Registry, actions *action.Registry) error {
	probes := []probe.Probe{
		{Name: "State Store", Check: probe.StoreRoundTrip(st), Critical: true},
		{Name: "Actions", Check: probe.NotEmpty("actions", actions.Len), Critical: true},
		{Name: "Variables", Check: probe.NotEmpty("variables", vars.Len)},
	}
	return probe.AnalyzeResults(slog.With("component", "probe"), probe.Run(ctx, probes))
}

func initializeSimClient(ctx context.Context, prov config.Provider) sim.Client {
	appCfg := prov.AppConfig()
	if prov.SimProvider(ctx) == "mock" {
		slog.Info("Sim Source: Mock")
		return newMockClient(appCfg)
	}

	slog.Info("Sim Source: SimConnect")
	sc, err := newSimConnectClient(appCfg.Sim.AppName, appCfg.Sim.DLLPath)
	if err != nil {
		slog.Error("Failed to create SimConnect client, falling back to Mock", "error", err)
		return newMockClient(appCfg)
	}
	return sc
}

func newMockClient(appCfg *config.Config) *mocksim.MockClient {
	values := make(map[string]any, len(appCfg.Sim.Mock.Values))
	for name, raw := range appCfg.Sim.Mock.Values {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			values[name] = f
			continue
		}
		values[name] = raw
	}
	return mocksim.NewClient(mocksim.Config{
		Values:       values,
		FailConnects: appCfg.Sim.Mock.FailConnects,
		Animate:      appCfg.Sim.Mock.Animate,
	})
}

// connectSurface pairs with the control surface. A failed dial leaves the
// bridge running without a surface so the status API stays reachable.
func connectSurface(ctx context.Context, appCfg *config.Config) *wsclient.Client {
	if !appCfg.Surface.Enabled {
		slog.Info("Control surface disabled")
		return nil
	}
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	c, err := wsclient.Dial(dialCtx, appCfg.Surface.URL, appCfg.Surface.PluginID)
	if err != nil {
		slog.Error("Failed to connect to control surface", "url", appCfg.Surface.URL, "error", err)
		return nil
	}
	return c
}

func runServerLifecycle(ctx context.Context, srv *http.Server) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down server...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.RequestLogger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
