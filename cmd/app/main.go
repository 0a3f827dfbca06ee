package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	sqliteadapter "github.com/lmco/eurekastreams-sub009/internal/adapters/db/sqlite"
	"github.com/lmco/eurekastreams-sub009/internal/adapters/directory"
	httpadapter "github.com/lmco/eurekastreams-sub009/internal/adapters/http"
	rpcadapter "github.com/lmco/eurekastreams-sub009/internal/adapters/rpcjson"
	"github.com/lmco/eurekastreams-sub009/internal/application"
	"github.com/lmco/eurekastreams-sub009/internal/config"
	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"github.com/lmco/eurekastreams-sub009/internal/logging"
	"github.com/lmco/eurekastreams-sub009/internal/scheduler"
	"github.com/urfave/cli/v3"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "eurekastreams",
		Usage: "Enterprise activity streams server and CLI",
		Commands: []*cli.Command{
			serverCommand(),
			migrateCommand(),
			directoryCommand(),
			authCommand(),
			actionCommand(),
			metricsCommand(),
			settingsCommand(),
			reindexCommand(),
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		log.Fatal(err)
	}
}

func loadServerConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Run the HTTP and JSON-RPC servers with background workers",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "HTTP listen address (overrides EUREKA_HTTP_ADDR)"},
			&cli.StringFlag{Name: "rpc-socket", Usage: "JSON-RPC unix socket path (overrides EUREKA_RPC_SOCKET)"},
			&cli.StringFlag{Name: "db-path", Usage: "SQLite database path (overrides EUREKA_DB_PATH)"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadServerConfig()
			if err != nil {
				return err
			}
			if v := c.String("addr"); v != "" {
				cfg.HTTPAddr = v
			}
			if v := c.String("rpc-socket"); v != "" {
				cfg.RPCSocket = v
			}
			if v := c.String("db-path"); v != "" {
				cfg.DBPath = v
			}
			return runServer(ctx, cfg)
		},
	}
}

func runServer(ctx context.Context, cfg config.Config) error {
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	st, err := openStack(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	password := cfg.BootstrapPassword
	if password == "" {
		password = uuid.NewString()
	}
	if err := st.service.BootstrapAdmin(ctx, cfg.BootstrapAccountID, cfg.BootstrapEmail, password); err != nil {
		return err
	}
	if cfg.BootstrapPassword == "" {
		logger.WithField("account", cfg.BootstrapAccountID).Warnf("no bootstrap password configured; generated %s (used only when the directory is empty)", password)
	}

	workCtx, stopWork := context.WithCancel(context.Background())
	defer stopWork()
	st.queue.Start(workCtx, st.exec, cfg.Workers)

	sched := scheduler.New(st.queue, logger)
	if err := sched.Add(
		scheduler.Job{Spec: cfg.DailySummaryCron, Action: application.ActionGenerateDailyUsageSummary},
		scheduler.Job{Spec: cfg.ExpirationCron, Action: application.ActionPurgeExpiredActivities},
	); err != nil {
		return err
	}
	sched.Start()

	router := httpadapter.NewRouter(st.service, st.exec, logger, httpadapter.Options{
		SessionTTL:     cfg.SessionTTL,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	rpcSrv, err := rpcadapter.Start(cfg.RPCSocket, st.service, st.exec, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = rpcSrv.Close()
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", srv.Addr).Info("http listening")
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigCh:
		logger.WithField("signal", sig.String()).Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("http shutdown")
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Warn("scheduler shutdown")
	}
	if err := st.queue.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Warn("worker shutdown")
	}
	return serveErr
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Database schema migrations",
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return withDB(ctx, func(ctx context.Context, st *migrateTarget) error {
						if err := sqliteadapter.RunMigrations(ctx, st.db, st.log); err != nil {
							return err
						}
						return printMigrationVersion(ctx, st)
					})
				},
			},
			{
				Name:  "down",
				Usage: "Roll back the latest migration",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return withDB(ctx, func(ctx context.Context, st *migrateTarget) error {
						if err := sqliteadapter.RollbackMigration(ctx, st.db, st.log); err != nil {
							return err
						}
						return printMigrationVersion(ctx, st)
					})
				},
			},
			{
				Name:  "status",
				Usage: "Show the current schema version",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return withDB(ctx, printMigrationVersion)
				},
			},
		},
	}
}

func directoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "directory",
		Usage: "Directory population",
		Commands: []*cli.Command{
			{
				Name:  "import",
				Usage: "Create organizations, people and groups from a YAML file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Required: true, Usage: "directory YAML file"},
					&cli.StringFlag{Name: "as", Usage: "account to run as (defaults to the bootstrap admin)"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadServerConfig()
					if err != nil {
						return err
					}
					f, err := os.Open(c.String("file"))
					if err != nil {
						return err
					}
					defer func() { _ = f.Close() }()
					file, err := directory.Parse(f)
					if err != nil {
						return err
					}

					logger := logging.New(cfg.LogLevel, cfg.LogFormat)
					st, err := openStack(ctx, cfg, logger)
					if err != nil {
						return err
					}
					defer st.Close()

					account := c.String("as")
					if account == "" {
						account = cfg.BootstrapAccountID
					}
					principal, err := st.service.PrincipalForAccount(ctx, account)
					if err != nil {
						return fmt.Errorf("load principal %s: %w", account, err)
					}

					st.queue.Start(ctx, st.exec, cfg.Workers)
					res, importErr := directory.NewImporter(st.exec, principal, logger).Import(ctx, file)
					stopCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
					defer cancel()
					if err := st.queue.Stop(stopCtx); err != nil {
						logger.WithError(err).Warn("queued work not finished")
					}
					if importErr != nil {
						return importErr
					}
					if c.Bool("json") {
						return printJSON(res)
					}
					printImportResult(res)
					return nil
				},
			},
		},
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authentication commands",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Login and store a CLI token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "transport", Value: "uds", Usage: "uds or http"},
					&cli.StringFlag{Name: "server", Value: defaultServer},
					&cli.StringFlag{Name: "socket", Value: defaultSocket},
					&cli.StringFlag{Name: "login", Required: true, Usage: "account id or email"},
					&cli.StringFlag{Name: "password", Required: true},
					&cli.StringFlag{Name: "token-name", Value: "cli"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg := cliConfig{Transport: c.String("transport"), Server: c.String("server"), Socket: c.String("socket")}.withDefaults()
					tr, err := newTransport(cfg)
					if err != nil {
						return err
					}
					out, err := tr.Login(ctx, c.String("login"), c.String("password"), c.String("token-name"))
					if err != nil {
						return err
					}
					cfg.Token = out.Token
					if err := saveCLIConfig(cfg); err != nil {
						return err
					}
					fmt.Printf("logged in as %s\n", out.AccountID)
					return nil
				},
			},
			{
				Name:  "whoami",
				Usage: "Show the authenticated person",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					tr, err := connect()
					if err != nil {
						return err
					}
					out, err := tr.WhoAmI(ctx)
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printWhoAmI(out)
					return nil
				},
			},
			{
				Name:  "logout",
				Usage: "Forget the stored token",
				Action: func(ctx context.Context, _ *cli.Command) error {
					cfg, err := loadCLIConfig()
					if err != nil {
						return err
					}
					tr, err := newTransport(cfg)
					if err != nil {
						return err
					}
					if err := tr.Logout(ctx); err != nil {
						return err
					}
					cfg.Token = ""
					if err := saveCLIConfig(cfg); err != nil {
						return err
					}
					fmt.Println("logged out")
					return nil
				},
			},
		},
	}
}

func actionCommand() *cli.Command {
	return &cli.Command{
		Name:  "action",
		Usage: "Run named actions on the server",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run an action with JSON params",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true, Usage: "action name, e.g. getPerson"},
					&cli.StringFlag{Name: "params", Usage: "JSON params object"},
					&cli.StringFlag{Name: "params-file", Usage: "file holding JSON params"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					tr, err := connect()
					if err != nil {
						return err
					}
					params, err := readParams(c.String("params"), c.String("params-file"))
					if err != nil {
						return err
					}
					var out json.RawMessage
					if err := tr.Execute(ctx, c.String("name"), params, &out); err != nil {
						return reportActionError(os.Stderr, err)
					}
					return printJSON(out)
				},
			},
			{
				Name:  "list",
				Usage: "List registered action names",
				Action: func(ctx context.Context, _ *cli.Command) error {
					tr, err := connect()
					if err != nil {
						return err
					}
					names, err := tr.Actions(ctx)
					if err != nil {
						return err
					}
					for _, name := range names {
						fmt.Println(name)
					}
					return nil
				},
			},
		},
	}
}

func metricsCommand() *cli.Command {
	return &cli.Command{
		Name:  "metrics",
		Usage: "Usage metrics",
		Commands: []*cli.Command{
			{
				Name:  "summary",
				Usage: "Show the usage summary over recent weekdays",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "days", Value: 7},
					&cli.IntFlag{Name: "stream-scope-id", Usage: "limit to one stream"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					tr, err := connect()
					if err != nil {
						return err
					}
					params := map[string]any{"numberOfDays": c.Int("days")}
					if id := c.Int("stream-scope-id"); id > 0 {
						params["streamRecipientStreamScopeId"] = id
					}
					raw, err := json.Marshal(params)
					if err != nil {
						return err
					}
					var out domain.UsageMetricSummary
					if err := tr.Execute(ctx, application.ActionGetUsageMetricSummary, raw, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printUsageSummary(out)
					return nil
				},
			},
		},
	}
}

func settingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "System settings",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Show system settings",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					tr, err := connect()
					if err != nil {
						return err
					}
					var out domain.SystemSettings
					if err := tr.Execute(ctx, application.ActionGetSystemSettings, nil, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printSettings(out)
					return nil
				},
			},
		},
	}
}

func reindexCommand() *cli.Command {
	return &cli.Command{
		Name:  "reindex",
		Usage: "Rebuild the search index for people, organizations and groups",
		Action: func(ctx context.Context, _ *cli.Command) error {
			tr, err := connect()
			if err != nil {
				return err
			}
			var out json.RawMessage
			if err := tr.Execute(ctx, application.ActionReindexEntities, nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}

func readParams(inline, file string) (json.RawMessage, error) {
	var data []byte
	switch {
	case inline != "" && file != "":
		return nil, errors.New("use either --params or --params-file")
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		data = b
	default:
		data = []byte(inline)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	if !json.Valid(data) {
		return nil, errors.New("params must be valid JSON")
	}
	return json.RawMessage(data), nil
}

func jsonMarshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
