// Package cli is the command-line driving adapter. Commands resolve the
// configuration once, wire the driven adapters they need and print results as
// a table, JSON or YAML.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	githubadapter "github.com/ericfisherdev/repometa/internal/adapter/driven/github"
	sqliteadapter "github.com/ericfisherdev/repometa/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/repometa/internal/adapter/driven/yamlfile"
	"github.com/ericfisherdev/repometa/internal/application"
	"github.com/ericfisherdev/repometa/internal/config"
	"github.com/ericfisherdev/repometa/internal/domain/port/driven"
)

// app holds the configuration and lazily wired services shared by commands.
type app struct {
	stdout io.Writer
	stderr io.Writer
	debug  bool

	cfg    *config.Config
	logger *slog.Logger

	db          *sqliteadapter.DB
	credentials driven.CredentialStore
	provider    *application.ClientProvider
	metadata    *application.MetadataService
	snapshots   *application.SnapshotService
}

// loadConfig resolves configuration and installs the default logger.
func (a *app) loadConfig() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := parseLevel(cfg.LogLevel)
	if a.debug {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)

	return nil
}

// wire opens the database (when configured), resolves the token and builds
// the services. Safe to call more than once.
func (a *app) wire(ctx context.Context) error {
	if a.metadata != nil {
		return nil
	}

	var opts []application.MetadataOption

	if a.cfg.HasDatabase() {
		db, err := sqliteadapter.NewDB(ctx, a.cfg.DBPath)
		if err != nil {
			return err
		}
		a.db = db

		version, err := sqliteadapter.RunMigrations(db.Writer)
		if err != nil {
			return err
		}
		slog.Debug("database ready", "path", a.cfg.DBPath, "schema_version", version)

		creds, err := sqliteadapter.NewCredentialRepo(db, a.cfg.SecretKey)
		if err != nil {
			return err
		}
		a.credentials = creds

		opts = append(opts,
			application.WithSnapshotStore(sqliteadapter.NewSnapshotRepo(db)),
			application.WithCredentials(creds, a.newClient),
		)
	}

	token, err := application.ResolveToken(ctx, a.cfg.GitHubToken, a.credentials)
	if err != nil {
		return err
	}
	if token == "" {
		slog.Debug("no GitHub token configured, requests are unauthenticated")
	}

	client, err := a.newClient(token)
	if err != nil {
		return err
	}

	a.provider = application.NewClientProvider(client)
	a.metadata = application.NewMetadataService(a.provider, opts...)
	a.snapshots = application.NewSnapshotService(a.provider,
		yamlfile.NewStore(a.cfg.SnapshotPath, a.cfg.SnapshotSchemaPath))

	return nil
}

func (a *app) newClient(token string) (driven.MetadataClient, error) {
	client, err := githubadapter.NewClient(token, githubadapter.Options{
		BaseURL:            a.cfg.APIURL,
		Timeout:            a.cfg.Timeout,
		HTTPCache:          a.cfg.HTTPCache,
		WaitSecondaryLimit: a.cfg.WaitSecondaryLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("create GitHub client: %w", err)
	}
	return client, nil
}

func (a *app) close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
	a.db = nil
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// errDatabaseRequired is returned by commands that need REPOMETA_DB_PATH.
var errDatabaseRequired = errors.New("this command requires REPOMETA_DB_PATH")
