package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/channelkit/channelkit/internal/config"
	"github.com/channelkit/channelkit/internal/server"
	"github.com/channelkit/channelkit/pkg/session"
	"github.com/channelkit/channelkit/pkg/store"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr     string
		mongoURI string
		noAuth   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local validation and planning API",
		Long: `Run the HTTP API used by editors and channel CI.

The API validates descriptors, computes dry-run plans, and serves run
history. Callers authenticate with the logged-in session's token unless
--no-auth leaves the API open. Run history lives in memory unless a
MongoDB URI is configured, in which case replicas share it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Serve.Addr = addr
			}
			if cmd.Flags().Changed("mongo-uri") {
				cfg.Serve.MongoURI = mongoURI
			}
			if cmd.Flags().Changed("no-auth") {
				cfg.Serve.NoAuth = noAuth
			}

			sess, err := serveSession(ctx, cfg, c)
			if err != nil {
				return err
			}

			st, cleanup, err := openRunStore(ctx, cfg.Serve.MongoURI)
			if err != nil {
				return err
			}
			defer cleanup()

			bc, err := newByteCache(cfg)
			if err != nil {
				return err
			}
			defer bc.Close()

			srv := server.New(st, c.Logger, server.Options{
				Session: sess,
				Cache:   bc,
				PlanTTL: cfg.Cache.TTL,
			})
			return srv.ListenAndServe(ctx, cfg.Serve.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&mongoURI, "mongo-uri", "", "MongoDB URI for shared run history")
	cmd.Flags().BoolVar(&noAuth, "no-auth", false, "skip platform authentication")

	return cmd
}

// serveSession resolves the session the API serves under: the stored login
// normally, or an open local session with --no-auth.
func serveSession(ctx context.Context, cfg *config.Config, c *CLI) (*session.Session, error) {
	if cfg.Serve.NoAuth {
		c.Logger.Warn("running without platform authentication")
		return session.Local(), nil
	}
	return currentSession(ctx)
}

// openRunStore picks the run history backend: MongoDB when configured,
// in-memory otherwise.
func openRunStore(ctx context.Context, mongoURI string) (store.Store, func(), error) {
	if mongoURI == "" {
		return store.NewMemoryStore(), func() {}, nil
	}
	ms, err := store.NewMongoStore(ctx, mongoURI)
	if err != nil {
		return nil, nil, err
	}
	return ms, func() { _ = ms.Close(context.Background()) }, nil
}
