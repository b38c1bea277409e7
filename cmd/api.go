package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/tamerlane/internal/web"
	"github.com/Laisky/tamerlane/library/log"
)

var apiCMD = &cobra.Command{
	Use:   "api",
	Short: "api",
	Long:  `HTTP API over a viewer session`,
	Args:  gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := runAPI(ctx); err != nil {
			log.Logger.Panic("run api", zap.Error(err))
		}
	},
}

func runAPI(ctx context.Context) error {
	store, err := newSession()
	if err != nil {
		return errors.WithStack(err)
	}

	if contentURL := gconfig.Shared.GetString("content"); contentURL != "" {
		if err := store.LoadContent(ctx, contentURL); err != nil {
			// the session stays usable, a client can load other content
			log.Logger.Warn("preload content", zap.Error(err), zap.String("url", contentURL))
		}
	}

	srv, err := web.NewServer(store)
	if err != nil {
		return errors.Wrap(err, "new web server")
	}

	return srv.Run(ctx, gconfig.Shared.GetString("listen"))
}

func init() {
	rootCMD.AddCommand(apiCMD)
	apiCMD.Flags().String("listen", "localhost:8080", "like `localhost:8080`")
	apiCMD.Flags().String("content", "", "manifest or collection URL loaded at startup")
}
