package cmd

import (
	"context"
	"fmt"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	glog "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/tamerlane/library/config"
	"github.com/Laisky/tamerlane/library/log"
)

var rootCMD = &cobra.Command{
	Use:   "tamerlane",
	Short: "tamerlane",
	Long:  `IIIF manifest viewer with content search`,
	Args:  gcmd.NoExtraArgs,
}

func initialize(ctx context.Context, cmd *cobra.Command) error {
	if err := gconfig.Shared.BindPFlags(cmd.Flags()); err != nil {
		return errors.Wrap(err, "bind pflags")
	}

	if err := setupSettings(ctx); err != nil {
		return errors.Wrap(err, "setup settings")
	}
	if err := setupLogger(ctx); err != nil {
		return errors.Wrap(err, "setup logger")
	}
	if err := validateStartupConfig(); err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func setupSettings(_ context.Context) error {
	// mode
	if gconfig.Shared.GetBool("debug") {
		fmt.Println("run in debug mode")
		gconfig.Shared.Set("log-level", "debug")
	}

	// load configuration
	cfgPath := gconfig.Shared.GetString("config")
	if cfgPath == "" {
		config.ApplyDefaults()
		return nil
	}

	return config.LoadFromFile(cfgPath)
}

func setupLogger(_ context.Context) error {
	lvl := gconfig.Shared.GetString("log-level")
	if err := log.SetLevel(lvl); err != nil {
		return errors.Wrapf(err, "change log level to %q", lvl)
	}

	return nil
}

func init() {
	rootCMD.PersistentFlags().Bool("debug", false, "run in debug mode")
	rootCMD.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCMD.PersistentFlags().String("log-level", "info", "`debug/info/error`")
}

// Execute execute root command
func Execute() {
	if err := rootCMD.Execute(); err != nil {
		glog.Shared.Panic("start", zap.Error(err))
	}
}
