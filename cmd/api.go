package cmd

import (
	"context"

	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/minidrive/storage/internal/web"
	"github.com/minidrive/storage/internal/web/drive/service"
	"github.com/minidrive/storage/library/log"
)

var apiCMD = &cobra.Command{
	Use:   "api",
	Short: "api",
	Long:  `drive API service`,
	Args:  gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		sweeper := service.NewSweeper(service.Instance,
			gconfig.Shared.GetDuration("settings.cleanup.interval"),
			gconfig.Shared.GetDuration("settings.cleanup.retention"),
		)
		sweeper.Start(context.Background())
		defer sweeper.Stop()

		web.RunServer(gconfig.Shared.GetString("listen"))
	},
}

func init() {
	rootCMD.AddCommand(apiCMD)
}
