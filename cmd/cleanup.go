package cmd

import (
	"context"

	gconfig "github.com/Laisky/go-config/v2"
	gutils "github.com/Laisky/go-utils/v6"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/minidrive/storage/internal/web/drive/service"
	"github.com/minidrive/storage/library/log"
)

var cleanupCMD = &cobra.Command{
	Use:   "cleanup",
	Short: "cleanup",
	Long:  `run one retention sweep over soft-deleted items, then exit`,
	Args:  gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		retention := gconfig.Shared.GetDuration("settings.cleanup.retention")
		cutoff := gutils.Clock.GetUTCNow().Add(-retention)

		purged, err := service.Instance.PurgeExpired(ctx, cutoff)
		if err != nil {
			log.Logger.Panic("purge expired items", zap.Error(err))
		}

		log.Logger.Info("cleanup done",
			zap.Int("purged", purged), zap.Time("cutoff", cutoff))
	},
}

func init() {
	rootCMD.AddCommand(cleanupCMD)
}
