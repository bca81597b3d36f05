package model

import (
	"context"

	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"

	"github.com/minidrive/storage/library/db/mongo"
	"github.com/minidrive/storage/library/log"
)

var (
	DriveDB mongo.DB
)

func Initialize(ctx context.Context) {
	var err error
	if DriveDB, err = mongo.NewDB(ctx,
		mongo.DialInfo{
			Addr:   gconfig.Shared.GetString("settings.db.drive.addr"),
			DBName: gconfig.Shared.GetString("settings.db.drive.db"),
			User:   gconfig.Shared.GetString("settings.db.drive.user"),
			Pwd:    gconfig.Shared.GetString("settings.db.drive.pwd"),
		},
	); err != nil {
		log.Logger.Panic("connect to drive db", zap.Error(err))
	}
}
