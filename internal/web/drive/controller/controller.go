// Package controller exposes the drive service over REST.
package controller

import (
	"context"

	"github.com/minidrive/storage/internal/web/drive/service"
)

var Instance *Type

func Initialize(ctx context.Context) {
	service.Initialize(ctx)

	Instance = New(service.Instance)
}

// Type is the drive REST controller.
type Type struct {
	svc *service.Type
}

func New(svc *service.Type) *Type {
	return &Type{svc: svc}
}
