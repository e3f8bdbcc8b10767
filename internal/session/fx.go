package session

import (
	"github.com/drivelane/drivelane/internal/session/service"
	"go.uber.org/fx"
)

var Module = fx.Module("session.service",
	fx.Provide(service.NewService),
)
