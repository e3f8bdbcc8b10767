package booking

import (
	"github.com/drivelane/drivelane/internal/booking/repository"
	"github.com/drivelane/drivelane/internal/booking/service"
	"go.uber.org/fx"
)

var Module = fx.Module("booking.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
