package delivery

import (
	"context"

	"go.uber.org/zap"

	"github.com/tschilb252/fallowing-verification/internal/notification"
	"github.com/tschilb252/fallowing-verification/internal/properties"
	"github.com/tschilb252/fallowing-verification/internal/zonal"
)

type Notifier interface {
	Error(ctx context.Context, run string, err error) error
	Success(ctx context.Context, run, message string, fields ...notification.DiscordField) error
}

// Service runs the fallow identification and field selection pipelines.
type Service struct {
	Params   properties.Parameters
	Computer zonal.ZonalMeanComputer
	Notifier Notifier
	Logger   *zap.Logger
	// CacheDir holds per-image zonal means; empty disables caching.
	CacheDir string
	Progress bool
}

func NewService(params properties.Parameters, logger *zap.Logger) *Service {
	return &Service{
		Params: params,
		Computer: zonal.GDALComputer{
			RedBand: params.Imagery.RedBand,
			NIRBand: params.Imagery.NIRBand,
		},
		Notifier: notification.NewDiscord(),
		Logger:   logger,
		CacheDir: properties.CachePath(),
		Progress: true,
	}
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// notifyError reports a failed run. Notification failures only get logged.
func (s *Service) notifyError(ctx context.Context, run string, err error) {
	if s.Notifier == nil {
		return
	}
	if nerr := s.Notifier.Error(ctx, run, err); nerr != nil {
		s.logger().Warn("failed to send error notification", zap.String("run_id", run), zap.Error(nerr))
	}
}

func (s *Service) notifySuccess(ctx context.Context, run, message string, fields ...notification.DiscordField) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Success(ctx, run, message, fields...); err != nil {
		s.logger().Warn("failed to send success notification", zap.String("run_id", run), zap.Error(err))
	}
}
