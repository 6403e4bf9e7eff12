package forecast

import (
	"context"
	"encoding/json"

	"weather-proxy/internal/models"
	"weather-proxy/internal/repositories"
	"weather-proxy/pkg/logger"
)

// ForecastService runs one validated query through the upstream repository
// and shapes the result according to the deployment's response mode.
type ForecastService struct {
	repo repositories.ForecastRepository
	mode models.ResponseMode
	l    *logger.Logger
}

func NewForecastService(repo repositories.ForecastRepository, mode models.ResponseMode, l *logger.Logger) *ForecastService {
	return &ForecastService{
		repo: repo,
		mode: mode,
		l:    l,
	}
}

func (s *ForecastService) Mode() models.ResponseMode {
	return s.mode
}

// Fetch returns the JSON body to send to the caller. Errors are the typed
// upstream errors from the repository or a *models.UpstreamProtocolError
// when the projection cannot be built.
func (s *ForecastService) Fetch(ctx context.Context, q models.Query) (json.RawMessage, error) {
	s.l.Debug("fetching forecast", map[string]any{
		"repo":   s.repo.Name(),
		"params": q.RequestParams(),
		"mode":   string(s.mode),
	})

	body, err := s.repo.FetchForecast(ctx, q)
	if err != nil {
		return nil, err
	}

	shaped, err := Project(s.mode, body)
	if err != nil {
		s.l.Warning("failed to project upstream response", map[string]any{
			"repo": s.repo.Name(),
			"mode": string(s.mode),
			"err":  err.Error(),
		})
		return nil, err
	}

	return shaped, nil
}
