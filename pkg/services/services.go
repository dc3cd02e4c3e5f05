// Package services implements project collaboration: access checks,
// memberships and invitations, phases, tasks and the pending-update review flow.
package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskboard-backend/pkg/cache"
	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/mailer"
	"taskboard-backend/pkg/utils"
)

// Deps are the collaborators a Service needs.
type Deps struct {
	DB     database.DatabaseInterface
	Cache  cache.Cache
	Mailer *mailer.Dispatcher
	JWT    *utils.JWTService
	Logger *slog.Logger
	// BaseURL prefixes links in outgoing emails.
	BaseURL  string
	CacheTTL time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Service is the application layer shared by every HTTP handler.
type Service struct {
	db       database.DatabaseInterface
	cache    cache.Cache
	mail     *mailer.Dispatcher
	jwt      *utils.JWTService
	logger   *slog.Logger
	baseURL  string
	cacheTTL time.Duration
	clock    func() time.Time
}

func New(deps Deps) *Service {
	s := &Service{
		db:       deps.DB,
		cache:    deps.Cache,
		mail:     deps.Mailer,
		jwt:      deps.JWT,
		logger:   deps.Logger,
		baseURL:  strings.TrimRight(deps.BaseURL, "/"),
		cacheTTL: deps.CacheTTL,
		clock:    deps.Now,
	}
	if s.cache == nil {
		s.cache = cache.NewMemory()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = 5 * time.Minute
	}
	return s
}

// now returns the current time in UTC at the precision both stores keep.
func (s *Service) now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

func newID() string {
	return uuid.NewString()
}

// invalidatePhases drops the cached phase listing. Failures are logged and
// left to the TTL; the write that triggered them has already committed.
func (s *Service) invalidatePhases(ctx context.Context, projectID string) {
	if err := s.cache.Delete(ctx, cache.PhasesKey(projectID)); err != nil {
		s.logger.Warn("phase cache invalidation failed",
			slog.String("project_id", projectID),
			slog.String("error", err.Error()))
	}
}

func (s *Service) sendMail(msg mailer.Message, err error) {
	if err != nil {
		s.logger.Error("render email", slog.String("error", err.Error()))
		return
	}
	s.mail.Dispatch(msg)
}
