package services

import (
	"log/slog"
	"time"

	"github.com/studyforge/srs-service/internal/cache"
	"github.com/studyforge/srs-service/internal/events"
	"github.com/studyforge/srs-service/internal/repositories"
	"github.com/studyforge/srs-service/internal/srs"
	"github.com/studyforge/srs-service/internal/utils"
)

// ServiceManager bundles the service layer behind one injected dependency.
type ServiceManager interface {
	Progress() ProgressService
	Session() SessionService
	Analytics() AnalyticsService
	Export() ExportService
}

// ManagerConfig carries the tunables the service layer needs at build time.
type ManagerConfig struct {
	Policy            srs.Policy
	InactivityTimeout time.Duration
}

type serviceManager struct {
	progress  ProgressService
	session   SessionService
	analytics AnalyticsService
	export    ExportService
}

func NewServiceManager(
	repo repositories.Repository,
	publisher events.EventPublisher,
	cacheService cache.CacheService,
	logger *slog.Logger,
	validator *utils.Validator,
	cfg ManagerConfig,
) ServiceManager {
	progress := NewProgressService(repo, logger, validator, cacheService, cfg.Policy)
	session := NewSessionService(repo, progress, publisher, logger, validator, cfg.InactivityTimeout)
	analytics := NewAnalyticsService(repo, logger, cacheService)
	export := NewExportService(repo, analytics, logger)

	return &serviceManager{
		progress:  progress,
		session:   session,
		analytics: analytics,
		export:    export,
	}
}

func (m *serviceManager) Progress() ProgressService   { return m.progress }
func (m *serviceManager) Session() SessionService     { return m.session }
func (m *serviceManager) Analytics() AnalyticsService { return m.analytics }
func (m *serviceManager) Export() ExportService       { return m.export }
