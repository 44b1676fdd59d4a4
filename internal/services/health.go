package services

import (
	"context"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temcen/moviegraph/internal/database"
)

const healthCheckTimeout = 5 * time.Second

var healthCheckStatus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Name: "moviegraph_health_check_status",
	Help: "Health check status (1 = healthy, 0 = unhealthy)",
}, []string{"service"})

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

type HealthService struct {
	logger      *logrus.Logger
	critical    map[string]HealthCheck
	nonCritical map[string]HealthCheck
	now         func() time.Time
}

type HealthStatus struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Services    map[string]string `json:"services"`
	Critical    []string          `json:"critical_failures,omitempty"`
	NonCritical []string          `json:"non_critical_failures,omitempty"`
	Latency     string            `json:"latency"`
}

// NewHealthService checks Neo4j as a critical dependency and Redis as a
// non-critical one.
func NewHealthService(logger *logrus.Logger, db *database.Database) *HealthService {
	critical := map[string]HealthCheck{}
	nonCritical := map[string]HealthCheck{}
	if db != nil {
		if db.Neo4j != nil {
			critical["neo4j"] = func(ctx context.Context) error {
				return db.Neo4j.VerifyConnectivity(ctx)
			}
		}
		if db.Redis != nil {
			nonCritical["redis"] = func(ctx context.Context) error {
				return db.Redis.Ping(ctx).Err()
			}
		}
	}
	return NewHealthServiceWithChecks(logger, critical, nonCritical)
}

func NewHealthServiceWithChecks(logger *logrus.Logger, critical, nonCritical map[string]HealthCheck) *HealthService {
	return &HealthService{
		logger:      logger,
		critical:    critical,
		nonCritical: nonCritical,
		now:         time.Now,
	}
}

// CheckHealth reports "healthy", "degraded" when only non-critical checks
// fail, or "unhealthy".
func (s *HealthService) CheckHealth(ctx context.Context) *HealthStatus {
	start := s.now()
	status := &HealthStatus{
		Timestamp: start,
		Services:  make(map[string]string),
	}

	status.Critical = s.run(ctx, s.critical, status.Services, logrus.ErrorLevel)
	status.NonCritical = s.run(ctx, s.nonCritical, status.Services, logrus.WarnLevel)

	switch {
	case len(status.Critical) > 0:
		status.Status = "unhealthy"
	case len(status.NonCritical) > 0:
		status.Status = "degraded"
	default:
		status.Status = "healthy"
	}
	status.Latency = s.now().Sub(start).String()

	return status
}

func (s *HealthService) run(ctx context.Context, checks map[string]HealthCheck, results map[string]string, level logrus.Level) []string {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var failed []string
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		err := checks[name](checkCtx)
		cancel()

		if err != nil {
			results[name] = "unhealthy"
			failed = append(failed, name)
			healthCheckStatus.WithLabelValues(name).Set(0)
			s.logger.WithError(err).WithField("service", name).Log(level, "Dependency is unhealthy")
			continue
		}
		results[name] = "healthy"
		healthCheckStatus.WithLabelValues(name).Set(1)
	}
	return failed
}
