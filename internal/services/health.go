package services

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/avreyn/chorus/internal/database"
)

type HealthService struct {
	logger *logrus.Logger
	db     *database.Database

	healthCheckStatus *prometheus.GaugeVec
	lastHealthCheck   *prometheus.GaugeVec
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

func NewHealthService(logger *logrus.Logger, db *database.Database) *HealthService {
	hs := &HealthService{
		logger: logger,
		db:     db,
	}

	hs.healthCheckStatus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "health_check_status",
		Help: "Health check status (1 = healthy, 0 = unhealthy)",
	}, []string{"service"})

	hs.lastHealthCheck = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "health_check_timestamp",
		Help: "Timestamp of last health check",
	}, []string{"service"})

	for _, collector := range []prometheus.Collector{hs.healthCheckStatus, hs.lastHealthCheck} {
		if err := prometheus.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				logger.WithError(err).Warn("Failed to register health metric")
			}
		}
	}

	return hs
}

func (hs *HealthService) Check(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Services:  make(map[string]string),
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := hs.db.PG.Ping(checkCtx); err != nil {
		hs.logger.WithError(err).Error("PostgreSQL health check failed")
		status.Services["postgresql"] = "unhealthy"
		status.Status = "unhealthy"
		hs.record("postgresql", 0)
	} else {
		status.Services["postgresql"] = "healthy"
		hs.record("postgresql", 1)
	}

	if err := hs.db.Redis.Ping(checkCtx).Err(); err != nil {
		hs.logger.WithError(err).Warn("Redis health check failed")
		status.Services["redis"] = "unhealthy"
		// Redis is best-effort cache capacity, not a critical dependency
		if status.Status == "healthy" {
			status.Status = "degraded"
		}
		hs.record("redis", 0)
	} else {
		status.Services["redis"] = "healthy"
		hs.record("redis", 1)
	}

	return status
}

func (hs *HealthService) record(service string, healthy float64) {
	hs.healthCheckStatus.WithLabelValues(service).Set(healthy)
	hs.lastHealthCheck.WithLabelValues(service).Set(float64(time.Now().Unix()))
}
