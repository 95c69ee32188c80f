package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

var errBrokerClosed = errors.New("amqp connection is closed")

type HealthChecker struct {
	infra Infrastructure
}

func NewHealthChecker(infra Infrastructure) *HealthChecker {
	return &HealthChecker{
		infra: infra,
	}
}

// check pings every dependency concurrently and reports per-dependency status
func (h *HealthChecker) check(ctx context.Context) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	type result struct {
		name string
		err  error
	}

	probes := map[string]func() error{
		"postgres": func() error { return h.infra.Postgres().Ping(ctx) },
		"redis":    func() error { return h.infra.Redis().Ping(ctx) },
	}
	if conn := h.infra.AMQP(); conn != nil {
		probes["amqp"] = func() error {
			if conn.IsClosed() {
				return errBrokerClosed
			}
			return nil
		}
	}

	results := make(chan result, len(probes))
	for name, probe := range probes {
		go func() {
			results <- result{name: name, err: probe()}
		}()
	}

	status := make(map[string]string, len(probes))
	var errs []error
	for range probes {
		r := <-results
		if r.err != nil {
			status[r.name] = "fail"
			errs = append(errs, fmt.Errorf("%s: %w", r.name, r.err))
			continue
		}
		status[r.name] = "pass"
	}

	return status, errors.Join(errs...)
}

func (h *HealthChecker) Handler(c *gin.Context) {
	checks, err := h.check(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "fail",
			"checks": checks,
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "pass",
		"checks": checks,
	})
}
