package health

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"tasktrack/config"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// Checker reports whether a dependency answers.
type Checker interface {
	Ping(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Controller serves liveness, readiness and the full dependency report.
type Controller struct {
	config    *config.Config
	checks    map[string]Checker
	timeout   time.Duration
	startTime time.Time
}

// NewController checks maps a dependency name such as "database" or "redis" to its
// checker; it may be empty.
func NewController(cfg *config.Config, checks map[string]Checker) *Controller {
	if checks == nil {
		checks = map[string]Checker{}
	}
	return &Controller{
		config:    cfg,
		checks:    checks,
		timeout:   2 * time.Second,
		startTime: time.Now(),
	}
}

func (c *Controller) RegisterRoutes(router gin.IRoutes) {
	router.GET("/health", c.Health)
	router.GET("/health/live", c.Liveness)
	router.GET("/health/ready", c.Readiness)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string           `json:"status"`
	Version   string           `json:"version"`
	Uptime    string           `json:"uptime"`
	Timestamp string           `json:"timestamp"`
	Checks    map[string]Check `json:"checks,omitempty"`
	System    *SystemInfo      `json:"system,omitempty"`
}

type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumCPU       int    `json:"num_cpu"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
}

// Health reports every dependency plus, in development, runtime stats.
func (c *Controller) Health(ctx *gin.Context) {
	checks, failing := c.runChecks(ctx.Request.Context())

	response := HealthResponse{
		Status:    statusHealthy,
		Version:   c.config.App.Version,
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}
	if len(failing) > 0 {
		response.Status = statusUnhealthy
	}
	if c.config.IsDevelopment() {
		response.System = systemInfo()
	}

	ctx.JSON(statusCode(failing), response)
}

// Liveness only proves the process serves HTTP.
func (c *Controller) Liveness(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// Readiness fails while any dependency is down so the instance gets no traffic.
func (c *Controller) Readiness(ctx *gin.Context) {
	_, failing := c.runChecks(ctx.Request.Context())
	if len(failing) > 0 {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "failing": failing})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// runChecks pings all dependencies concurrently and returns the sorted names of
// those that failed.
func (c *Controller) runChecks(ctx context.Context) (map[string]Check, []string) {
	var (
		mu      sync.Mutex
		results = make(map[string]Check, len(c.checks))
		failing []string
		g       errgroup.Group
	)
	for name, checker := range c.checks {
		g.Go(func() error {
			res := c.check(ctx, checker)
			mu.Lock()
			defer mu.Unlock()
			results[name] = res
			if res.Status != statusHealthy {
				failing = append(failing, name)
			}
			return nil
		})
	}
	_ = g.Wait()
	sort.Strings(failing)
	return results, failing
}

func (c *Controller) check(ctx context.Context, checker Checker) Check {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := checker.Ping(ctx)
	res := Check{Status: statusHealthy, Latency: time.Since(start).String()}
	if err != nil {
		res.Status = statusUnhealthy
		res.Message = err.Error()
	}
	return res
}

func statusCode(failing []string) int {
	if len(failing) > 0 {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func systemInfo() *SystemInfo {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return &SystemInfo{
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
		MemAlloc:     mem.Alloc,
	}
}
