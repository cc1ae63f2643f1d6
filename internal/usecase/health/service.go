package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates the catalog cannot be searched.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	// CacheEntries holds the cached page count per namespace.
	CacheEntries map[string]int
}

// Service coordinates health checks.
type Service struct {
	db         DBPinger
	namespaces NamespaceLister
	cache      CacheSizer
}

// New creates a Service. db is nil for the in-memory catalog.
func New(db DBPinger, namespaces NamespaceLister, cache CacheSizer) *Service {
	return &Service{db: db, namespaces: namespaces, cache: cache}
}

// Check runs health checks against all components. A storage failure makes
// the service unhealthy; serving no namespace degrades it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			checks["database"] = CheckError
			status = Unhealthy
		} else {
			checks["database"] = CheckOK
		}
	}

	names := s.namespaces.Namespaces()
	entries := make(map[string]int, len(names))
	for _, ns := range names {
		entries[ns] = s.cache.Len(ns)
	}
	if len(names) == 0 {
		checks["namespaces"] = CheckError
		if status == Healthy {
			status = Degraded
		}
	} else {
		checks["namespaces"] = CheckOK
	}

	return Report{Status: status, Checks: checks, CacheEntries: entries}
}
