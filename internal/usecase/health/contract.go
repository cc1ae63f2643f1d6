package health

import "context"

// DBPinger checks catalog storage availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// NamespaceLister lists the served namespaces.
type NamespaceLister interface {
	Namespaces() []string
}

// CacheSizer reports the number of cached pages of a namespace.
type CacheSizer interface {
	Len(ns string) int
}
