package search

import "context"

type sessionKey struct{}

type session struct {
	id       string
	isolated bool
}

// WithSession scopes supersession to one client session within a namespace:
// a newer search only cancels older fetches issued under the same id.
func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, session{id: id})
}

// Isolated marks ctx so its searches neither supersede nor get superseded.
// De-duplication still applies.
func Isolated(ctx context.Context) context.Context {
	return context.WithValue(ctx, sessionKey{}, session{isolated: true})
}

// scope returns the supersession scope of a search in ns, or "" when the
// search is isolated.
func scope(ctx context.Context, ns string) string {
	s, _ := ctx.Value(sessionKey{}).(session)
	if s.isolated {
		return ""
	}
	if s.id == "" {
		return ns
	}
	return ns + "\x00" + s.id
}
