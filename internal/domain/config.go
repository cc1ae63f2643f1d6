package domain

// KeyPrefix is the default prefix of every catalog key in Redis or Valkey.
const KeyPrefix = "catalogq:"

// Page size bounds for a single search.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)
