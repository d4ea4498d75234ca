package types

// Metadata is a map of key-value pairs attached to domain entities
type Metadata map[string]string
