package domain

// KeyPrefix namespaces every key locadex writes to the key-value store.
const KeyPrefix = "locadex:"

// DefaultDimensions matches text-embedding-3-small and text-embedding-ada-002.
const DefaultDimensions = 1536
