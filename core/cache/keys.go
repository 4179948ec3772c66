package cache

import "strings"

// Delimiter separates the parts of a key. Pattern invalidation relies on it, do not change it.
const Delimiter = ":"

// Key builds a cache key: {namespace}:{primaryID}:{secondaryID}...
func Key(namespace string, ids ...string) string {
	parts := make([]string, 0, len(ids)+1)
	parts = append(parts, namespace)
	parts = append(parts, ids...)
	return strings.Join(parts, Delimiter)
}
