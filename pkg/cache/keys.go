package cache

import "fmt"

// Key builds a namespaced cache key.
func Key(parts ...string) string {
	key := ""
	for i, p := range parts {
		if i == 0 {
			key = p
			continue
		}
		key = fmt.Sprintf("%s/%s", key, p)
	}
	return key
}

// VersionedKey builds a schema-versioned key. State keys carry an explicit
// version because the on-disk schema has drifted between iterations.
func VersionedKey(version int, parts ...string) string {
	return fmt.Sprintf("%s/v%d", Key(parts...), version)
}
