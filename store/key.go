package store

import (
	"fmt"
	"strings"
)

// keySeparator joins collection and slug into a
// content key. The codec must stay stable across
// releases: a key is the only way an in-flight
// editorial change is rediscovered.
const keySeparator = "/"

// EntryKey derives the opaque content key of an
// editorial change from its collection and slug.
func EntryKey(collection, slug string) string {
	return collection + keySeparator + slug
}

// SplitKey splits a content key back into collection
// and slug.
func SplitKey(key string) (string, string, error) {
	collection, slug, ok := strings.Cut(
		key, keySeparator,
	)
	if !ok || collection == "" || slug == "" {
		return "", "", fmt.Errorf(
			"malformed content key %q", key,
		)
	}

	return collection, slug, nil
}
