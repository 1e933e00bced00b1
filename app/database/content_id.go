package database

import (
	"encoding/base64"
	"fmt"
)

// ContentID is the storage key for an item: the URL-safe, unpadded base64
// form of its link. Equal links always map to the same key.
func ContentID(link string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(link))
}

func DecodeContentID(id string) (string, error) {
	link, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil {
		return "", fmt.Errorf("failed to decode content id %q: %w", id, err)
	}
	return string(link), nil
}
