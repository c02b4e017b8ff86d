package ident

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/conorfennell/studyboard/internal/domain"
)

// CardID derives a card's ID from the course it belongs to and the material
// it covers. The result is only unique within one board: two cards for the
// same material collide.
func CardID(courseCode, courseName, material string) string {
	return fmt.Sprintf("%s-%s-%s", courseCode, courseName, material)
}

// CardTitle is the display title given to a new card.
func CardTitle(courseCode, courseName string) string {
	return fmt.Sprintf("%s [%s]", courseName, courseCode)
}

// Fingerprint returns the SHA-256 of the lists' wire encoding as a hex
// string. Two snapshots with the same fingerprint push identical payloads.
func Fingerprint(lists []*domain.List) (string, error) {
	b, err := json.Marshal(lists)
	if err != nil {
		return "", fmt.Errorf("encode lists: %w", err)
	}
	return fmt.Sprintf("%x", sha256.Sum256(b)), nil
}
