package transcript

import (
	"fmt"

	"github.com/google/uuid"
)

// NewID returns a random v4 UUID. It fails rather than falling back to a
// weaker source when the system entropy pool is unavailable.
func NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate transcript id: %w", err)
	}
	return id.String(), nil
}
