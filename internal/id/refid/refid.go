// Package refid provides reference row ID generation helpers.
package refid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/apc-golf/refhub/internal/refs"
)

// Generator creates reference row IDs of the form
// <brand>_<season>_<item>_<16 hex chars>.
type Generator struct{}

// New creates a new Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns a row ID scoped to the collection key. The components are
// slugged so the ID stays filesystem-safe.
func (Generator) NewID(brand, season, item string) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	suffix := strings.ReplaceAll(id.String(), "-", "")[:16]
	return fmt.Sprintf("%s_%s_%s_%s", refs.Slug(brand), refs.Slug(season), refs.Slug(item), suffix), nil
}
