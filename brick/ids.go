package brick

import (
	"regexp"
	"strings"

	"github.com/buildsys/brick-api/errors"
)

var identifier = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

// ValidateID rejects identifiers that could break out of an IRI when
// interpolated into a query.
func ValidateID(kind, id string) error {
	if !identifier.MatchString(id) {
		return errors.WithHintf(
			errors.Wrapf(errors.ErrInvalidIdentifier, "%s %q", kind, id),
			"identifiers may only contain letters, digits, '_', '.' and '-'")
	}
	return nil
}

// EntityIRI generates the IRI of an entity that belongs to a building:
// <base>/<building>#<local>.
func EntityIRI(base, building, local string) string {
	return strings.TrimSuffix(base, "/") + "/" + building + "#" + local
}

// BuildingIRI generates the IRI of the building entity itself.
func BuildingIRI(base, building string) string {
	return EntityIRI(base, building, building)
}

// LocalID extracts the identifier after the last '#' of an IRI. IRIs
// without a fragment are returned unchanged.
func LocalID(iri string) string {
	idx := strings.LastIndex(iri, "#")
	if idx < 0 {
		return iri
	}
	return iri[idx+1:]
}
