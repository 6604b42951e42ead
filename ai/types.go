package ai

// EntityTypes defines the valid categories for extracted graph entities.
// Extraction output with a type outside this set is coerced to "other".
var EntityTypes = []string{
	"person",
	"organization",
	"place",
	"event",
	"date",
	"concept",
	"technology",
	"artifact",
	"work",
	"other",
}

// ValidEntityType reports whether t is a member of EntityTypes.
func ValidEntityType(t string) bool {
	for _, known := range EntityTypes {
		if t == known {
			return true
		}
	}
	return false
}
