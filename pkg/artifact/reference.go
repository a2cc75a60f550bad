package artifact

import (
	"path/filepath"
	"strings"
)

// ReferenceScheme prefixes every reference left in a skeleton.
const ReferenceScheme = "file:///"

// BuildReference returns the reference string for an artifact filename.
func BuildReference(filename string) string {
	return ReferenceScheme + filename
}

// referencedName returns the bare filename of a reference. References that
// would leave the artifact directory are rejected.
func referencedName(ref string) (string, bool) {
	if !strings.HasPrefix(ref, ReferenceScheme) {
		return "", false
	}
	name := strings.TrimPrefix(ref, ReferenceScheme)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", false
	}
	return name, true
}

// IsReference reports whether s is a well-formed reference.
func IsReference(s string) bool {
	_, ok := referencedName(s)
	return ok
}

// ResolveReference maps a reference to a path inside dir. Any other value is
// returned unchanged with ok set to false.
func ResolveReference(ref, dir string) (string, bool) {
	name, ok := referencedName(ref)
	if !ok {
		return ref, false
	}
	return filepath.Join(dir, name), true
}
