package addrspace

import "strings"

// pathSep separates ancestor refs inside an expansion-memory key. A control
// character keeps keys unambiguous even when refs themselves contain
// slashes or dots.
const pathSep = "\x1f"

// ChildPathKey extends a parent's expansion-memory key with one more ref.
// Keys are built from ancestor refs, not display names, so two siblings with
// colliding names can never restore each other's expansion state. The
// synthetic root contributes the empty parent key.
func ChildPathKey(parentKey string, ref NodeRef) string {
	if parentKey == "" {
		return ref.String()
	}
	return parentKey + pathSep + ref.String()
}

// PathKeyDepth returns the number of refs in a key, used only by sanity
// checks and tests.
func PathKeyDepth(key string) int {
	if key == "" {
		return 0
	}
	return strings.Count(key, pathSep) + 1
}
