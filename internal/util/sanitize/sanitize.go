// Package sanitize provides filename sanitization for descriptor-supplied
// upload names.
package sanitize

import "strings"

// SanitizeFileName strips any path component from a client-supplied file
// name and replaces spaces with underscores, matching
// weboptions.py's sanitizeFileName — applied to every upload filename a
// GUI-P descriptor carries before it is used to build a storage key.
func SanitizeFileName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return strings.ReplaceAll(name, " ", "_")
}
