package emit

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var dashDigit = regexp.MustCompile(`[-_](\d+)`)

// WitName maps a declared name to WIT kebab case. The input is NFC
// normalized first so visually identical names render identically.
// Digit segments fold onto the preceding word, "my-type-0" and "myType0"
// both becoming "my-type0".
func WitName(name string) string {
	name = norm.NFC.String(name)

	var sb strings.Builder
	prev := rune(0)
	for _, r := range name {
		switch {
		case r == '_' || r == '-':
			sb.WriteRune('-')
		case unicode.IsUpper(r):
			if prev != 0 && prev != '_' && prev != '-' && !unicode.IsUpper(prev) {
				sb.WriteRune('-')
			}
			sb.WriteRune(unicode.ToLower(r))
		default:
			sb.WriteRune(r)
		}
		prev = r
	}
	return dashDigit.ReplaceAllString(sb.String(), "$1")
}

var witKeywords = map[string]bool{
	"record":    true,
	"variant":   true,
	"enum":      true,
	"resource":  true,
	"type":      true,
	"world":     true,
	"interface": true,
	"use":       true,
	"package":   true,
}

// MapKeyword escapes WIT keywords so they remain usable as identifiers.
func MapKeyword(name string) string {
	if witKeywords[name] {
		return "%" + name
	}
	return name
}

// witScalars maps declared scalar names onto the WIT builtin they render
// as. Signed widths accept both spellings.
var witScalars = map[string]string{
	"u8":     "u8",
	"u16":    "u16",
	"u32":    "u32",
	"u64":    "u64",
	"s8":     "s8",
	"i8":     "s8",
	"s16":    "s16",
	"i16":    "s16",
	"s32":    "s32",
	"i32":    "s32",
	"s64":    "s64",
	"i64":    "s64",
	"f32":    "f32",
	"f64":    "f64",
	"bool":   "bool",
	"string": "string",
}

// witTypeName renders a type reference as WIT source text. Scalars map to
// builtins; every other name is an identifier defined in or imported into
// the types interface.
func witTypeName(name string) string {
	if scalar, ok := witScalars[name]; ok {
		return scalar
	}
	return MapKeyword(WitName(name))
}

// importedFromTypes reports whether a referenced name must be imported
// from the types interface rather than spelled as a WIT builtin. bytes
// counts since it is an alias the types interface defines.
func importedFromTypes(name string) bool {
	_, scalar := witScalars[name]
	return !scalar
}
