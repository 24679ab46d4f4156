package splitregexp

import "strings"

// IsPlaceholder reports whether name was synthesized by apktool,
// e.g. "APKTOOL_DUMMY_1a" or "APKTOOL_DUMMYVAL_0x7f010001".
func IsPlaceholder(name string) bool {
	return Placeholder.MatchString(strings.TrimSpace(name))
}

// HasPlaceholder reports whether s embeds a placeholder anywhere,
// e.g. "@drawable/APKTOOL_DUMMY_1a".
func HasPlaceholder(s string) bool {
	return strings.Contains(s, PlaceholderPrefix)
}

// Fragment returns the identifier fragment of a placeholder or of a
// reference to one: everything after the last underscore.
func Fragment(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "_"); i >= 0 {
		return s[i+1:]
	}

	return ""
}

func IsValuesDir(name string) bool {
	return ValuesDir.MatchString(name)
}

func IsDrawableDir(name string) bool {
	return DrawableDir.MatchString(name)
}

// IsLanguageDir reports whether name is a values-<qualifier> directory
// whose qualifier is not a density.
func IsLanguageDir(name string) bool {
	return IsValuesDir(name) && !Density.MatchString(name)
}

// Qualifier returns the <qualifier> of a values-<qualifier> directory.
func Qualifier(name string) string {
	if m := ValuesDir.FindStringSubmatch(name); len(m) == 2 {
		return m[1]
	}

	return ""
}
