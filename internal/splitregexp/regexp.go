package splitregexp

import "regexp"

const (
	// PlaceholderPrefix starts every name apktool synthesizes for a
	// resource whose real name lives in another module.
	PlaceholderPrefix = "APKTOOL_DUMMY"
)

var (
	Placeholder = regexp.MustCompile(`^` + PlaceholderPrefix + `[0-9A-Za-z]*(?:_((?:0x)?[0-9a-fA-F]+))?$`)
	DrawableRef = regexp.MustCompile(`"@drawable/(` + PlaceholderPrefix + `[0-9A-Za-z]*_((?:0x)?[0-9a-fA-F]+))"`)

	ValuesDir   = regexp.MustCompile(`^values-(.+)$`)
	DrawableDir = regexp.MustCompile(`^drawable-(.+)$`)
	Density     = regexp.MustCompile(`dpi$`)
)
