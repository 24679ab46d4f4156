package android

import (
	"bytes"
	"os"
)

const (
	MetadataSplits         = "com.android.vending.splits"
	MetadataSplitsRequired = "com.android.vending.splits.required"
)

// SplitFragments are the literal pieces of a base module's manifest
// that make it depend on its splits being installed alongside it.
var SplitFragments = []string{
	`android:extractNativeLibs="false"`,
	`android:isSplitRequired="true"`,
	`<meta-data android:name="` + MetadataSplits + `" android:resource="@xml/splits0"/>`,
	`<meta-data android:name="` + MetadataSplitsRequired + `" android:value="true"/>`,
}

// StripSplitFragments removes every occurrence of SplitFragments from
// the raw manifest. The rest of the document is left byte-for-byte as is.
func StripSplitFragments(manifest []byte) []byte {
	for _, fragment := range SplitFragments {
		manifest = bytes.ReplaceAll(manifest, []byte(fragment), nil)
	}

	return manifest
}

// PatchManifest strips SplitFragments from the AndroidManifest.xml at
// name in place. It reports whether the file changed.
func PatchManifest(name string) (bool, error) {
	fi, err := os.Stat(name)
	if err != nil {
		return false, err
	}

	manifest, err := os.ReadFile(name)
	if err != nil {
		return false, err
	}

	patched := StripSplitFragments(manifest)
	if bytes.Equal(manifest, patched) {
		return false, nil
	}

	return true, os.WriteFile(name, patched, fi.Mode().Perm())
}
