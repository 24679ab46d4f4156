package android

import (
	"encoding/xml"
	"os"
)

const (
	AndroidManifestName = "AndroidManifest.xml"
)

type Manifest struct {
	XMLName        xml.Name                 `xml:"manifest"`
	UsesPermission []ManifestUsesPermission `xml:"uses-permission"`
	UsesFeature    []ManifestUsesFeature    `xml:"uses-feature"`
	Permission     []ManifestPermission     `xml:"permission"`
	Application    ManifestApplication      `xml:"application"`
	Attrs          []xml.Attr               `xml:",any,attr"`
}

// ReadManifest decodes the AndroidManifest.xml at name.
func ReadManifest(name string) (*Manifest, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	manifest := &Manifest{}
	return manifest, xml.NewDecoder(f).Decode(manifest)
}

func (m *Manifest) attr(local string) string {
	for _, attr := range m.Attrs {
		if attr.Name.Local == local {
			return attr.Value
		}
	}

	return ""
}

func (m *Manifest) Package() string {
	return m.attr("package")
}

// Split returns the name of the split this manifest belongs to,
// e.g. "config.arm64_v8a", or "" for a base module.
func (m *Manifest) Split() string {
	return m.attr("split")
}

// IsSplitRequired reports whether the application declares that it
// cannot run without its splits installed.
func (m *Manifest) IsSplitRequired() bool {
	for _, attr := range m.Application.Attrs {
		if attr.Name.Local == "isSplitRequired" {
			return attr.Value == "true"
		}
	}

	for _, attr := range m.Attrs {
		if attr.Name.Local == "isSplitRequired" {
			return attr.Value == "true"
		}
	}

	return false
}

// SplitsMetadata returns the <meta-data> elements of the application
// that announce a split configuration.
func (m *Manifest) SplitsMetadata() []ManifestApplicationMetadata {
	metadata := []ManifestApplicationMetadata{}

	for _, md := range m.Application.Metadata {
		for _, attr := range md.Attrs {
			if attr.Name.Local == "name" && (attr.Value == MetadataSplits || attr.Value == MetadataSplitsRequired) {
				metadata = append(metadata, md)
			}
		}
	}

	return metadata
}

type ManifestUsesPermission struct {
	Attrs []xml.Attr `xml:",any,attr"`
}

type ManifestUsesFeature struct {
	Attrs []xml.Attr `xml:",any,attr"`
}

type ManifestPermission struct {
	Attrs []xml.Attr `xml:",any,attr"`
}

type ManifestApplication struct {
	Activities      []ManifestApplicationActivity `xml:"activity"`
	ActivityAliases []ManifestApplicationActivity `xml:"activity-alias"`
	Receivers       []ManifestApplicationActivity `xml:"receiver"`
	Services        []ManifestApplicationActivity `xml:"service"`
	Providers       []ManifestApplicationActivity `xml:"providers"`
	UsesLibraries   []ManifestApplicationMetadata `xml:"uses-library"`
	Metadata        []ManifestApplicationMetadata `xml:"meta-data"`
	Attrs           []xml.Attr                    `xml:",any,attr"`
}

type ManifestApplicationActivity struct {
	Metadata     ManifestApplicationMetadata     `xml:"metadata"`
	IntentFilter ManifestApplicationIntentFilter `xml:"intent-filter"`
	Attrs        []xml.Attr                      `xml:",any,attr"`
}

type ManifestApplicationIntentFilter struct {
	Actions    []ManifestApplicationMetadata `xml:"action"`
	Categories []ManifestApplicationMetadata `xml:"category"`
}

type ManifestApplicationMetadata struct {
	Attrs []xml.Attr `xml:",any,attr"`
}
