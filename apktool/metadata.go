package apktool

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// MetadataName is the name of the file apktool writes
	// at the root of every directory it decodes into.
	MetadataName = "apktool.yml"
)

type UsesFramework struct {
	IDs []int `yaml:"ids"`
	Tag any   `yaml:"tag"`
}

type SDKInfo struct {
	MinSDKVersion    int `yaml:"minSdkVersion"`
	TargetSDKVersion int `yaml:"targetSdkVersion"`
}

type PackageInfo struct {
	ForcedPackageID       int `yaml:"forcedPackageId"`
	RenameManifestPackage any `yaml:"renameManifestPackage"`
}

type VersionInfo struct {
	VersionCode int    `yaml:"versionCode"`
	VersionName string `yaml:"versionName"`
}

type Metadata struct {
	Version                string         `yaml:"version,omitempty"`
	APKFileName            string         `yaml:"apkFileName,omitempty"`
	IsFrameworkAPK         bool           `yaml:"isFrameworkApk,omitempty"`
	UsesFramework          *UsesFramework `yaml:"usesFramework,omitempty"`
	SDKInfo                *SDKInfo       `yaml:"sdkInfo,omitempty"`
	PackageInfo            *PackageInfo   `yaml:"packageInfo,omitempty"`
	VersionInfo            *VersionInfo   `yaml:"versionInfo,omitempty"`
	ResourcesAreCompressed bool           `yaml:"resourcesAreCompressed,omitempty"`
	SharedLibrary          bool           `yaml:"sharedLibrary,omitempty"`
	SparseResources        bool           `yaml:"sparseResources,omitempty"`
	UnknownFiles           map[string]int `yaml:"unknownFiles,omitempty"`
	DoNotCompress          []string       `yaml:"doNotCompress,omitempty"`
}

// ReadMetadata decodes the apktool.yml at name.
func ReadMetadata(name string) (*Metadata, error) {
	doc, err := readMetadataNode(name)
	if err != nil {
		return nil, err
	}

	// Older apktool versions tag the document with the Java class it
	// was serialized from, e.g. !!brut.androlib.meta.MetaInfo.
	doc.Content[0].Tag = ""

	metadata := &Metadata{}
	if err := doc.Content[0].Decode(metadata); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}

	return metadata, nil
}

func readMetadataNode(name string) (*yaml.Node, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}

	doc := &yaml.Node{}
	if err := yaml.Unmarshal(b, doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse %s: expected a mapping", name)
	}

	return doc, nil
}

// MergeDoNotCompress appends every entry of doNotCompress that is not
// already present to the doNotCompress list of the apktool.yml at name.
// The file is edited as a node tree so that fields Metadata does not
// know about survive. It returns the entries that were added and only
// rewrites the file when there are any.
func MergeDoNotCompress(name string, doNotCompress ...string) ([]string, error) {
	doc, err := readMetadataNode(name)
	if err != nil {
		return nil, err
	}

	var (
		root = doc.Content[0]
		seq  *yaml.Node
	)

	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "doNotCompress" {
			seq = root.Content[i+1]
			break
		}
	}

	if seq == nil {
		seq = &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "doNotCompress"},
			seq,
		)
	} else if seq.Kind == yaml.ScalarNode && seq.ShortTag() == "!!null" {
		seq.Kind, seq.Tag, seq.Value, seq.Style = yaml.SequenceNode, "!!seq", "", 0
	} else if seq.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("merge %s: doNotCompress is not a list", name)
	}

	seen := map[string]bool{}
	for _, item := range seq.Content {
		seen[item.Value] = true
	}

	added := []string{}
	for _, entry := range doNotCompress {
		if entry == "" || seen[entry] {
			continue
		}

		seen[entry] = true
		added = append(added, entry)
		seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: entry})
	}

	if len(added) == 0 {
		return added, nil
	}

	fi, err := os.Stat(name)
	if err != nil {
		return nil, err
	}

	var (
		buf = new(bytes.Buffer)
		enc = yaml.NewEncoder(buf)
	)
	enc.SetIndent(2)

	if err := enc.Encode(doc); err != nil {
		return nil, err
	}

	if err := enc.Close(); err != nil {
		return nil, err
	}

	return added, os.WriteFile(name, buf.Bytes(), fi.Mode().Perm())
}
