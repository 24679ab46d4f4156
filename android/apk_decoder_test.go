package android

import (
	"context"
	"encoding/xml"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestModuleName(t *testing.T) {
	for split, expected := range map[string]string{
		"":                 "base",
		"config.arm64_v8a": "split_config.arm64_v8a",
		"config.fr":        "split_config.fr",
		"config.xxhdpi":    "split_config.xxhdpi",
	} {
		manifest := &Manifest{}
		if split != "" {
			manifest.Attrs = []xml.Attr{{Name: xml.Name{Local: "split"}, Value: split}}
		}

		if actual := ModuleName(manifest, BaseModuleName); actual != expected {
			t.Errorf("ModuleName(%q) = %s, expected %s", split, actual, expected)
		}
	}
}

func TestAPKDecoderString(t *testing.T) {
	if name := NewAPKDecoder("/tmp/apks/split_config.fr.apk").String(); name != "split_config.fr" {
		t.Errorf("expected split_config.fr, got %s", name)
	}
}

// fakeAPKTool writes an executable that "decodes" an .apk by copying
// it, a bare manifest, into the output directory.
func fakeAPKTool(t *testing.T) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake apktool is a shell script")
	}

	name := filepath.Join(t.TempDir(), "apktool")
	script := "#!/bin/sh\n" + `while [ "$1" != "--output" ]; do shift; done
cp "$3" "$2/AndroidManifest.xml"
`
	if err := os.WriteFile(name, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	return name
}

func TestAPKDecoderDecode(t *testing.T) {
	var (
		ctx     = context.Background()
		apktool = fakeAPKTool(t)
		dir     = t.TempDir()
		apks    = t.TempDir()
	)

	for name, manifest := range map[string]string{
		"base.apk":            `<manifest package="cc.frantj.example"/>`,
		"split_config.fr.apk": `<manifest package="cc.frantj.example" split="config.fr"/>`,
	} {
		if err := os.WriteFile(filepath.Join(apks, name), []byte(manifest), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	for name, expected := range map[string]struct {
		module string
		base   bool
	}{
		"base.apk":            {"app", true},
		"split_config.fr.apk": {"split_config.fr", false},
	} {
		decoder := NewAPKDecoder(filepath.Join(apks, name), WithAPKTool(apktool), WithDir(dir), WithBaseModuleName("app"))

		decoded, err := decoder.Decode(ctx)
		if err != nil {
			t.Fatal(err)
		} else if decoded != filepath.Join(dir, expected.module) {
			t.Errorf("expected %s decoded to %s, got %s", name, expected.module, decoded)
		}

		if isBase, err := decoder.IsBase(ctx); err != nil {
			t.Fatal(err)
		} else if isBase != expected.base {
			t.Errorf("expected IsBase %v for %s", expected.base, name)
		}

		manifest, err := decoder.Manifest(ctx)
		if err != nil {
			t.Fatal(err)
		} else if manifest.Package() != "cc.frantj.example" {
			t.Errorf("unexpected package %s", manifest.Package())
		}

		if decoder.String() != expected.module {
			t.Errorf("expected String %s, got %s", expected.module, decoder.String())
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	} else if len(entries) != 2 {
		t.Errorf("expected only the 2 module directories, got %d entries", len(entries))
	}
}
