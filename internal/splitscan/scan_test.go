package splitscan_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/frantjc/splitmerge/internal/splitscan"
	"github.com/frantjc/splitmerge/internal/splittest"
	"github.com/google/go-cmp/cmp"
)

func testTree(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	splittest.WriteTree(t, root, map[string]string{
		"base/AndroidManifest.xml":                         "<manifest/>",
		"base/apktool.yml":                                 "apkFileName: base.apk\n",
		"base/res/values/public.xml":                       splittest.Public(),
		"base/res/values/strings.xml":                      "<resources/>",
		"base/res/layout/main.xml":                         "<LinearLayout/>",
		"base/res/raw/notes.xml":                           "<notes/>",
		"base/res/drawable/icon.png":                       "png",
		"split_config.arm64_v8a/lib/arm64-v8a/libfoo.so":   "elf",
		"split_config.arm64_v8a/lib/arm64-v8a/libbar.so":   "elf",
		"split_config.fr/res/values/public.xml":            splittest.Public(),
		"split_config.fr/res/values-fr/strings.xml":        "<resources/>",
		"split_config.fr/res/values-fr/plurals.xml":        "<resources/>",
		"split_config.xxhdpi/res/values/public.xml":        splittest.Public(),
		"split_config.xxhdpi/res/drawable-xxhdpi/a.png":    "png",
		"split_config.xxhdpi/res/drawable-xxhdpi/b.xml":    "<selector/>",
		"split_config.xxhdpi/res/values-xxhdpi/dimens.xml": "<resources/>",
		"not-a-module.txt":                                 "",
	})

	return root
}

func TestScan(t *testing.T) {
	var (
		ctx  = context.Background()
		root = testTree(t)
		base = filepath.Join(root, "base")
	)

	inv, err := splitscan.Scan(ctx, root, splitscan.WithExclude("res/raw/**"))
	if err != nil {
		t.Fatal(err)
	}

	if inv.Base.Dir != base {
		t.Errorf("expected base %s, got %s", base, inv.Base.Dir)
	}

	expectedResources := []string{
		filepath.Join(base, "res", "layout", "main.xml"),
		filepath.Join(base, "res", "values", "public.xml"),
		filepath.Join(base, "res", "values", "strings.xml"),
	}
	if diff := cmp.Diff(expectedResources, inv.Base.Resources); diff != "" {
		t.Errorf("resources mismatch (-expected +actual):\n%s", diff)
	}

	expectedAbis := []splitscan.AbiEntry{
		{
			Module: "split_config.arm64_v8a",
			ABI:    "arm64-v8a",
			Relocation: splitscan.Relocation{
				Sources: []string{
					filepath.Join(root, "split_config.arm64_v8a", "lib", "arm64-v8a", "libbar.so"),
					filepath.Join(root, "split_config.arm64_v8a", "lib", "arm64-v8a", "libfoo.so"),
				},
				Destination: filepath.Join(base, "lib", "arm64-v8a"),
			},
		},
	}
	if diff := cmp.Diff(expectedAbis, inv.Abis); diff != "" {
		t.Errorf("abis mismatch (-expected +actual):\n%s", diff)
	}

	expectedLangs := []splitscan.LanguageEntry{
		{
			Module:    "split_config.fr",
			Qualifier: "fr",
			PublicXML: filepath.Join(root, "split_config.fr", "res", "values", "public.xml"),
			Relocation: splitscan.Relocation{
				Sources: []string{
					filepath.Join(root, "split_config.fr", "res", "values-fr", "plurals.xml"),
					filepath.Join(root, "split_config.fr", "res", "values-fr", "strings.xml"),
				},
				Destination: filepath.Join(base, "res", "values-fr"),
			},
		},
	}
	if diff := cmp.Diff(expectedLangs, inv.Languages); diff != "" {
		t.Errorf("languages mismatch (-expected +actual):\n%s", diff)
	}

	expectedDensities := []splitscan.DensityEntry{
		{
			Module:    "split_config.xxhdpi",
			Name:      "xxhdpi",
			PublicXML: filepath.Join(root, "split_config.xxhdpi", "res", "values", "public.xml"),
			Relocations: []splitscan.Relocation{
				{
					Sources: []string{
						filepath.Join(root, "split_config.xxhdpi", "res", "drawable-xxhdpi", "a.png"),
						filepath.Join(root, "split_config.xxhdpi", "res", "drawable-xxhdpi", "b.xml"),
					},
					Destination: filepath.Join(base, "res", "drawable-xxhdpi"),
				},
				{
					Sources: []string{
						filepath.Join(root, "split_config.xxhdpi", "res", "values-xxhdpi", "dimens.xml"),
					},
					Destination: filepath.Join(base, "res", "values-xxhdpi"),
				},
			},
		},
	}
	if diff := cmp.Diff(expectedDensities, inv.Densities); diff != "" {
		t.Errorf("densities mismatch (-expected +actual):\n%s", diff)
	}

	expectedTables := []string{
		filepath.Join(root, "split_config.fr", "res", "values", "public.xml"),
		filepath.Join(root, "split_config.xxhdpi", "res", "values", "public.xml"),
	}
	if diff := cmp.Diff(expectedTables, inv.PublicTables()); diff != "" {
		t.Errorf("public tables mismatch (-expected +actual):\n%s", diff)
	}

	kinds := []string{}
	for _, planned := range inv.Relocations() {
		kinds = append(kinds, planned.Kind.String()+" "+planned.Name+" "+filepath.Base(planned.Relocation.Destination))
	}
	expectedKinds := []string{
		"abi arm64-v8a arm64-v8a",
		"density xxhdpi drawable-xxhdpi",
		"density xxhdpi values-xxhdpi",
		"language fr values-fr",
	}
	if diff := cmp.Diff(expectedKinds, kinds); diff != "" {
		t.Errorf("relocations mismatch (-expected +actual):\n%s", diff)
	}

	if len(inv.Splits) != 3 {
		t.Errorf("expected 3 splits, got %v", inv.Splits)
	}
}

func TestScanNoBase(t *testing.T) {
	root := t.TempDir()
	splittest.WriteTree(t, root, map[string]string{
		"split_config.fr/res/values-fr/strings.xml": "<resources/>",
	})

	if _, err := splitscan.Scan(context.Background(), root); !errors.Is(err, splitscan.ErrNoBase) {
		t.Errorf("expected ErrNoBase, got %v", err)
	}
}

func TestScanBaseModuleName(t *testing.T) {
	root := t.TempDir()
	splittest.WriteTree(t, root, map[string]string{
		"app/AndroidManifest.xml": "<manifest/>",
	})

	inv, err := splitscan.Scan(context.Background(), root, splitscan.WithBaseModuleName("app"))
	if err != nil {
		t.Fatal(err)
	}

	if inv.Base.Manifest != filepath.Join(root, "app", "AndroidManifest.xml") {
		t.Errorf("unexpected manifest %s", inv.Base.Manifest)
	}
}

func TestScanInvalidExclude(t *testing.T) {
	if _, err := splitscan.Scan(context.Background(), testTree(t), splitscan.WithExclude("[")); err == nil {
		t.Error("expected invalid exclude pattern to fail")
	}
}

func TestScanLanguageClaimsValues(t *testing.T) {
	var (
		root  = t.TempDir()
		base  = filepath.Join(root, "base")
		split = filepath.Join(root, "split_config.fr")
	)
	splittest.WriteTree(t, root, map[string]string{
		"base/AndroidManifest.xml":                  "<manifest/>",
		"split_config.fr/res/values/public.xml":     splittest.Public(),
		"split_config.fr/res/values-fr/strings.xml": "<resources/>",
		"split_config.fr/res/drawable-fr/flag.png":  "png",
	})

	inv, err := splitscan.Scan(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	if len(inv.Languages) != 1 || inv.Languages[0].Relocation.Destination != filepath.Join(base, "res", "values-fr") {
		t.Fatalf("expected values-fr as the only language, got %+v", inv.Languages)
	}

	expected := []splitscan.DensityEntry{
		{
			Module:    "split_config.fr",
			Name:      "fr",
			PublicXML: filepath.Join(split, "res", "values", "public.xml"),
			Relocations: []splitscan.Relocation{
				{
					Sources:     []string{filepath.Join(split, "res", "drawable-fr", "flag.png")},
					Destination: filepath.Join(base, "res", "drawable-fr"),
				},
			},
		},
	}
	if diff := cmp.Diff(expected, inv.Densities); diff != "" {
		t.Errorf("densities mismatch (-expected +actual):\n%s", diff)
	}

	if diff := cmp.Diff([]string{filepath.Join(split, "res", "values", "public.xml")}, inv.PublicTables()); diff != "" {
		t.Errorf("public tables mismatch (-expected +actual):\n%s", diff)
	}
}
