package splitmerge_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/frantjc/splitmerge"
	"github.com/frantjc/splitmerge/internal/mergeblob"
	"github.com/frantjc/splitmerge/internal/mergeerr"
	"github.com/frantjc/splitmerge/internal/resolve"
	"github.com/frantjc/splitmerge/internal/splittest"
	"github.com/google/go-cmp/cmp"
	"gocloud.dev/blob/memblob"
)

const testManifest = `<?xml version="1.0" encoding="utf-8" standalone="no"?><manifest xmlns:android="http://schemas.android.com/apk/res/android" android:isSplitRequired="true" package="cc.frantj.example">
    <application android:extractNativeLibs="false" android:label="@string/app_name">
        <meta-data android:name="com.android.vending.splits.required" android:value="true"/>
        <meta-data android:name="com.android.vending.splits" android:resource="@xml/splits0"/>
    </application>
</manifest>`

func testTree() map[string]string {
	return map[string]string{
		"base/AndroidManifest.xml": testManifest,
		"base/apktool.yml": `!!brut.androlib.meta.MetaInfo
apkFileName: base.apk
doNotCompress:
- resources.arsc
`,
		"base/res/values/public.xml": splittest.Public(
			[3]string{"string", "0x7f010001", "APKTOOL_DUMMY_0"},
			[3]string{"drawable", "0x7f08001a", "APKTOOL_DUMMY_1"},
		),
		"base/res/values/strings.xml": `<?xml version="1.0" encoding="utf-8"?>
<resources>
    <string name="APKTOOL_DUMMY_0x7f010001">Example</string>
</resources>
`,
		"base/res/layout/main.xml": `<?xml version="1.0" encoding="utf-8"?>
<ImageView xmlns:android="http://schemas.android.com/apk/res/android" android:src="@drawable/APKTOOL_DUMMY_0x7f08001a" />
`,
		"split_config.arm64_v8a/lib/arm64-v8a/libfoo.so": "elf",
		"split_config.en/res/values/public.xml": splittest.Public(
			[3]string{"string", "0x7f010001", "app_name"},
		),
		"split_config.en/res/values-en/strings.xml": `<?xml version="1.0" encoding="utf-8"?>
<resources>
    <string name="APKTOOL_DUMMY_0x7f010002">Unused</string>
    <string name="app_name">Example</string>
</resources>
`,
		"split_config.xxhdpi/apktool.yml": `!!brut.androlib.meta.MetaInfo
apkFileName: split_config.xxhdpi.apk
doNotCompress:
- resources.arsc
- png
`,
		"split_config.xxhdpi/res/values/public.xml": splittest.Public(
			[3]string{"drawable", "0x7f08001a", "ic_launcher"},
		),
		"split_config.xxhdpi/res/drawable-xxhdpi/ic_launcher.png": "png",
	}
}

func TestMerge(t *testing.T) {
	var (
		ctx    = context.Background()
		root   = t.TempDir()
		report = new(bytes.Buffer)
	)
	splittest.WriteTree(t, root, testTree())

	merger := &splitmerge.Merger{Out: report}
	if err := merger.Merge(ctx, root); err != nil {
		t.Fatal(err)
	}

	strs := splittest.ReadFile(t, root, "base/res/values/strings.xml")
	if !strings.Contains(strs, `<string name="app_name">Example</string>`) {
		t.Errorf("expected app_name to be resolved in:\n%s", strs)
	}

	public := splittest.ReadFile(t, root, "base/res/values/public.xml")
	for _, s := range []string{`name="app_name"`, `name="ic_launcher"`} {
		if !strings.Contains(public, s) {
			t.Errorf("expected %s in:\n%s", s, public)
		}
	}

	layout := splittest.ReadFile(t, root, "base/res/layout/main.xml")
	if !strings.Contains(layout, `android:src="@drawable/ic_launcher"`) {
		t.Errorf("expected drawable reference to be resolved in:\n%s", layout)
	}

	manifest := splittest.ReadFile(t, root, "base/AndroidManifest.xml")
	for _, s := range []string{"isSplitRequired", "extractNativeLibs", "com.android.vending.splits"} {
		if strings.Contains(manifest, s) {
			t.Errorf("expected no %s in:\n%s", s, manifest)
		}
	}

	en := splittest.ReadFile(t, root, "base/res/values-en/strings.xml")
	if strings.Contains(en, "APKTOOL_DUMMY") || !strings.Contains(en, `name="app_name"`) {
		t.Errorf("expected stripped language strings, got:\n%s", en)
	}

	metadata := splittest.ReadFile(t, root, "base/apktool.yml")
	if !strings.Contains(metadata, "- png") {
		t.Errorf("expected png in doNotCompress of:\n%s", metadata)
	}

	for _, name := range []string{
		"base/lib/arm64-v8a/libfoo.so",
		"base/res/drawable-xxhdpi/ic_launcher.png",
	} {
		if !splittest.Exists(t, root, name) {
			t.Errorf("expected %s to exist", name)
		}
	}

	for _, s := range []string{
		"SplitMerger: Working on " + root,
		"\tFound split: arm64-v8a",
		"\tFound split: en",
		"\tFound split: xxhdpi",
		"Patcher: Manifest patched",
		"SplitMerger: Splits merged",
	} {
		if !strings.Contains(report.String(), s) {
			t.Errorf("expected %q in report:\n%s", s, report)
		}
	}
}

func TestMergeNoBase(t *testing.T) {
	root := t.TempDir()
	splittest.WriteTree(t, root, map[string]string{
		"split_config.en/res/values-en/strings.xml": "<resources/>",
	})

	err := new(splitmerge.Merger).Merge(context.Background(), root)
	if !errors.Is(err, splitmerge.ErrNoBase) {
		t.Fatalf("expected ErrNoBase, got %v", err)
	}

	if code := mergeerr.ExitCode(err); code != mergeerr.ExitCodePrecondition {
		t.Errorf("expected exit code %d, got %d", mergeerr.ExitCodePrecondition, code)
	}
}

func TestMergeNotDirectory(t *testing.T) {
	root := t.TempDir()
	splittest.WriteTree(t, root, map[string]string{"file": ""})

	for _, path := range []string{filepath.Join(root, "file"), filepath.Join(root, "missing")} {
		err := new(splitmerge.Merger).Merge(context.Background(), path)
		if code := mergeerr.ExitCode(err); code != mergeerr.ExitCodeUsage {
			t.Errorf("expected exit code %d for %s, got %d: %v", mergeerr.ExitCodeUsage, path, code, err)
		}
	}
}

func TestMergeLookupFailure(t *testing.T) {
	root := t.TempDir()
	files := testTree()
	files["base/res/values/public.xml"] = splittest.Public(
		[3]string{"string", "0x7f019999", "APKTOOL_DUMMY_0"},
	)
	splittest.WriteTree(t, root, files)

	err := new(splitmerge.Merger).Merge(context.Background(), root)

	lerr := &resolve.LookupError{}
	if !errors.As(err, &lerr) {
		t.Fatalf("expected LookupError, got %v", err)
	}

	if code := mergeerr.ExitCode(err); code != mergeerr.ExitCodeLookup {
		t.Errorf("expected exit code %d, got %d", mergeerr.ExitCodeLookup, code)
	}
}

func TestMergeBackup(t *testing.T) {
	var (
		ctx    = context.Background()
		root   = t.TempDir()
		bucket = memblob.OpenBucket(nil)
	)
	defer bucket.Close()

	files := testTree()
	splittest.WriteTree(t, root, files)

	merger := &splitmerge.Merger{Bucket: bucket}
	if err := merger.Merge(ctx, root); err != nil {
		t.Fatal(err)
	}

	iter := bucket.List(nil)
	obj, err := iter.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}

	runID, _, _ := strings.Cut(obj.Key, "/")

	restored, err := mergeblob.Restore(ctx, bucket, runID, root)
	if err != nil {
		t.Fatal(err)
	}

	if len(restored) == 0 {
		t.Fatal("expected files to be restored")
	}

	for _, name := range []string{
		"base/AndroidManifest.xml",
		"base/apktool.yml",
		"base/res/values/public.xml",
		"base/res/values/strings.xml",
		"base/res/layout/main.xml",
	} {
		if diff := cmp.Diff(files[name], splittest.ReadFile(t, root, name)); diff != "" {
			t.Errorf("%s mismatch (-expected +actual):\n%s", name, diff)
		}
	}
}

func TestMergeBackupRelocationTargets(t *testing.T) {
	var (
		ctx    = context.Background()
		root   = t.TempDir()
		bucket = memblob.OpenBucket(nil)
		report = new(bytes.Buffer)
	)
	defer bucket.Close()

	files := testTree()
	files["base/res/drawable-xxhdpi/ic_launcher.png"] = "ORIGINAL"
	files["split_config.xxhdpi/res/drawable-xxhdpi/ic_launcher.png"] = "FROMSPLIT"
	splittest.WriteTree(t, root, files)

	merger := &splitmerge.Merger{Bucket: bucket, Out: report}
	if err := merger.Merge(ctx, root); err != nil {
		t.Fatal(err)
	}

	if content := splittest.ReadFile(t, root, "base/res/drawable-xxhdpi/ic_launcher.png"); content != "FROMSPLIT" {
		t.Fatalf("expected split drawable to replace the base one, got %q", content)
	}

	runID := ""
	for _, line := range strings.Split(report.String(), "\n") {
		if rest, ok := strings.CutPrefix(line, "Backup: "); ok {
			runID, _, _ = strings.Cut(rest, ":")
		}
	}

	if runID == "" {
		t.Fatalf("expected a backup line in report:\n%s", report)
	}

	if _, err := mergeblob.Restore(ctx, bucket, runID, root); err != nil {
		t.Fatal(err)
	}

	if content := splittest.ReadFile(t, root, "base/res/drawable-xxhdpi/ic_launcher.png"); content != "ORIGINAL" {
		t.Errorf("expected base drawable to be restored, got %q", content)
	}
}

func TestMergeIncompleteBase(t *testing.T) {
	for _, missing := range []string{"base/res/values/public.xml", "base/AndroidManifest.xml"} {
		root := t.TempDir()
		files := testTree()
		delete(files, missing)
		splittest.WriteTree(t, root, files)

		err := new(splitmerge.Merger).Merge(context.Background(), root)
		if !errors.Is(err, splitmerge.ErrIncompleteBase) {
			t.Fatalf("expected ErrIncompleteBase without %s, got %v", missing, err)
		}

		if code := mergeerr.ExitCode(err); code != mergeerr.ExitCodePrecondition {
			t.Errorf("expected exit code %d, got %d", mergeerr.ExitCodePrecondition, code)
		}

		if !splittest.Exists(t, root, "split_config.arm64_v8a/lib/arm64-v8a/libfoo.so") {
			t.Errorf("expected nothing to be relocated without %s", missing)
		}
	}
}
