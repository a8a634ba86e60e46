package cmd

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"snappurge/database"
	"snappurge/engine"
	"snappurge/testsupport"
)

type cliResult struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, ctx context.Context, args ...string) cliResult {
	t.Helper()
	// never pick up the developer's own config file
	args = append([]string{"--config", filepath.Join(t.TempDir(), "none.toml")}, args...)
	var stdout, stderr bytes.Buffer
	code := run(ctx, args, &stdout, &stderr)
	return cliResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeImages(t *testing.T, dir string, withCopy bool) {
	t.Helper()
	gradient := testsupport.EncodePNG(t, testsupport.Gradient(64, 64))
	testsupport.WriteOSFile(t, filepath.Join(dir, "gradient.png"), gradient)
	testsupport.WriteOSFile(t, filepath.Join(dir, "board.png"), testsupport.EncodePNG(t, testsupport.Checkerboard(64, 64, 8)))
	if withCopy {
		testsupport.WriteOSFile(t, filepath.Join(dir, "nested", "gradient copy.png"), gradient)
	}
}

func TestLevelsCommand(t *testing.T) {
	res := runCLI(t, context.Background(), "levels")
	if res.code != exitOK {
		t.Fatalf("exit %d: %s", res.code, res.stderr)
	}
	for _, want := range []string{"Strictness", "very low", "exact", "60"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("levels output missing %q:\n%s", want, res.stdout)
		}
	}

	res = runCLI(t, context.Background(), "levels", "--json")
	var levels []engine.Level
	if err := json.Unmarshal([]byte(res.stdout), &levels); err != nil {
		t.Fatalf("levels --json: %v", err)
	}
	if len(levels) != engine.MaxStrictness+1 {
		t.Fatalf("got %d levels", len(levels))
	}
}

func TestScanFindsCopyAsJSON(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, true)

	res := runCLI(t, context.Background(), "scan", dir, "--strictness", "20", "--json", "--keep-best")
	if res.code != exitOK {
		t.Fatalf("exit %d: %s", res.code, res.stderr)
	}

	var out scanResult
	if err := json.Unmarshal([]byte(res.stdout), &out); err != nil {
		t.Fatalf("decode output: %v\n%s", err, res.stdout)
	}
	if out.Status != "success" || out.Hashed != 3 || len(out.Groups) != 1 {
		t.Fatalf("unexpected result: %+v", out)
	}
	group := out.Groups[0]
	if len(group.Paths) != 2 || (group.Keep != group.Paths[0] && group.Keep != group.Paths[1]) {
		t.Fatalf("unexpected group: %+v", group)
	}
	if out.Summary.Duplicates != 1 || out.Summary.ReclaimableBytes == 0 {
		t.Fatalf("summary = %+v", out.Summary)
	}
}

func TestScanNoRecursiveSkipsSubfolders(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, true)

	res := runCLI(t, context.Background(), "scan", dir, "--strictness", "20", "--no-recursive")
	if res.code != exitOK {
		t.Fatalf("exit %d: %s", res.code, res.stderr)
	}
	if !strings.Contains(res.stdout, "No duplicates found") {
		t.Fatalf("expected no duplicates:\n%s", res.stdout)
	}
}

func TestScanTableOutput(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, true)

	res := runCLI(t, context.Background(), "scan", dir, "--strictness", "20", "--keep-best")
	if res.code != exitOK {
		t.Fatalf("exit %d: %s", res.code, res.stderr)
	}
	for _, want := range []string{"Success", "gradient copy.png", "keep", "1 groups, 2 images, 1 duplicates"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("output missing %q:\n%s", want, res.stdout)
		}
	}
}

func TestScanMoveTo(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, true)
	dest := filepath.Join(t.TempDir(), "dupes")

	res := runCLI(t, context.Background(), "scan", dir, "--strictness", "20", "--move-to", dest)
	if res.code != exitOK {
		t.Fatalf("exit %d: %s", res.code, res.stderr)
	}

	entries, err := os.ReadDir(dest)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one moved file, got %d", len(entries))
	}
	_, errTop := os.Stat(filepath.Join(dir, "gradient.png"))
	_, errNested := os.Stat(filepath.Join(dir, "nested", "gradient copy.png"))
	if (errTop == nil) == (errNested == nil) {
		t.Fatalf("exactly one copy should remain (top: %v, nested: %v)", errTop, errNested)
	}
}

func TestScanTrash(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, true)
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	res := runCLI(t, context.Background(), "scan", dir, "--strictness", "20", "--trash")
	if res.code != exitOK {
		t.Fatalf("exit %d: %s", res.code, res.stderr)
	}
	for _, sub := range []string{"files", "info"} {
		entries, err := os.ReadDir(filepath.Join(dataHome, "Trash", sub))
		if err != nil {
			t.Fatalf("read trash %s: %v", sub, err)
		}
		if len(entries) != 1 {
			t.Fatalf("expected one entry in trash %s, got %d", sub, len(entries))
		}
	}
	if !strings.Contains(res.stdout, "Moved 1 files") {
		t.Errorf("output missing move count:\n%s", res.stdout)
	}

	res = runCLI(t, context.Background(), "scan", dir, "--trash", "--move-to", t.TempDir())
	if res.code != exitError {
		t.Fatalf("expected --trash with --move-to to fail, exit %d", res.code)
	}
}

func TestScanWritesReport(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, true)
	reportPath := filepath.Join(t.TempDir(), "runs.db")

	res := runCLI(t, context.Background(), "scan", dir, "--strictness", "20", "--report", reportPath, "--json")
	if res.code != exitOK {
		t.Fatalf("exit %d: %s", res.code, res.stderr)
	}
	var out scanResult
	if err := json.Unmarshal([]byte(res.stdout), &out); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open("sqlite3", reportPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	stats, err := database.GetRunStats(context.Background(), db, out.RunID)
	if err != nil {
		t.Fatalf("GetRunStats: %v", err)
	}
	if stats.Status != "success" || stats.Groups != 1 || stats.Files != 2 || stats.Kept != 1 {
		t.Fatalf("stored stats = %+v", stats)
	}
}

func TestScanFlagsAreNormalized(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, true)
	home := t.TempDir()
	t.Setenv("HOME", home)

	res := runCLI(t, context.Background(), "scan", dir, "--strictness", "20", "--algorithm", " PHASH ", "--report", "~/runs.db", "--json")
	if res.code != exitOK {
		t.Fatalf("exit %d: %s", res.code, res.stderr)
	}
	if _, err := os.Stat(filepath.Join(home, "runs.db")); err != nil {
		t.Fatalf("report not written under the expanded home path: %v", err)
	}
}

func TestScanCancelledExitCode(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := runCLI(t, ctx, "scan", dir)
	if res.code != exitCancelled {
		t.Fatalf("exit %d, want %d: %s", res.code, exitCancelled, res.stderr)
	}
	if !strings.Contains(res.stderr, "Search cancelled") {
		t.Fatalf("stderr = %q", res.stderr)
	}
}

func TestScanErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	if res := runCLI(t, context.Background(), "scan", missing); res.code != exitError {
		t.Errorf("missing folder: exit %d", res.code)
	}
	if res := runCLI(t, context.Background(), "scan", t.TempDir(), "--strictness", "25"); res.code != exitError || !strings.Contains(res.stderr, "strictness") {
		t.Errorf("bad strictness: exit %d, stderr %q", res.code, res.stderr)
	}
	if res := runCLI(t, context.Background(), "scan", t.TempDir(), "--algorithm", "md5"); res.code != exitError {
		t.Errorf("bad algorithm: exit %d", res.code)
	}
	if res := runCLI(t, context.Background(), "scan"); res.code != exitError {
		t.Errorf("missing argument: exit %d", res.code)
	}
}

func TestConfigShow(t *testing.T) {
	res := runCLI(t, context.Background(), "config", "show")
	if res.code != exitOK {
		t.Fatalf("exit %d: %s", res.code, res.stderr)
	}
	for _, want := range []string{"# defaults", "[scan]", "strictness = 15", "phash"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("config show missing %q:\n%s", want, res.stdout)
		}
	}
}
