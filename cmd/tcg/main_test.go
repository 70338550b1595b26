package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var kickGrammar = filepath.Join("..", "..", "internal", "grammar", "testdata", "kick.yaml")

// isolateHome sets HOME to a temp directory to avoid reading a real
// ~/.tcg/config.yaml.
func isolateHome(t *testing.T, tmpDir string) {
	t.Helper()
	tmpHome := filepath.Join(tmpDir, "home")
	if err := os.MkdirAll(tmpHome, 0700); err != nil {
		t.Fatalf("Failed to create temp home: %v", err)
	}
	t.Setenv("HOME", tmpHome)
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	var got []string
	for _, c := range newRootCmd().Commands() {
		got = append(got, c.Name())
	}
	want := []string{"import", "list", "run", "version"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("subcommands mismatch (-want +got):\n%s", diff)
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "tcg version "+version) {
		t.Errorf("unexpected version output: %q", out)
	}

	out, err = execute(t, "version", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var v map[string]string
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("version --json is not JSON: %v", err)
	}
	if v["version"] != version {
		t.Errorf("version = %q, want %q", v["version"], version)
	}
}

func TestRunCmd(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	out, err := execute(t, "run", "--grammar", kickGrammar, "--scene", "woman-kicks-ball", "--root", tmpDir)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out != "the woman kicks the ball\n" {
		t.Errorf("run output = %q", out)
	}
}

func TestRunCmd_JSON(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	out, err := execute(t, "run", "--grammar", kickGrammar, "--root", tmpDir, "--seed", "9", "--ticks", "60", "--json")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	var got runOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("run --json is not JSON: %v\n%s", err, out)
	}
	if got.Scene != "woman-kicks-ball" {
		t.Errorf("default scene = %q, want the first scene", got.Scene)
	}
	if got.Seed != 9 || got.Ticks != 60 {
		t.Errorf("seed/ticks = %d/%d, want 9/60", got.Seed, got.Ticks)
	}
	if !got.Spoke || got.Top != "transitive#1" {
		t.Errorf("spoke=%v top=%q, want transitive#1", got.Spoke, got.Top)
	}
	if len(got.Activations) != 5 {
		t.Errorf("expected 5 activations, got %d", len(got.Activations))
	}
}

func TestRunCmd_DecisionLog(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	t.Setenv("TCG_LOG_LEVEL", "debug")

	if _, err := execute(t, "run", "--grammar", kickGrammar, "--root", tmpDir, "--ticks", "5"); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(tmpDir, ".tcg", "decisions.jsonl"))
	if err != nil {
		t.Fatalf("decision log not written: %v", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		t.Error("decision log is empty")
	}
}

func TestRunCmd_Errors(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	tests := []struct {
		name string
		args []string
	}{
		{"missing grammar", []string{"run"}},
		{"unknown scene", []string{"run", "--grammar", kickGrammar, "--scene", "nope"}},
		{"negative ticks", []string{"run", "--grammar", kickGrammar, "--ticks", "-1"}},
		{"missing file", []string{"run", "--grammar", filepath.Join(tmpDir, "absent.yaml")}},
		{"missing config", []string{"run", "--grammar", kickGrammar, "--config", filepath.Join(tmpDir, "absent.yaml")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(tt.args, "--root", tmpDir)
			if _, err := execute(t, args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestImportListAndRunFromStore(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	out, err := execute(t, "import", "--grammar", kickGrammar, "--root", tmpDir)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if !strings.Contains(out, "Imported 5 constructions and 10 concepts") {
		t.Errorf("unexpected import output: %q", out)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, ".tcg", "fragments.jsonl")); err != nil {
		t.Errorf("import did not export JSONL: %v", err)
	}

	out, err = execute(t, "list", "--root", tmpDir, "--class", "NP", "--json")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	var listed struct {
		Constructions []listEntry `json:"constructions"`
		Count         int         `json:"count"`
	}
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("list --json is not JSON: %v", err)
	}
	want := []listEntry{
		{ID: "the-woman", Name: "THE_WOMAN", Class: "NP", Preference: 0.1, Form: "the woman"},
		{ID: "the-person", Name: "THE_PERSON", Class: "NP", Form: "the person"},
		{ID: "the-ball", Name: "THE_BALL", Class: "NP", Form: "the ball"},
	}
	if diff := cmp.Diff(want, listed.Constructions); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}

	out, err = execute(t, "list", "--root", tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "[NP] [V] [NP]") {
		t.Errorf("clause form missing from list output:\n%s", out)
	}

	out, err = execute(t, "run", "--grammar", kickGrammar, "--root", tmpDir, "--from-store")
	if err != nil {
		t.Fatalf("run --from-store failed: %v", err)
	}
	if out != "the woman kicks the ball\n" {
		t.Errorf("run --from-store output = %q", out)
	}
}

func TestListCmd_NotInitialized(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	out, err := execute(t, "list", "--root", tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "tcg import") {
		t.Errorf("expected a hint to import, got %q", out)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, ".tcg")); !os.IsNotExist(err) {
		t.Error("list should not create the store directory")
	}
}
