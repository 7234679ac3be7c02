package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tsukihi/ruiji/internal/cli"
)

const testConfig = `
collection:
  name: sentences
  fields:
    - name: pk
      type: varchar
      primary_key: true
      max_length: 100
    - name: sentence
      type: varchar
      max_length: 512
    - name: embeddings
      type: float_vector
      dim: 8
`

func TestLoadConfig_explicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "my.yaml")
	if err := os.WriteFile(path, []byte(testConfig), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != path {
		t.Errorf("resolved = %q, want %q", resolved, path)
	}
	if cfg.Collection.Name != "sentences" {
		t.Errorf("collection = %q", cfg.Collection.Name)
	}
}

func TestLoadConfig_cwdFallback(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(testConfig), 0600); err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(resolved) != "config.yaml" {
		t.Errorf("resolved = %q, want cwd config.yaml", resolved)
	}
	if cfg.Collection.Name != "sentences" {
		t.Errorf("collection = %q", cfg.Collection.Name)
	}
}

func TestBuildSearchText(t *testing.T) {
	if got := buildSearchText([]string{"who", "is", "Mickey"}); got != "who is Mickey" {
		t.Errorf("got %q", got)
	}
	if got := buildSearchText([]string{" padded "}); got != "padded" {
		t.Errorf("got %q", got)
	}
	if got := buildSearchText(nil); got != "" {
		t.Errorf("got %q", got)
	}
}

func TestParseOutputFormat(t *testing.T) {
	if f, err := parseOutputFormat("text"); err != nil || f != cli.OutputText {
		t.Errorf("text: %v %v", f, err)
	}
	if f, err := parseOutputFormat("json"); err != nil || f != cli.OutputJSON {
		t.Errorf("json: %v %v", f, err)
	}
	if _, err := parseOutputFormat("yaml"); err == nil {
		t.Error("unknown format should fail")
	}
}
