package fileutil

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/lepinkainen/catalink/internal/testutil"
)

type testData struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

func TestFileExists(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.WriteFileString("present.txt", "x")
	env.WriteFileString("dir/inner.txt", "x")

	if !FileExists(env.Path("present.txt")) {
		t.Error("expected present.txt to exist")
	}
	if FileExists(env.Path("missing.txt")) {
		t.Error("expected missing.txt not to exist")
	}
	if FileExists(env.Path("dir")) {
		t.Error("directories are not files")
	}
}

func TestWriteFileWithOverwrite(t *testing.T) {
	env := testutil.NewTestEnv(t)
	path := env.Path("out", "nested", "file.txt")

	written, err := WriteFileWithOverwrite(path, []byte("first"), 0o644, false)
	if err != nil || !written {
		t.Fatalf("first write: written=%v err=%v", written, err)
	}

	written, err = WriteFileWithOverwrite(path, []byte("second"), 0o644, false)
	if err != nil {
		t.Fatalf("second write: %v", err)
	}
	if written {
		t.Error("expected existing file to be skipped")
	}
	if got := env.ReadFileString("out/nested/file.txt"); got != "first" {
		t.Errorf("content = %q, want first", got)
	}

	written, err = WriteFileWithOverwrite(path, []byte("third"), 0o644, true)
	if err != nil || !written {
		t.Fatalf("overwrite: written=%v err=%v", written, err)
	}
	if got := env.ReadFileString("out/nested/file.txt"); got != "third" {
		t.Errorf("content = %q, want third", got)
	}
}

func TestWriteJSONFile(t *testing.T) {
	env := testutil.NewTestEnv(t)
	path := env.Path("results.json")

	data := []testData{{ID: 1, Name: "Moby Dick"}, {ID: 2, Name: "Billy Budd"}}
	if _, err := WriteJSONFile(data, path, true); err != nil {
		t.Fatalf("WriteJSONFile: %v", err)
	}

	var decoded []testData
	if err := json.Unmarshal([]byte(env.ReadFileString("results.json")), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 2 || decoded[1].Name != "Billy Budd" {
		t.Errorf("unexpected content: %+v", decoded)
	}
}

func TestWriteJSONFile_InvalidData(t *testing.T) {
	env := testutil.NewTestEnv(t)

	written, err := WriteJSONFile(math.Inf(1), env.Path("bad.json"), true)
	if err == nil {
		t.Fatal("expected marshal error")
	}
	if written || env.FileExists("bad.json") {
		t.Error("nothing should be written on marshal failure")
	}
}

func TestWriteDataFile(t *testing.T) {
	env := testutil.NewTestEnv(t)
	data := testData{ID: 7, Name: "A study"}

	if _, err := WriteDataFile(data, env.Path("r.yml"), true); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if got := env.ReadFileString("r.yml"); !strings.Contains(got, "name: A study") {
		t.Errorf("yaml content = %q", got)
	}

	if _, err := WriteDataFile(data, env.Path("r.JSON"), true); err != nil {
		t.Fatalf("json: %v", err)
	}
	if got := env.ReadFileString("r.JSON"); !strings.Contains(got, `"name": "A study"`) {
		t.Errorf("json content = %q", got)
	}

	if _, err := WriteDataFile(data, env.Path("r.csv"), true); err == nil {
		t.Error("expected unsupported extension error")
	}
}
