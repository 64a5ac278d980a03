package process

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSummarize(t *testing.T) {
	got := Summarize(Sample())
	want := Summary{Processes: 1, Tasks: 3, DocumentTypes: 3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}

	if empty := Summarize(nil); empty != (Summary{}) {
		t.Fatalf("expected zero summary, got %+v", empty)
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := Sample()
	cp := CloneAll(orig)

	cp[0].Tasks[0].Name = "changed"
	cp[0].DocumentTypes[0].Fields[0].Name = "changed"

	if orig[0].Tasks[0].Name == "changed" {
		t.Fatalf("task slice shared between copies")
	}
	if orig[0].DocumentTypes[0].Fields[0].Name == "changed" {
		t.Fatalf("field slice shared between copies")
	}
}

func TestEncodeKeepsUnicodeAndSnakeCase(t *testing.T) {
	data, err := Encode(Sample())
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if !bytes.Contains(data, []byte("Обработка заявки")) {
		t.Fatalf("expected raw unicode in output, got %s", data)
	}
	if !bytes.Contains(data, []byte(`"document_types"`)) {
		t.Fatalf("expected document_types key in output")
	}
	if !bytes.Contains(data, []byte("\n  {")) {
		t.Fatalf("expected indented output")
	}
}

func TestSaveJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultOutputFile)
	if err := SaveJSON(path, Sample()); err != nil {
		t.Fatalf("SaveJSON returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	var got []Process
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode saved file: %v", err)
	}
	if diff := cmp.Diff(Sample(), got); diff != "" {
		t.Fatalf("saved processes mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveJSONFailsForMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.json")
	if err := SaveJSON(path, Sample()); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
