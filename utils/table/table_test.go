package table

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestReadCSV(t *testing.T) {
	input := "Name,Review\nAda,Great product\nGrace,Too slow"
	tbl, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if !reflect.DeepEqual(tbl.Columns, []string{"Name", "Review"}) {
		t.Errorf("Columns = %v", tbl.Columns)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(tbl.Rows))
	}
	if tbl.Rows[1]["Review"] != "Too slow" {
		t.Errorf("Rows[1][Review] = %v", tbl.Rows[1]["Review"])
	}
}

func TestReadCSVShortRecord(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("A,B,C\n1,2"))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if tbl.Rows[0]["C"] != "" {
		t.Errorf("missing trailing field should load as empty string, got %v", tbl.Rows[0]["C"])
	}
}

func TestReadCSVEmpty(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no content", ""},
		{"header only", "Name,Review\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadCSV(strings.NewReader(tt.input)); !errors.Is(err, ErrEmptyFile) {
				t.Errorf("ReadCSV() error = %v, want ErrEmptyFile", err)
			}
		})
	}
}

func TestLoadFileUnsupportedFormat(t *testing.T) {
	if _, err := LoadFile("data.parquet"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("LoadFile() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestCSVRoundTripPreservesColumnOrder(t *testing.T) {
	tbl := New([]string{"Name", "Review"})
	tbl.Rows = []Row{{"Name": "Ada", "Review": "Great"}}

	// Generated columns append after the originals, in production order
	tbl.Set(0, "AI_sentiment", "positive")
	tbl.Set(0, "AI_summary", "short")

	var buf strings.Builder
	if err := tbl.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	reloaded, err := ReadCSV(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	want := []string{"Name", "Review", "AI_sentiment", "AI_summary"}
	if !reflect.DeepEqual(reloaded.Columns, want) {
		t.Errorf("Columns after round trip = %v, want %v", reloaded.Columns, want)
	}
	if reloaded.Rows[0]["AI_sentiment"] != "positive" {
		t.Errorf("AI_sentiment = %v", reloaded.Rows[0]["AI_sentiment"])
	}
}

func TestXLSXRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.xlsx")

	tbl := New([]string{"Name", "Score"})
	tbl.Rows = []Row{
		{"Name": "Ada", "Score": "10"},
		{"Name": "Grace", "Score": "9"},
	}
	tbl.Set(0, "AI_rank", "first")

	if err := tbl.SaveFile(path); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}
	reloaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	want := []string{"Name", "Score", "AI_rank"}
	if !reflect.DeepEqual(reloaded.Columns, want) {
		t.Errorf("Columns = %v, want %v", reloaded.Columns, want)
	}
	if len(reloaded.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(reloaded.Rows))
	}
	if reloaded.Rows[1]["Name"] != "Grace" {
		t.Errorf("Rows[1][Name] = %v", reloaded.Rows[1]["Name"])
	}
}

func TestClone(t *testing.T) {
	tbl := New([]string{"A"})
	tbl.Rows = []Row{{"A": "1"}}

	clone := tbl.Clone()
	clone.Set(0, "AI_x", "generated")
	clone.Rows[0]["A"] = "changed"

	if tbl.HasColumn("AI_x") {
		t.Error("mutating the clone added a column to the original")
	}
	if tbl.Rows[0]["A"] != "1" {
		t.Error("mutating the clone changed the original's cell")
	}
}

func TestAddColumnIdempotent(t *testing.T) {
	tbl := New([]string{"A"})
	tbl.AddColumn("B")
	tbl.AddColumn("B")
	tbl.AddColumn("A")
	if !reflect.DeepEqual(tbl.Columns, []string{"A", "B"}) {
		t.Errorf("Columns = %v, want [A B]", tbl.Columns)
	}
}

func TestLoadFileCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.csv")
	if err := os.WriteFile(path, []byte("X\n1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	tbl, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if len(tbl.Rows) != 1 || tbl.Rows[0]["X"] != "1" {
		t.Errorf("unexpected table: %+v", tbl)
	}
}
