package tabular

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// ========== 加载与导出测试 ==========

func exportDataset(t *testing.T) *Dataset {
	t.Helper()
	headers := []string{"name", "age", "city"}
	rows := [][]string{
		{"Alice", "34", "Tokyo"},
		{"Bob", "28", "Osaka"},
		{"Carol", "45", "Tokyo"},
		{"Dave", "31", "Kyoto"},
	}
	ds, err := NewFromRecords(headers, rows)
	if err != nil {
		t.Fatalf("NewFromRecords() error = %v", err)
	}
	return ds
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.csv")
	content := "name,age,city\nAlice,34,Tokyo\nBob,28,Osaka\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write csv: %v", err)
	}

	ds, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if ds.RowCount() != 2 {
		t.Errorf("RowCount() = %d, want 2", ds.RowCount())
	}
	meta := ds.Metadata()
	if meta.FileName != "people.csv" || meta.Format != "csv" {
		t.Errorf("source = %s/%s, want people.csv/csv", meta.FileName, meta.Format)
	}
	col, err := ds.Column("age")
	if err != nil {
		t.Fatalf("Column(age) error = %v", err)
	}
	if col.Kind != KindNumeric {
		t.Errorf("age Kind = %v, want numeric", col.Kind)
	}
}

func TestLoadCSVLatin1Fallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latin1.csv")
	// "René" 以 latin-1 编码，0xE9 不是合法 UTF-8
	raw := []byte("name,city\nRen\xe9,Paris\nAnna,Lyon\n")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("failed to write csv: %v", err)
	}

	ds, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	col, err := ds.Column("name")
	if err != nil {
		t.Fatalf("Column(name) error = %v", err)
	}
	if col.Cells[0].Raw != "René" {
		t.Errorf("decoded cell = %q, want René", col.Cells[0].Raw)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ds := exportDataset(t)

	path := filepath.Join(dir, "out.csv")
	if err := Export(ds, "csv", path); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.RowCount() != ds.RowCount() {
		t.Errorf("RowCount() = %d, want %d", loaded.RowCount(), ds.RowCount())
	}
	if got, want := loaded.Columns(), ds.Columns(); len(got) != len(want) {
		t.Fatalf("Columns() = %v, want %v", got, want)
	} else {
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("column %d = %s, want %s", i, got[i], want[i])
			}
		}
	}
	for i := 0; i < ds.RowCount(); i++ {
		want := ds.Row(i)
		got := loaded.Row(i)
		for k, v := range want {
			if got[k] != v {
				t.Errorf("row %d column %s = %q, want %q", i, k, got[k], v)
			}
		}
	}
}

func TestXLSXRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ds := exportDataset(t)

	path := filepath.Join(dir, "out.xlsx")
	if err := Export(ds, "xlsx", path); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.RowCount() != 4 {
		t.Errorf("RowCount() = %d, want 4", loaded.RowCount())
	}
	if loaded.ColumnCount() != 3 {
		t.Errorf("ColumnCount() = %d, want 3", loaded.ColumnCount())
	}
	col, err := loaded.Column("age")
	if err != nil {
		t.Fatalf("Column(age) error = %v", err)
	}
	if col.Kind != KindNumeric {
		t.Errorf("age Kind = %v, want numeric", col.Kind)
	}
	if loaded.Row(0)["name"] != "Alice" {
		t.Errorf("Row(0)[name] = %q, want Alice", loaded.Row(0)["name"])
	}
}

func TestJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ds := exportDataset(t)

	path := filepath.Join(dir, "out.json")
	if err := Export(ds, "json", path); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.RowCount() != 4 {
		t.Errorf("RowCount() = %d, want 4", loaded.RowCount())
	}
	// JSON 加载按键名排序列，比较排序后的列集合
	want := append([]string(nil), ds.Columns()...)
	sort.Strings(want)
	got := loaded.Columns()
	if len(got) != len(want) {
		t.Fatalf("Columns() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %d = %s, want %s", i, got[i], want[i])
		}
	}
	for i := 0; i < ds.RowCount(); i++ {
		if loaded.Row(i)["name"] != ds.Row(i)["name"] {
			t.Errorf("row %d name = %q, want %q", i, loaded.Row(i)["name"], ds.Row(i)["name"])
		}
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	txt := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(txt, []byte("hello"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	empty := filepath.Join(dir, "empty.csv")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	headerOnly := filepath.Join(dir, "header.csv")
	if err := os.WriteFile(headerOnly, []byte("a,b\n"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	badJSON := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(badJSON, []byte(`{"not":"an array"}`), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr interface{}
	}{
		{"unsupported extension", txt, &UnsupportedFormatError{}},
		{"empty file", empty, &EmptyDatasetError{}},
		{"header without rows", headerOnly, &EmptyDatasetError{}},
		{"json not an array", badJSON, &DecodeError{}},
		{"missing file", filepath.Join(dir, "nope.csv"), &DecodeError{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			switch tt.wantErr.(type) {
			case *UnsupportedFormatError:
				if _, ok := err.(*UnsupportedFormatError); !ok {
					t.Errorf("error type = %T, want *UnsupportedFormatError", err)
				}
			case *EmptyDatasetError:
				if _, ok := err.(*EmptyDatasetError); !ok {
					t.Errorf("error type = %T, want *EmptyDatasetError", err)
				}
			case *DecodeError:
				if _, ok := err.(*DecodeError); !ok {
					t.Errorf("error type = %T, want *DecodeError", err)
				}
			}
		})
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	ds := exportDataset(t)
	err := Export(ds, "yaml", filepath.Join(t.TempDir(), "out.yaml"))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if _, ok := err.(*UnsupportedFormatError); !ok {
		t.Errorf("error type = %T, want *UnsupportedFormatError", err)
	}
}

func TestExportPreservesTransforms(t *testing.T) {
	dir := t.TempDir()
	ds := exportDataset(t)

	if _, err := ds.Filter("age", ">", "30"); err != nil {
		t.Fatalf("Filter() error = %v", err)
	}

	path := filepath.Join(dir, "filtered.csv")
	if err := Export(ds, "csv", path); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	// 导出写的是过滤后的数据，不是原始快照
	if loaded.RowCount() != 3 {
		t.Errorf("RowCount() = %d, want 3 filtered rows", loaded.RowCount())
	}
}
