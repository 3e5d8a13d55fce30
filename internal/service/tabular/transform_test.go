package tabular

import (
	"testing"
)

// ========== 变换测试 ==========

func TestDropColumn(t *testing.T) {
	ds := sampleDataset(t)

	if err := ds.DropColumn("joined"); err != nil {
		t.Fatalf("DropColumn() error = %v", err)
	}
	if ds.HasColumn("joined") {
		t.Error("column joined still present after drop")
	}
	if ds.ColumnCount() != 4 {
		t.Errorf("ColumnCount() = %d, want 4", ds.ColumnCount())
	}
	if err := ds.DropColumn("nope"); err == nil {
		t.Error("DropColumn(nope) expected error, got nil")
	}
}

func TestRenameColumn(t *testing.T) {
	ds := sampleDataset(t)

	if err := ds.RenameColumn("age", "years"); err != nil {
		t.Fatalf("RenameColumn() error = %v", err)
	}
	if !ds.HasColumn("years") || ds.HasColumn("age") {
		t.Error("rename did not take effect")
	}
	if err := ds.RenameColumn("years", "name"); err == nil {
		t.Error("rename to existing column expected error, got nil")
	}
}

func TestFillMissing(t *testing.T) {
	tests := []struct {
		name     string
		column   string
		strategy string
		wantErr  bool
	}{
		{"mean on numeric", "age", "mean", false},
		{"median on numeric", "salary", "median", false},
		{"mode on categorical", "name", "mode", false},
		{"forward fill", "age", "forward", false},
		{"mean on categorical", "name", "mean", true},
		{"unknown strategy", "age", "backward", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := sampleDataset(t)
			err := ds.FillMissing(tt.column, tt.strategy)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FillMissing(%s, %s) error = %v, wantErr %v", tt.column, tt.strategy, err, tt.wantErr)
			}
			if !tt.wantErr && tt.strategy != "forward" {
				stats, _ := ds.Stats(tt.column)
				if stats.Missing != 0 {
					t.Errorf("Missing = %d after fill, want 0", stats.Missing)
				}
			}
		})
	}
}

func TestFillMissingMeanValue(t *testing.T) {
	ds := sampleDataset(t)

	if err := ds.FillMissing("age", "mean"); err != nil {
		t.Fatalf("FillMissing() error = %v", err)
	}
	// 缺失的 age 应填为 (34+28+45+31)/4 = 34.5
	stats, _ := ds.Stats("age")
	if stats.Count != 5 {
		t.Fatalf("Count = %d, want 5", stats.Count)
	}
	col, _ := ds.Column("age")
	if col.Cells[2].Num != 34.5 {
		t.Errorf("filled value = %v, want 34.5", col.Cells[2].Num)
	}
}

func TestRetypeAtomic(t *testing.T) {
	ds := sampleDataset(t)

	// name 列包含非数值，转换必须整体失败且列保持不变
	if err := ds.Retype("name", KindNumeric); err == nil {
		t.Fatal("Retype(name, numeric) expected error, got nil")
	}
	col, _ := ds.Column("name")
	if col.Kind != KindCategorical {
		t.Errorf("Kind = %v after failed retype, want categorical", col.Kind)
	}
	if len(ds.Transforms()) != 0 {
		t.Errorf("failed retype recorded a transform: %v", ds.Transforms())
	}

	if err := ds.Retype("age", KindCategorical); err != nil {
		t.Fatalf("Retype(age, categorical) error = %v", err)
	}
	col, _ = ds.Column("age")
	if col.Kind != KindCategorical {
		t.Errorf("Kind = %v, want categorical", col.Kind)
	}
}

// ========== 过滤测试 ==========

func TestFilterOperators(t *testing.T) {
	tests := []struct {
		name     string
		column   string
		operator string
		value    string
		wantRows int
		wantErr  bool
	}{
		{"greater than", "age", ">", "30", 3, false},
		{"less equal", "age", "<=", "31", 2, false},
		{"equals numeric", "age", "==", "28", 1, false},
		{"not equals", "name", "!=", "Bob", 4, false},
		{"contains", "name", "contains", "a", 3, false},
		{"boolean equals", "active", "==", "true", 3, false},
		{"boolean not equals", "active", "!=", "true", 2, false},
		{"boolean garbage value", "active", "==", "maybe", 0, true},
		{"ordering on categorical", "name", ">", "x", 0, true},
		{"unknown operator", "age", "~", "1", 0, true},
		{"non numeric value", "age", ">", "abc", 0, true},
		{"unknown column", "nope", ">", "1", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := sampleDataset(t)
			kept, err := ds.Filter(tt.column, tt.operator, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Filter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if kept != tt.wantRows {
				t.Errorf("Filter() kept = %d, want %d", kept, tt.wantRows)
			}
			if ds.RowCount() != tt.wantRows {
				t.Errorf("RowCount() = %d, want %d", ds.RowCount(), tt.wantRows)
			}
		})
	}
}

func TestFilterDropsMissingRows(t *testing.T) {
	ds := sampleDataset(t)

	// Carol 的 age 缺失，任何 age 过滤都不应保留该行
	kept, err := ds.Filter("age", ">", "0")
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if kept != 4 {
		t.Errorf("kept = %d, want 4", kept)
	}
}

// ========== 清理与重置测试 ==========

func TestDropDuplicates(t *testing.T) {
	headers := []string{"a", "b"}
	rows := [][]string{{"1", "x"}, {"1", "x"}, {"2", "y"}, {"1", "x"}}
	ds, err := NewFromRecords(headers, rows)
	if err != nil {
		t.Fatalf("NewFromRecords() error = %v", err)
	}

	removed := ds.DropDuplicates()
	if removed != 2 {
		t.Errorf("DropDuplicates() = %d, want 2", removed)
	}
	if ds.RowCount() != 2 {
		t.Errorf("RowCount() = %d, want 2", ds.RowCount())
	}
}

func TestDropMissingRows(t *testing.T) {
	ds := sampleDataset(t)

	removed, err := ds.DropMissingRows(nil)
	if err != nil {
		t.Fatalf("DropMissingRows() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if ds.RowCount() != 3 {
		t.Errorf("RowCount() = %d, want 3", ds.RowCount())
	}
}

func TestResetRestoresSnapshot(t *testing.T) {
	ds := sampleDataset(t)

	if _, err := ds.Filter("age", ">", "30"); err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if err := ds.DropColumn("joined"); err != nil {
		t.Fatalf("DropColumn() error = %v", err)
	}
	if len(ds.Transforms()) != 2 {
		t.Fatalf("Transforms() len = %d, want 2", len(ds.Transforms()))
	}

	ds.Reset()
	if ds.RowCount() != 5 || ds.ColumnCount() != 5 {
		t.Errorf("after Reset rows/cols = %d/%d, want 5/5", ds.RowCount(), ds.ColumnCount())
	}
	if len(ds.Transforms()) != 0 {
		t.Errorf("Transforms() not cleared after Reset: %v", ds.Transforms())
	}
	if !ds.HasColumn("joined") {
		t.Error("column joined not restored after Reset")
	}
}

func TestTransformRecords(t *testing.T) {
	ds := sampleDataset(t)

	if _, err := ds.Filter("age", ">", "30"); err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if err := ds.FillMissing("salary", "median"); err != nil {
		t.Fatalf("FillMissing() error = %v", err)
	}

	records := ds.Transforms()
	if len(records) != 2 {
		t.Fatalf("Transforms() len = %d, want 2", len(records))
	}
	if records[0].Op != "filter" || records[1].Op != "fill_missing" {
		t.Errorf("ops = %s,%s want filter,fill_missing", records[0].Op, records[1].Op)
	}
	if records[0].RowsAfter != 3 {
		t.Errorf("RowsAfter = %d, want 3", records[0].RowsAfter)
	}
}
