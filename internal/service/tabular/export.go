package tabular

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/xuri/excelize/v2"
)

// Export 将当前数据集写入文件，格式由 format 指定
// 支持 csv、xlsx、json、parquet
func Export(ds *Dataset, format, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	switch strings.ToLower(format) {
	case "csv":
		return exportCSV(ds, path)
	case "xlsx":
		return exportXLSX(ds, path)
	case "json":
		return exportJSON(ds, path)
	case "parquet":
		return exportParquet(ds, path)
	default:
		return &UnsupportedFormatError{Format: format}
	}
}

func exportCSV(ds *Dataset, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(ds.Columns()); err != nil {
		return err
	}
	for i := 0; i < ds.RowCount(); i++ {
		row := make([]string, len(ds.columns))
		for j, c := range ds.columns {
			if !c.Cells[i].Missing {
				row[j] = c.Cells[i].Raw
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func exportXLSX(ds *Dataset, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	headers := make([]interface{}, len(ds.columns))
	for i, c := range ds.columns {
		headers[i] = c.Name
	}
	cell, _ := excelize.CoordinatesToCellName(1, 1)
	if err := f.SetSheetRow(sheet, cell, &headers); err != nil {
		return err
	}
	for i := 0; i < ds.RowCount(); i++ {
		row := make([]interface{}, len(ds.columns))
		for j, c := range ds.columns {
			if !c.Cells[i].Missing {
				row[j] = c.Cells[i].Raw
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func exportJSON(ds *Dataset, path string) error {
	rows := make([]map[string]string, 0, ds.RowCount())
	for i := 0; i < ds.RowCount(); i++ {
		rows = append(rows, ds.Row(i))
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// exportParquet 先写临时 CSV，再用 DuckDB 转为 parquet
func exportParquet(ds *Dataset, path string) error {
	tmp, err := os.CreateTemp("", "luna-export-*.csv")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := exportCSV(ds, tmpPath); err != nil {
		return err
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return err
	}
	defer db.Close()

	query := fmt.Sprintf(
		"COPY (SELECT * FROM read_csv_auto('%s', header=true)) TO '%s' (FORMAT PARQUET)",
		strings.ReplaceAll(tmpPath, "'", "''"),
		strings.ReplaceAll(path, "'", "''"),
	)
	_, err = db.Exec(query)
	return err
}
