package tabular

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// Load 加载文件为数据集，按扩展名分派解析器
// 支持 csv、xlsx、json（对象数组）、parquet
func Load(path string) (*Dataset, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	var (
		ds  *Dataset
		err error
	)
	switch ext {
	case "csv":
		ds, err = loadCSV(path)
	case "xlsx":
		ds, err = loadXLSX(path)
	case "json":
		ds, err = loadJSON(path)
	case "parquet":
		ds, err = loadParquet(path)
	default:
		return nil, &UnsupportedFormatError{Format: ext}
	}
	if err != nil {
		return nil, err
	}
	ds.SetSource(filepath.Base(path), ext)
	return ds, nil
}

// loadCSV 解析 CSV，按 utf-8 → latin-1 → windows-1252 依次尝试解码
func loadCSV(path string) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Reason: err.Error()}
	}
	if len(raw) == 0 {
		return nil, &EmptyDatasetError{Path: path}
	}

	text := string(raw)
	if !utf8.ValidString(text) {
		decoded := false
		for _, cm := range []*charmap.Charmap{charmap.ISO8859_1, charmap.Windows1252} {
			if out, err := cm.NewDecoder().String(text); err == nil {
				text = out
				decoded = true
				break
			}
		}
		if !decoded {
			return nil, &DecodeError{Path: path, Reason: "unknown character encoding"}
		}
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	var headers []string
	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DecodeError{Path: path, Reason: err.Error()}
		}
		if headers == nil {
			headers = record
			continue
		}
		rows = append(rows, record)
	}
	if len(headers) == 0 || len(rows) == 0 {
		return nil, &EmptyDatasetError{Path: path}
	}
	return NewFromRecords(headers, rows)
}

// loadXLSX 解析 Excel 工作簿的第一个工作表
func loadXLSX(path string) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Reason: err.Error()}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &EmptyDatasetError{Path: path}
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &DecodeError{Path: path, Reason: err.Error()}
	}
	if len(records) < 2 {
		return nil, &EmptyDatasetError{Path: path}
	}
	return NewFromRecords(records[0], records[1:])
}

// loadJSON 解析对象数组，列序取首个对象的键排序后顺序
func loadJSON(path string) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Reason: err.Error()}
	}
	var objects []map[string]interface{}
	if err := json.Unmarshal(raw, &objects); err != nil {
		return nil, &DecodeError{Path: path, Reason: "expected an array of objects: " + err.Error()}
	}
	if len(objects) == 0 {
		return nil, &EmptyDatasetError{Path: path}
	}

	keySet := make(map[string]bool)
	for _, obj := range objects {
		for k := range obj {
			keySet[k] = true
		}
	}
	headers := make([]string, 0, len(keySet))
	for k := range keySet {
		headers = append(headers, k)
	}
	sort.Strings(headers)

	rows := make([][]string, len(objects))
	for i, obj := range objects {
		row := make([]string, len(headers))
		for j, k := range headers {
			row[j] = jsonCellString(obj[k])
		}
		rows[i] = row
	}
	return NewFromRecords(headers, rows)
}

func jsonCellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

// loadParquet 通过 DuckDB 读取 parquet 文件
func loadParquet(path string) (*Dataset, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, &DecodeError{Path: path, Reason: err.Error()}
	}
	defer db.Close()

	query := fmt.Sprintf("SELECT * FROM read_parquet('%s')", strings.ReplaceAll(path, "'", "''"))
	dbRows, err := db.Query(query)
	if err != nil {
		return nil, &DecodeError{Path: path, Reason: err.Error()}
	}
	defer dbRows.Close()

	headers, err := dbRows.Columns()
	if err != nil {
		return nil, &DecodeError{Path: path, Reason: err.Error()}
	}

	var rows [][]string
	values := make([]interface{}, len(headers))
	ptrs := make([]interface{}, len(headers))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for dbRows.Next() {
		if err := dbRows.Scan(ptrs...); err != nil {
			return nil, &DecodeError{Path: path, Reason: err.Error()}
		}
		row := make([]string, len(headers))
		for i, v := range values {
			row[i] = sqlCellString(v)
		}
		rows = append(rows, row)
	}
	if err := dbRows.Err(); err != nil {
		return nil, &DecodeError{Path: path, Reason: err.Error()}
	}
	if len(rows) == 0 {
		return nil, &EmptyDatasetError{Path: path}
	}
	return NewFromRecords(headers, rows)
}

func sqlCellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprintf("%v", x)
	}
}
