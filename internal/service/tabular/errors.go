package tabular

import (
	"fmt"
	"strings"
)

// UnsupportedFormatError 不支持的文件格式
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format: %s (supported: csv, xlsx, json, parquet)", e.Format)
}

// DecodeError 文件解析失败
type DecodeError struct {
	Path   string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %s", e.Path, e.Reason)
}

// EmptyDatasetError 空数据集
type EmptyDatasetError struct {
	Path string
}

func (e *EmptyDatasetError) Error() string {
	return fmt.Sprintf("dataset is empty: %s", e.Path)
}

// ColumnNotFoundError 列不存在，附带近似列名建议
type ColumnNotFoundError struct {
	Column      string
	Suggestions []string
}

func (e *ColumnNotFoundError) Error() string {
	if len(e.Suggestions) > 0 {
		return fmt.Sprintf("column %q not found, did you mean: %s", e.Column, strings.Join(e.Suggestions, ", "))
	}
	return fmt.Sprintf("column %q not found", e.Column)
}

// InvalidTransformError 无效的数据变换
type InvalidTransformError struct {
	Op     string
	Reason string
}

func (e *InvalidTransformError) Error() string {
	return fmt.Sprintf("invalid transform %s: %s", e.Op, e.Reason)
}

// InsufficientDataError 数据量不足以完成请求的操作
type InsufficientDataError struct {
	Op     string
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: %s", e.Op, e.Reason)
}
