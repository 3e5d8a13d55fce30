package toolkit

import "fmt"

// InvalidPlotParamsError 图表参数无效
type InvalidPlotParamsError struct {
	PlotType string
	Reason   string
}

func (e *InvalidPlotParamsError) Error() string {
	return fmt.Sprintf("invalid parameters for %s plot: %s", e.PlotType, e.Reason)
}

// MissingTargetError 监督学习缺少目标列
type MissingTargetError struct {
	ModelType string
}

func (e *MissingTargetError) Error() string {
	return fmt.Sprintf("model %s requires a target column", e.ModelType)
}

// ModelNotFoundError 请求的模型不存在
type ModelNotFoundError struct {
	ModelID string
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model %s not found", e.ModelID)
}
