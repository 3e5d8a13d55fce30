package resolver

import "fmt"

// ReasoningUnavailableError 推理服务不可用或调用失败
type ReasoningUnavailableError struct {
	Reason string
}

func (e *ReasoningUnavailableError) Error() string {
	return fmt.Sprintf("reasoning service unavailable: %s", e.Reason)
}

// UnknownOperationError 推理服务返回了未登记的操作名
type UnknownOperationError struct {
	Name string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown operation: %s", e.Name)
}
