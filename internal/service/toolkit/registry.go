package toolkit

import (
	"fmt"
	"strconv"
	"sync"
)

// Registry 内存中的已训练模型注册表
type Registry struct {
	mu     sync.RWMutex
	models map[string]*ModelHandle
}

// NewRegistry 创建注册表
func NewRegistry() *Registry {
	return &Registry{models: make(map[string]*ModelHandle)}
}

// Register 登记模型
func (r *Registry) Register(h *ModelHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[h.ID] = h
}

// Get 获取模型
func (r *Registry) Get(id string) (*ModelHandle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.models[id]
	if !ok {
		return nil, &ModelNotFoundError{ModelID: id}
	}
	return h, nil
}

// List 列出所有模型
func (r *Registry) List() []*ModelHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ModelHandle, 0, len(r.models))
	for _, h := range r.models {
		out = append(out, h)
	}
	return out
}

// Remove 移除模型
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.models, id)
}

// Predict 对一批行做预测，每行为特征名到取值文本的映射
// 分类模型返回类别标签，聚类返回簇编号，回归返回数值
func (r *Registry) Predict(id string, rows []map[string]string) ([]string, error) {
	h, err := r.Get(id)
	if err != nil {
		return nil, err
	}

	out := make([]string, len(rows))
	for i, row := range rows {
		x := make([]float64, len(h.Features))
		for j, f := range h.Features {
			raw, ok := row[f]
			if !ok {
				return nil, fmt.Errorf("row %d is missing feature %s", i, f)
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d feature %s: value %q is not numeric", i, f, raw)
			}
			x[j] = v
		}

		p := h.predict(x)
		switch {
		case h.Task == "classification" && len(h.Classes) > 0:
			out[i] = h.Classes[int(p)]
		case h.Task == "clustering":
			out[i] = strconv.Itoa(int(p))
		default:
			out[i] = strconv.FormatFloat(p, 'g', -1, 64)
		}
	}
	return out, nil
}
