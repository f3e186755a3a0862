package shipping

import (
	"context"
	"errors"
	"strings"

	"github.com/dujiao-next/checkout/internal/models"
)

// ErrMethodUnknown 未配置的配送方式
var ErrMethodUnknown = errors.New("shipping method unknown")

// FlatRate 按配送方式固定收费
type FlatRate struct {
	methods map[string]int64
}

// NewFlatRate 创建固定运费提供方，方式编码不区分大小写
func NewFlatRate(methods map[string]int64) *FlatRate {
	normalized := make(map[string]int64, len(methods))
	for code, price := range methods {
		key := strings.ToLower(strings.TrimSpace(code))
		if key == "" || price < 0 {
			continue
		}
		normalized[key] = price
	}
	return &FlatRate{methods: normalized}
}

// Price 返回配送方式运费
func (f *FlatRate) Price(_ context.Context, _ *models.Order, method string) (int64, error) {
	price, ok := f.methods[strings.ToLower(strings.TrimSpace(method))]
	if !ok {
		return 0, ErrMethodUnknown
	}
	return price, nil
}

// Methods 已配置的配送方式
func (f *FlatRate) Methods() map[string]int64 {
	out := make(map[string]int64, len(f.methods))
	for code, price := range f.methods {
		out[code] = price
	}
	return out
}
