package payment

import (
	"context"
	"errors"

	"github.com/dujiao-next/checkout/internal/constants"
)

var (
	ErrTransactionNotFound = errors.New("payment transaction not found")
	ErrRefundRejected      = errors.New("payment refund rejected")
)

// Request 发起支付请求
type Request struct {
	OrderID  uint
	OrderNo  string
	Amount   int64
	Currency string
}

// Provider 支付渠道接口：发起支付返回交易号，随后查询结算状态
type Provider interface {
	Name() string
	Initiate(ctx context.Context, req Request) (string, error)
	Status(ctx context.Context, transactionRef string) (constants.PaymentStatus, error)
	Refund(ctx context.Context, transactionRef string, amount int64) error
}
