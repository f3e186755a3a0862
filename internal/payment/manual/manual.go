package manual

import (
	"context"
	"strings"
	"sync"

	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/payment"

	"github.com/google/uuid"
)

// Provider 线下/人工确认支付渠道，结算状态由运营回写
type Provider struct {
	mu       sync.Mutex
	payments map[string]*record
}

type record struct {
	amount   int64
	refunded int64
	status   constants.PaymentStatus
}

// New 创建人工支付渠道
func New() *Provider {
	return &Provider{payments: make(map[string]*record)}
}

// Name 渠道名称
func (p *Provider) Name() string {
	return constants.PaymentProviderManual
}

// Initiate 登记一笔待确认支付
func (p *Provider) Initiate(_ context.Context, req payment.Request) (string, error) {
	ref := "MAN" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payments[ref] = &record{amount: req.Amount, status: constants.PaymentStatusPending}
	return ref, nil
}

// Status 查询结算状态
func (p *Provider) Status(_ context.Context, transactionRef string) (constants.PaymentStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.payments[transactionRef]
	if !ok {
		return "", payment.ErrTransactionNotFound
	}
	return rec.status, nil
}

// Refund 登记退款，全额退款后状态变为 refunded
func (p *Provider) Refund(_ context.Context, transactionRef string, amount int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.payments[transactionRef]
	if !ok {
		return payment.ErrTransactionNotFound
	}
	if rec.status != constants.PaymentStatusCompleted || amount <= 0 || rec.refunded+amount > rec.amount {
		return payment.ErrRefundRejected
	}
	rec.refunded += amount
	if rec.refunded == rec.amount {
		rec.status = constants.PaymentStatusRefunded
	}
	return nil
}

// Confirm 运营确认收款或失败
func (p *Provider) Confirm(transactionRef string, status constants.PaymentStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.payments[transactionRef]
	if !ok {
		return payment.ErrTransactionNotFound
	}
	rec.status = status
	return nil
}
