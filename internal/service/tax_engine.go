package service

import (
	"strings"

	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/models"

	"github.com/shopspring/decimal"
)

// TaxSplit 含税金额拆分结果
type TaxSplit struct {
	Net int64
	Tax int64
}

// LineTax 订单行税额计算结果；UnitGross 为实际收取的单价
type LineTax struct {
	UnitGross int64
	UnitNet   int64
	LineGross int64
	LineNet   int64
	TaxAmount int64
}

// SplitGrossToNetTax 由含税金额倒算净额与税额，净额四舍五入到最小货币单位
func SplitGrossToNetTax(gross int64, rate decimal.Decimal) TaxSplit {
	if rate.IsZero() {
		return TaxSplit{Net: gross, Tax: 0}
	}
	net := decimal.NewFromInt(gross).Div(decimal.NewFromInt(1).Add(rate)).Round(0).IntPart()
	return TaxSplit{Net: net, Tax: gross - net}
}

// NetPriceIfExempt 免税顾客实际支付的单价
func NetPriceIfExempt(gross int64, rate decimal.Decimal) int64 {
	return SplitGrossToNetTax(gross, rate).Net
}

// CalculateLineTax 计算订单行金额；免税或零税率时按净价收取
func CalculateLineTax(unitGross int64, quantity int, rate decimal.Decimal, exempt bool) LineTax {
	qty := int64(quantity)
	unitNet := SplitGrossToNetTax(unitGross, rate).Net
	if exempt || rate.IsZero() {
		lineNet := unitNet * qty
		return LineTax{
			UnitGross: unitNet,
			UnitNet:   unitNet,
			LineGross: lineNet,
			LineNet:   lineNet,
			TaxAmount: 0,
		}
	}
	lineGross := unitGross * qty
	lineNet := unitNet * qty
	return LineTax{
		UnitGross: unitGross,
		UnitNet:   unitNet,
		LineGross: lineGross,
		LineNet:   lineNet,
		TaxAmount: lineGross - lineNet,
	}
}

// IsTaxExempt 已认证的 B2B 顾客且填写了税号时免税；游客不免税
func IsTaxExempt(customer *models.Customer) bool {
	if customer == nil {
		return false
	}
	return customer.B2BStatus == constants.B2BStatusApproved && strings.TrimSpace(customer.VatID) != ""
}

func applyLineTax(line *models.OrderLine, result LineTax) {
	line.UnitPrice = result.UnitGross
	line.UnitPriceNet = result.UnitNet
	line.LineTotal = result.LineGross
	line.LineTotalNet = result.LineNet
	line.TaxAmount = result.TaxAmount
}
