package service

import (
	"math"
	"time"

	"github.com/dujiao-next/checkout/internal/models"
	"github.com/dujiao-next/checkout/internal/repository"

	"gorm.io/gorm"
)

const (
	// UnlimitedStock 不跟踪库存的规格的可售数量
	UnlimitedStock = math.MaxInt32
	// DefaultReservationTTL 默认预占时长
	DefaultReservationTTL = 15 * time.Minute
)

// ReservationLedger 库存预占账本
type ReservationLedger struct {
	reservationRepo repository.StockReservationRepository
	variantRepo     repository.ProductVariantRepository
	ttl             time.Duration
	now             func() time.Time
}

// NewReservationLedger 创建预占账本
func NewReservationLedger(reservationRepo repository.StockReservationRepository, variantRepo repository.ProductVariantRepository, ttl time.Duration) *ReservationLedger {
	if ttl <= 0 {
		ttl = DefaultReservationTTL
	}
	return &ReservationLedger{
		reservationRepo: reservationRepo,
		variantRepo:     variantRepo,
		ttl:             ttl,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithClock 替换时钟
func (l *ReservationLedger) WithClock(now func() time.Time) *ReservationLedger {
	clone := *l
	if now != nil {
		clone.now = now
	}
	return &clone
}

// WithTx 绑定事务
func (l *ReservationLedger) WithTx(tx *gorm.DB) *ReservationLedger {
	if tx == nil {
		return l
	}
	clone := *l
	clone.reservationRepo = l.reservationRepo.WithTx(tx)
	clone.variantRepo = l.variantRepo.WithTx(tx)
	return &clone
}

// TTL 预占时长
func (l *ReservationLedger) TTL() time.Duration {
	return l.ttl
}

// Variant 读取规格（不加锁）
func (l *ReservationLedger) Variant(variantID uint) (*models.ProductVariant, error) {
	return l.variantRepo.GetByID(variantID)
}

// AvailableStock 可售库存 = 实物库存 - 有效预占（可排除指定订单）
func (l *ReservationLedger) AvailableStock(variantID, excludeOrderID uint) (int, error) {
	variant, err := l.variantRepo.GetByID(variantID)
	if err != nil {
		return 0, err
	}
	if variant == nil {
		return 0, ErrVariantNotFound
	}
	return l.availableFor(variant, excludeOrderID)
}

// LockAvailable 锁定规格行后计算可售库存，调用方须在同一事务内写入预占
func (l *ReservationLedger) LockAvailable(variantID, excludeOrderID uint) (*models.ProductVariant, int, error) {
	variant, err := l.variantRepo.GetByIDForUpdate(variantID)
	if err != nil {
		return nil, 0, err
	}
	if variant == nil {
		return nil, 0, ErrVariantNotFound
	}
	available, err := l.availableFor(variant, excludeOrderID)
	if err != nil {
		return nil, 0, err
	}
	return variant, available, nil
}

func (l *ReservationLedger) availableFor(variant *models.ProductVariant, excludeOrderID uint) (int, error) {
	if !variant.TrackInventory {
		return UnlimitedStock, nil
	}
	reserved, err := l.reservationRepo.SumActiveQuantity(variant.ID, excludeOrderID, l.now())
	if err != nil {
		return 0, err
	}
	return variant.Stock - reserved, nil
}

// Reserve 为新订单行创建预占
func (l *ReservationLedger) Reserve(variantID, orderID, lineID uint, quantity int) (*models.StockReservation, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	reservation := &models.StockReservation{
		VariantID:   variantID,
		OrderID:     orderID,
		OrderLineID: lineID,
		Quantity:    quantity,
		ExpiresAt:   l.now().Add(l.ttl),
	}
	if err := l.reservationRepo.Create(reservation); err != nil {
		return nil, err
	}
	return reservation, nil
}

// UpdateQuantity 更新预占数量并续期
func (l *ReservationLedger) UpdateQuantity(lineID uint, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	_, err := l.reservationRepo.UpdateByLine(lineID, quantity, l.now().Add(l.ttl))
	return err
}

// Upsert 订单行已有预占则更新，否则新建（预占可能已被清理任务删除）
func (l *ReservationLedger) Upsert(variantID, orderID, lineID uint, quantity int) error {
	existing, err := l.reservationRepo.GetByLineID(lineID)
	if err != nil {
		return err
	}
	if existing == nil {
		_, err := l.Reserve(variantID, orderID, lineID, quantity)
		return err
	}
	return l.UpdateQuantity(lineID, quantity)
}

// Release 删除订单行预占
func (l *ReservationLedger) Release(lineID uint) error {
	_, err := l.reservationRepo.DeleteByLine(lineID)
	return err
}

// ReleaseForOrder 删除订单全部预占
func (l *ReservationLedger) ReleaseForOrder(orderID uint) (int64, error) {
	return l.reservationRepo.DeleteByOrder(orderID)
}

// ActiveLineIDs 订单中仍有效（未过期）预占的订单行
func (l *ReservationLedger) ActiveLineIDs(orderID uint) (map[uint]bool, error) {
	rows, err := l.reservationRepo.ListByOrder(orderID)
	if err != nil {
		return nil, err
	}
	now := l.now()
	active := make(map[uint]bool, len(rows))
	for _, row := range rows {
		if row.ExpiresAt.After(now) {
			active[row.OrderLineID] = true
		}
	}
	return active, nil
}

// ExtendForOrder 将订单全部预占延长至 now+extra
func (l *ReservationLedger) ExtendForOrder(orderID uint, extra time.Duration) (int64, error) {
	if extra <= 0 {
		extra = l.ttl
	}
	return l.reservationRepo.ExtendByOrder(orderID, l.now().Add(extra))
}

// CleanupExpired 删除已过期预占，仅为存储整理
func (l *ReservationLedger) CleanupExpired() (int64, error) {
	return l.reservationRepo.DeleteExpired(l.now())
}
