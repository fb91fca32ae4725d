package postgres

import (
	"time"

	"github.com/shopspring/decimal"

	"tickrouter/internal/feed/model"
)

// TickRecord is one persisted routed-tick snapshot.
type TickRecord struct {
	ID uint `gorm:"primaryKey"`

	// unique index
	Symbol    string    `gorm:"type:text;not null;index:idx_tick_symbol;index:idx_symbol_source_ts,unique"`
	SourceID  string    `gorm:"type:text;not null;index:idx_symbol_source_ts,unique"`
	Timestamp time.Time `gorm:"not null;index:idx_symbol_source_ts,unique"`

	AssetClass string `gorm:"type:varchar(10);not null"`

	Price  decimal.Decimal `gorm:"type:numeric;not null"`
	Volume decimal.Decimal `gorm:"type:numeric;not null"`

	Open          *decimal.Decimal `gorm:"type:numeric"`
	High          *decimal.Decimal `gorm:"type:numeric"`
	Low           *decimal.Decimal `gorm:"type:numeric"`
	PreviousClose *decimal.Decimal `gorm:"type:numeric"`

	QualityScore  int    `gorm:"not null"`
	IsRealtime    bool   `gorm:"not null"`
	RoutingStatus string `gorm:"type:varchar(20);not null"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (TickRecord) TableName() string {
	return "tick_snapshot"
}

// ToTickRecord converts a routed tick into a TickRecord for DB insertion.
func ToTickRecord(tick model.RoutedTick) *TickRecord {
	return &TickRecord{
		Symbol:        tick.Symbol,
		SourceID:      tick.SourceID,
		Timestamp:     tick.Timestamp,
		AssetClass:    string(tick.AssetClass),
		Price:         tick.Price,
		Volume:        tick.Volume,
		Open:          tick.Open,
		High:          tick.High,
		Low:           tick.Low,
		PreviousClose: tick.PreviousClose,
		QualityScore:  tick.QualityScore,
		IsRealtime:    tick.IsRealtime,
		RoutingStatus: string(tick.RoutingStatus),
	}
}
