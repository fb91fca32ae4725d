package postgres

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"tickrouter/internal/feed/model"
)

// SaveTick implements the pipeline's persistence sink: convert and insert one
// routed-tick snapshot. A duplicate (symbol, source, timestamp) means no new
// tick arrived since the last snapshot cycle and is silently skipped.
func (p *PostgresClient) SaveTick(ctx context.Context, tick model.RoutedTick) error {
	return p.InsertTick(ctx, ToTickRecord(tick))
}

func (p *PostgresClient) InsertTick(ctx context.Context, record *TickRecord) error {
	tx := p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "symbol"},
			{Name: "source_id"},
			{Name: "timestamp"},
		},
		DoNothing: true,
	}).Create(record)

	return tx.Error
}

func (p *PostgresClient) GetLatestTick(ctx context.Context, symbol string) (*TickRecord, error) {
	var record TickRecord
	err := p.DB.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("timestamp DESC").
		First(&record).Error

	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (p *PostgresClient) GetTicks(ctx context.Context, symbol string, from, to time.Time) ([]TickRecord, error) {
	var records []TickRecord
	err := p.DB.WithContext(ctx).
		Where("symbol = ? AND timestamp >= ? AND timestamp < ?", symbol, from, to).
		Order("timestamp ASC").
		Find(&records).Error

	if err != nil {
		return nil, err
	}
	return records, nil
}

func (p *PostgresClient) DeleteOldTicks(ctx context.Context, before time.Time) error {
	return p.DB.WithContext(ctx).
		Where("timestamp < ?", before).
		Delete(&TickRecord{}).Error
}
