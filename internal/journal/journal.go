// Package journal keeps an append-only record of confirmed trade events in
// sqlite. It is observability only: journal failures never influence trading
// state.
package journal

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Event kinds written by the engine.
const (
	KindEntry              = "entry"
	KindAdd                = "add"
	KindTakeProfit         = "take_profit"
	KindTrailingStop       = "trailing_stop"
	KindTimeExit           = "time_exit"
	KindBootstrapRebalance = "bootstrap_rebalance"
)

// Event is one confirmed order submission or exit.
type Event struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Symbol    string    `gorm:"index" json:"symbol"`
	Kind      string    `gorm:"index" json:"kind"`
	Side      string    `json:"side"`
	Price     float64   `json:"price"`
	Quantity  float64   `json:"quantity"`
	Regime    string    `json:"regime"`
	PnL       float64   `json:"pnl"`
}

type Journal struct {
	db *gorm.DB
}

// Open creates or migrates the sqlite journal at path.
func Open(path string) (*Journal, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("journal: opening %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Event{}); err != nil {
		return nil, fmt.Errorf("journal: migrating: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Record(evt Event) error {
	if j == nil || j.db == nil {
		return nil
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now().UTC()
	}
	if err := j.db.Create(&evt).Error; err != nil {
		return fmt.Errorf("journal: insert: %w", err)
	}
	return nil
}

// Recent returns the newest events, newest first.
func (j *Journal) Recent(limit int) ([]Event, error) {
	if j == nil || j.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	var out []Event
	if err := j.db.Order("id desc").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	return out, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
