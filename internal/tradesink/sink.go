// Package tradesink persists emitted trades to an external SQL store
// (§6's trade sink contract). It is the leader-only, best-effort egress
// path: loss of egress never affects applied state, since the full
// trade sequence can always be reconstructed by replaying the Raft log
// (§4.7). The prepared-statement, idempotent-upsert shape here follows
// the pack's GOLANG-ORDER-MATCHING-SYSTEM Engine, generalized from
// database/sql to sqlx for named-parameter ergonomics and onto gorm for
// schema migration, per the domain-stack expansion.
package tradesink

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/abdoElHodaky/tradSys/internal/engine/types"
)

// tradeRow is the gorm model used only for schema migration; writes go
// through the sqlx prepared statement below for throughput.
type tradeRow struct {
	TradeID        uint64 `gorm:"primaryKey"`
	TicketID       uint64 `gorm:"index"`
	Symbol         string `gorm:"index"`
	OrderID        string `gorm:"index"`
	AccountID      string
	MatchOrderID   string
	MatchAccountID string
	Side           string
	IsMaker        bool
	Price          string
	Quantity       string
	Amount         string
	Fee            string
	MatchTimeNanos int64 `gorm:"index"`
}

func (tradeRow) TableName() string { return "trades" }

// Sink writes Trade records produced by PlaceOrder apply results. A
// trade_id is globally unique and monotonic (§4.4), so writes are
// idempotent upserts keyed on it: a sink retrying after a partial
// failure never double-counts a trade.
type Sink struct {
	db     *sqlx.DB
	log    *zap.Logger
	insert *sqlx.NamedStmt
}

// Open connects to dsn, runs the trade table's gorm migration, and
// prepares the insert statement this sink reuses for every write.
func Open(dsn string, log *zap.Logger) (*Sink, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open gorm connection: %w", err)
	}
	if err := gdb.AutoMigrate(&tradeRow{}); err != nil {
		return nil, fmt.Errorf("migrate trades table: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql.DB: %w", err)
	}

	db := sqlx.NewDb(sqlDB, "postgres")
	stmt, err := db.PrepareNamed(`
		INSERT INTO trades (
			trade_id, ticket_id, symbol, order_id, account_id,
			match_order_id, match_account_id, side, is_maker,
			price, quantity, amount, fee, match_time_nanos
		) VALUES (
			:trade_id, :ticket_id, :symbol, :order_id, :account_id,
			:match_order_id, :match_account_id, :side, :is_maker,
			:price, :quantity, :amount, :fee, :match_time_nanos
		) ON CONFLICT (trade_id) DO NOTHING
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare trade insert: %w", err)
	}

	return &Sink{db: db, log: log, insert: stmt}, nil
}

// Write persists one half-trade. Callers on the egress goroutine treat
// a returned error as log-and-continue, never as a reason to stall or
// re-derive applied state.
func (s *Sink) Write(ctx context.Context, t *types.Trade) error {
	_, err := s.insert.ExecContext(ctx, map[string]interface{}{
		"trade_id":         t.TradeID,
		"ticket_id":        t.TicketID,
		"symbol":           t.Symbol,
		"order_id":         t.OrderID,
		"account_id":       t.AccountID,
		"match_order_id":   t.MatchOrderID,
		"match_account_id": t.MatchAccountID,
		"side":             string(t.Side),
		"is_maker":         t.IsMaker,
		"price":            t.Price.String(),
		"quantity":         t.Quantity.String(),
		"amount":           t.Amount.String(),
		"fee":              t.Fee.String(),
		"match_time_nanos": t.MatchTimeNanos,
	})
	if err != nil {
		return fmt.Errorf("insert trade %d: %w", t.TradeID, err)
	}
	return nil
}

// Close releases the underlying connection.
func (s *Sink) Close() error {
	return s.db.Close()
}
