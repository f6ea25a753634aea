package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"binaryTradeBot/internal/domain"
	"binaryTradeBot/internal/ports"
)

// Repository implements the ports.HistoryRepository interface using SQLite.
// It logs settled outcomes so the client keeps its display history across
// restarts; the settlement authority remains the canonical store.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/trade_client.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Open database connection
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000") // WAL mode for better concurrency
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Set connection pool settings (important for SQLite)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS settled_trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		trade_id TEXT NOT NULL UNIQUE,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		amount TEXT NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL NOT NULL,
		won INTEGER NOT NULL,
		profit_percentage INTEGER NOT NULL,
		profit_amount TEXT NOT NULL,
		payout TEXT NOT NULL,
		source TEXT NOT NULL,
		duration_seconds INTEGER NOT NULL,
		start_time TIMESTAMP NOT NULL,
		settled_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_settled_trades_symbol_settled_at ON settled_trades (symbol, settled_at);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// Append saves an accepted outcome and returns its assigned row id.
func (r *Repository) Append(ctx context.Context, outcome *domain.SettlementOutcome, settledAt time.Time) (int64, error) {
	const query = `
	INSERT INTO settled_trades (trade_id, symbol, direction, amount, entry_price, exit_price,
	                            won, profit_percentage, profit_amount, payout, source, duration_seconds, start_time, settled_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		outcome.TradeID, outcome.Symbol, outcome.Direction, outcome.Amount.String(),
		outcome.EntryPrice, outcome.ExitPrice, outcome.Won, outcome.ProfitPercentage,
		outcome.ProfitAmount.String(), outcome.Payout.String(), outcome.Source,
		outcome.DurationSeconds, outcome.StartTime, settledAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return 0, fmt.Errorf("trade %s already recorded: %w", outcome.TradeID, ports.ErrDuplicateEntry)
		}
		return 0, fmt.Errorf("failed to insert settled trade %s: %w", outcome.TradeID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for trade %s: %w", outcome.TradeID, err)
	}
	r.logger.Debug(ctx, "Settled trade recorded", map[string]interface{}{"tradeID": outcome.TradeID, "won": outcome.Won})
	return id, nil
}

// FindRecent retrieves the most recent settled trades for a symbol, up to a limit.
func (r *Repository) FindRecent(ctx context.Context, symbol string, limit int) ([]*domain.SettlementOutcome, error) {
	const query = `
	SELECT trade_id, symbol, direction, amount, entry_price, exit_price,
	       won, profit_percentage, profit_amount, payout, source, duration_seconds, start_time
	FROM settled_trades
	WHERE symbol = ?
	ORDER BY settled_at DESC
	LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query settled trades for symbol %s: %w", symbol, err)
	}
	defer rows.Close()

	var outcomes []*domain.SettlementOutcome
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settled trades for symbol %s: %w", symbol, err)
	}
	return outcomes, nil
}

// TotalProfit sums the profit over all settled trades.
func (r *Repository) TotalProfit(ctx context.Context) (decimal.Decimal, error) {
	const query = `SELECT COALESCE(profit_amount, '0') FROM settled_trades`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query settled trade profits: %w", err)
	}
	defer rows.Close()

	// Decimal amounts are stored as TEXT, so the sum happens here rather
	// than in SQL to avoid float accumulation.
	total := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan profit amount: %w", err)
		}
		profit, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("unparsable stored profit amount %q: %w", raw, err)
		}
		total = total.Add(profit)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("error iterating settled trade profits: %w", err)
	}
	return total, nil
}

func scanOutcome(rows *sql.Rows) (*domain.SettlementOutcome, error) {
	var (
		o                          domain.SettlementOutcome
		amount, profit, payout     string
		direction, source, tradeID string
	)
	err := rows.Scan(&tradeID, &o.Symbol, &direction, &amount, &o.EntryPrice, &o.ExitPrice,
		&o.Won, &o.ProfitPercentage, &profit, &payout, &source, &o.DurationSeconds, &o.StartTime)
	if err != nil {
		return nil, fmt.Errorf("failed to scan settled trade row: %w", err)
	}
	o.TradeID = tradeID
	o.Direction = domain.Direction(direction)
	o.Source = domain.OutcomeSource(source)
	if o.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("unparsable stored amount %q: %w", amount, err)
	}
	if o.ProfitAmount, err = decimal.NewFromString(profit); err != nil {
		return nil, fmt.Errorf("unparsable stored profit %q: %w", profit, err)
	}
	if o.Payout, err = decimal.NewFromString(payout); err != nil {
		return nil, fmt.Errorf("unparsable stored payout %q: %w", payout, err)
	}
	return &o, nil
}
