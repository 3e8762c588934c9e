package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"SignalDeck/internal/domain/models"
	domrepo "SignalDeck/internal/domain/repository"
	pkgch "SignalDeck/pkg/clickhouse"
	applogger "SignalDeck/pkg/logger"
)

// CHHistoryArchive implements HistoryArchive backed by ClickHouse.
type CHHistoryArchive struct {
	client *pkgch.Client
	db     *sql.DB
	table  string
	logger *applogger.Logger
}

// NewCHHistoryArchive creates a ClickHouse history archive.
func NewCHHistoryArchive(client *pkgch.Client, table string, logger *applogger.Logger) domrepo.HistoryArchive {
	return &CHHistoryArchive{client: client, db: client.DB(), table: table, logger: logger}
}

// Init ensures the answered-signals table exists.
func (a *CHHistoryArchive) Init(ctx context.Context) error {
	stmt := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            signal_id   String,
            asset       String,
            direction   LowCardinality(String),
            confidence  Float64,
            entry_at    DateTime64(3),
            end_at      DateTime64(3),
            verdict     LowCardinality(String),
            language    LowCardinality(String),
            answered_at DateTime64(3)
        ) ENGINE = MergeTree()
        ORDER BY (answered_at, signal_id)
    `, a.table)
	return a.client.InitSchema(ctx, []string{stmt})
}

// Archive writes one answered signal row.
func (a *CHHistoryArchive) Archive(ctx context.Context, row models.AnsweredSignal) error {
	q := fmt.Sprintf(
		"INSERT INTO %s (signal_id, asset, direction, confidence, entry_at, end_at, verdict, language, answered_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		a.table,
	)
	answeredAt := row.AnsweredAt
	if answeredAt.IsZero() {
		answeredAt = time.Now().UTC()
	}
	_, err := a.db.ExecContext(ctx, q,
		row.SignalID,
		row.Asset,
		string(row.Direction),
		row.Confidence,
		row.EntryAt,
		row.EndAt,
		string(row.Verdict),
		row.Language,
		answeredAt,
	)
	if err != nil {
		a.logger.Error("history archive insert",
			applogger.String("signal_id", row.SignalID),
			applogger.Error(err),
		)
		return fmt.Errorf("archive answered signal: %w", err)
	}
	return nil
}

// Health performs connectivity check.
func (a *CHHistoryArchive) Health(ctx context.Context) error {
	return a.client.Health(ctx)
}

// Close closes the connection pool.
func (a *CHHistoryArchive) Close() error {
	return a.client.Close()
}

// NoopHistoryArchive is used when history archival is disabled.
type NoopHistoryArchive struct{}

func (NoopHistoryArchive) Init(ctx context.Context) error { return nil }
func (NoopHistoryArchive) Archive(ctx context.Context, _ models.AnsweredSignal) error {
	return nil
}
func (NoopHistoryArchive) Health(ctx context.Context) error { return nil }
func (NoopHistoryArchive) Close() error                     { return nil }
