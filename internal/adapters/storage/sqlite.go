package storage

// sqlite.go — export tabular de auditoría.
//
// Estrategia:
//   - `decisions`: espejo del journal JSONL con la línea cruda, para
//     queries por rango/mercado en orden de inserción (rowid).
//   - `ticks` / `spreads`: una fila por observación/ciclo — auditoría
//     del estimador, nunca se leen en el hot path.
//   - `orders`: reportes del execution collaborator, PK order_id.
//   - `positions`: posiciones abiertas/cerradas — rehidrata el risk
//     state tras un reinicio.

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/alejandrodnm/edgebot/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Espejo del journal, una fila por decisión, orden de inserción = rowid
CREATE TABLE IF NOT EXISTS decisions (
    id        TEXT PRIMARY KEY,
    ts        DATETIME NOT NULL,
    market_id TEXT NOT NULL,
    action    TEXT NOT NULL,
    reason    TEXT NOT NULL,
    raw       TEXT NOT NULL
);

-- Observaciones normalizadas de precio
CREATE TABLE IF NOT EXISTS ticks (
    ts     DATETIME NOT NULL,
    source TEXT NOT NULL,
    symbol TEXT NOT NULL,
    bid    REAL,
    ask    REAL,
    last   REAL,
    extra  TEXT,
    PRIMARY KEY (ts, source, symbol)
);

-- Un EdgeSample por ciclo
CREATE TABLE IF NOT EXISTS spreads (
    ts           DATETIME NOT NULL,
    market_id    TEXT NOT NULL,
    cex_mid      REAL NOT NULL,
    pm_yes       REAL NOT NULL,
    pm_no        REAL NOT NULL,
    edge_yes_bps REAL NOT NULL,
    edge_no_bps  REAL NOT NULL,
    lag_ms       INTEGER NOT NULL,
    extra        TEXT,
    PRIMARY KEY (ts, market_id)
);

-- Reportes del execution collaborator
CREATE TABLE IF NOT EXISTS orders (
    order_id  TEXT PRIMARY KEY,
    ts        DATETIME NOT NULL,
    venue     TEXT NOT NULL,
    market_id TEXT NOT NULL,
    side      TEXT NOT NULL,
    price     REAL NOT NULL,
    size_usd  REAL NOT NULL,
    status    TEXT NOT NULL,
    extra     TEXT
);

CREATE TABLE IF NOT EXISTS positions (
    id           TEXT PRIMARY KEY,
    market_id    TEXT NOT NULL,
    side         TEXT NOT NULL,
    size_usd     REAL NOT NULL,
    entry_price  REAL NOT NULL,
    opened_at    DATETIME NOT NULL,
    status       TEXT NOT NULL DEFAULT 'open',
    realized_pnl REAL NOT NULL DEFAULT 0,
    closed_at    DATETIME,
    decision_id  TEXT
);

CREATE INDEX IF NOT EXISTS idx_decisions_ts     ON decisions(ts);
CREATE INDEX IF NOT EXISTS idx_decisions_market ON decisions(market_id);
CREATE INDEX IF NOT EXISTS idx_spreads_market   ON spreads(market_id);
CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status);
CREATE INDEX IF NOT EXISTS idx_positions_market ON positions(market_id);
`

// SQLiteStore implementa ports.AuditStore y el espejo de decisiones del
// journal usando SQLite (pure Go, sin CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada y aplica
// el schema. Si el schema no se puede aplicar, el arranque aborta — el
// sistema no corre sin auditoría escribible.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// InsertDecision espeja una entrada del journal con su línea cruda.
func (s *SQLiteStore) InsertDecision(ctx context.Context, d domain.Decision, raw []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decisions (id, ts, market_id, action, reason, raw)
		VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.Timestamp.UTC().Format(time.RFC3339Nano), d.MarketID,
		string(d.Action), d.Reason, string(raw),
	)
	if err != nil {
		return fmt.Errorf("storage.InsertDecision: %w", err)
	}
	return nil
}

// DecisionsByMarket devuelve las líneas crudas de un mercado en orden de
// inserción.
func (s *SQLiteStore) DecisionsByMarket(ctx context.Context, marketID string) ([][]byte, error) {
	return s.rawDecisions(ctx,
		`SELECT raw FROM decisions WHERE market_id = ? ORDER BY rowid`, marketID)
}

// DecisionsByRange devuelve las líneas crudas del rango [from, to] en
// orden de inserción, byte-idénticas a lo escrito.
func (s *SQLiteStore) DecisionsByRange(ctx context.Context, from, to time.Time) ([][]byte, error) {
	return s.rawDecisions(ctx,
		`SELECT raw FROM decisions WHERE ts BETWEEN ? AND ? ORDER BY rowid`,
		from.UTC().Format(time.RFC3339Nano), to.UTC().Format(time.RFC3339Nano))
}

func (s *SQLiteStore) rawDecisions(ctx context.Context, query string, args ...any) ([][]byte, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.rawDecisions: query: %w", err)
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("storage.rawDecisions: scan: %w", err)
		}
		out = append(out, []byte(raw))
	}
	return out, rows.Err()
}

// SaveTick persiste una observación normalizada. Replays del mismo tick
// (misma PK) se ignoran — la normalización es idempotente.
func (s *SQLiteStore) SaveTick(ctx context.Context, t domain.Tick) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO ticks (ts, source, symbol, bid, ask, last, extra)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Timestamp.UTC().Format(time.RFC3339Nano), t.Source, t.Symbol,
		nullPrice(t.Bid), nullPrice(t.Ask), nullPrice(t.Last), extraString(t.Extra),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveTick: %w", err)
	}
	return nil
}

// SaveSpread persiste el EdgeSample del ciclo (mapea 1:1 a la tabla spreads).
func (s *SQLiteStore) SaveSpread(ctx context.Context, e domain.EdgeSample) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO spreads (ts, market_id, cex_mid, pm_yes, pm_no, edge_yes_bps, edge_no_bps, lag_ms, extra)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Timestamp.UTC().Format(time.RFC3339Nano), e.MarketID,
		e.ReferenceMid, e.MarketYes, e.MarketNo,
		e.EdgeYesBps, e.EdgeNoBps, e.LagMs, e.Reason,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveSpread: %w", err)
	}
	return nil
}

// SaveOrder registra (o actualiza) el reporte de una orden. El boundary
// es at-least-once: el mismo order_id puede reportarse varias veces con
// estados distintos — gana el último.
func (s *SQLiteStore) SaveOrder(ctx context.Context, venue string, order domain.PlacedOrder, req domain.PlaceOrderRequest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (order_id, ts, venue, market_id, side, price, size_usd, status, extra)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(order_id) DO UPDATE SET status = excluded.status, price = excluded.price, size_usd = excluded.size_usd`,
		order.OrderID, order.PlacedAt.UTC().Format(time.RFC3339Nano), venue,
		req.MarketID, string(req.Side), order.FilledPrice, order.FilledUSD,
		string(order.Status), req.ClientID,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveOrder: %w", err)
	}
	return nil
}

// SavePosition inserta una posición recién abierta.
func (s *SQLiteStore) SavePosition(ctx context.Context, p domain.Position) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions (id, market_id, side, size_usd, entry_price, opened_at, status, realized_pnl, decision_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.MarketID, string(p.Side), p.SizeUSD, p.EntryPrice,
		p.OpenedAt.UTC().Format(time.RFC3339Nano), string(p.Status), p.RealizedPnL, p.DecisionID,
	)
	if err != nil {
		return fmt.Errorf("storage.SavePosition: %w", err)
	}
	return nil
}

// ClosePosition marca la posición cerrada (o voided) con su PnL realizado.
func (s *SQLiteStore) ClosePosition(ctx context.Context, p domain.Position) error {
	var closedAt any
	if p.ClosedAt != nil {
		closedAt = p.ClosedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE positions SET status = ?, realized_pnl = ?, closed_at = ? WHERE id = ?`,
		string(p.Status), p.RealizedPnL, closedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("storage.ClosePosition: %w", err)
	}
	return nil
}

// GetOpenPositions devuelve las posiciones abiertas — rehidratación del
// risk state tras un reinicio.
func (s *SQLiteStore) GetOpenPositions(ctx context.Context) ([]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, market_id, side, size_usd, entry_price, opened_at, status, realized_pnl, decision_id
		FROM positions WHERE status = 'open' ORDER BY opened_at`)
	if err != nil {
		return nil, fmt.Errorf("storage.GetOpenPositions: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Position
	for rows.Next() {
		var p domain.Position
		var side, status, openedAt string
		if err := rows.Scan(&p.ID, &p.MarketID, &side, &p.SizeUSD, &p.EntryPrice,
			&openedAt, &status, &p.RealizedPnL, &p.DecisionID); err != nil {
			return nil, fmt.Errorf("storage.GetOpenPositions: scan: %w", err)
		}
		p.Side = domain.Side(side)
		p.Status = domain.PositionStatus(status)
		p.OpenedAt, _ = time.Parse(time.RFC3339Nano, openedAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

// ClosedPositionsSince devuelve las posiciones cerradas o anuladas desde
// el instante dado — insumo del resumen de performance.
func (s *SQLiteStore) ClosedPositionsSince(ctx context.Context, since time.Time) ([]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, market_id, side, size_usd, entry_price, opened_at, status, realized_pnl, closed_at, decision_id
		FROM positions WHERE status != 'open' AND closed_at >= ? ORDER BY closed_at`,
		since.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("storage.ClosedPositionsSince: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Position
	for rows.Next() {
		var p domain.Position
		var side, status, openedAt string
		var closedAt sql.NullString
		if err := rows.Scan(&p.ID, &p.MarketID, &side, &p.SizeUSD, &p.EntryPrice,
			&openedAt, &status, &p.RealizedPnL, &closedAt, &p.DecisionID); err != nil {
			return nil, fmt.Errorf("storage.ClosedPositionsSince: scan: %w", err)
		}
		p.Side = domain.Side(side)
		p.Status = domain.PositionStatus(status)
		p.OpenedAt, _ = time.Parse(time.RFC3339Nano, openedAt)
		if closedAt.Valid {
			t, _ := time.Parse(time.RFC3339Nano, closedAt.String)
			p.ClosedAt = &t
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

func nullPrice(p domain.Price) any {
	if !p.Valid {
		return nil
	}
	return p.Value
}

func extraString(extra map[string]string) any {
	if len(extra) == 0 {
		return nil
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := ""
	for _, k := range keys {
		if s != "" {
			s += ";"
		}
		s += k + "=" + extra[k]
	}
	return s
}
