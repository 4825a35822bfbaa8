package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"marketplace-sync-service/internal/config"
	"marketplace-sync-service/internal/logger"
)

// MySQLStore keeps documents as JSON rows keyed by (collection, id).
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(cfg config.DatabaseConfig) (*MySQLStore, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	s := &MySQLStore{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Log.Info("Connected to document store",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database),
	)

	return s, nil
}

func (s *MySQLStore) ensureSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection VARCHAR(64)  NOT NULL,
	id         VARCHAR(128) NOT NULL,
	data       JSON         NOT NULL,
	PRIMARY KEY (collection, id)
);
CREATE TABLE IF NOT EXISTS sync_runs (
	id              VARCHAR(36)  NOT NULL PRIMARY KEY,
	tenant_id       VARCHAR(128) NOT NULL,
	kind            VARCHAR(32)  NOT NULL,
	started_at      DATETIME     NOT NULL,
	completed_at    DATETIME     NULL,
	items_fetched   INT          NOT NULL DEFAULT 0,
	new_records     INT          NOT NULL DEFAULT 0,
	updated_records INT          NOT NULL DEFAULT 0,
	error_count     INT          NOT NULL DEFAULT 0,
	status          VARCHAR(16)  NOT NULL,
	message         TEXT         NULL
);`
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

func (s *MySQLStore) Close() error {
	return s.db.Close()
}

// execTx executes fn within a transaction.
func (s *MySQLStore) execTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %v, rb err: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

func (s *MySQLStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	doc := Document{ID: id}
	if err := json.Unmarshal(raw, &doc.Data); err != nil {
		return nil, fmt.Errorf("corrupt document %s/%s: %w", collection, id, err)
	}
	return &doc, nil
}

func (s *MySQLStore) Query(ctx context.Context, collection string, filters []Filter, limit int) ([]Document, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, data FROM documents WHERE collection = ?`)
	args := []any{collection}

	for _, f := range filters {
		sb.WriteString(` AND JSON_UNQUOTE(JSON_EXTRACT(data, ?)) = ?`)
		args = append(args, `$."`+f.Field+`"`, f.Value)
	}
	if limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var raw []byte
		if err := rows.Scan(&doc.ID, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &doc.Data); err != nil {
			return nil, fmt.Errorf("corrupt document %s/%s: %w", collection, doc.ID, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *MySQLStore) BatchWrite(ctx context.Context, collection string, writes []Write) error {
	if len(writes) == 0 {
		return nil
	}
	if len(writes) > BatchLimit {
		return fmt.Errorf("batch of %d exceeds limit %d", len(writes), BatchLimit)
	}

	return s.execTx(ctx, func(tx *sql.Tx) error {
		for _, w := range writes {
			raw, err := json.Marshal(w.Data)
			if err != nil {
				return fmt.Errorf("failed to encode document %s: %w", w.ID, err)
			}
			var stmt string
			if w.Merge {
				stmt = `INSERT INTO documents (collection, id, data) VALUES (?, ?, CAST(? AS JSON))
					ON DUPLICATE KEY UPDATE data = JSON_MERGE_PATCH(data, VALUES(data))`
			} else {
				stmt = `INSERT INTO documents (collection, id, data) VALUES (?, ?, CAST(? AS JSON))
					ON DUPLICATE KEY UPDATE data = VALUES(data)`
			}
			if _, err := tx.ExecContext(ctx, stmt, collection, w.ID, raw); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *MySQLStore) BatchDelete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) > BatchLimit {
		return fmt.Errorf("batch of %d exceeds limit %d", len(ids), BatchLimit)
	}

	return s.execTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM documents WHERE collection = ? AND id = ?`,
				collection, id,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *MySQLStore) CreateRun(ctx context.Context, run *RunRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_runs
			(id, tenant_id, kind, started_at, completed_at, items_fetched,
			 new_records, updated_records, error_count, status, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.TenantID, run.Kind, run.StartedAt, run.CompletedAt,
		run.ItemsFetched, run.NewRecords, run.UpdatedRecords, run.ErrorCount,
		run.Status, run.Message,
	)
	return err
}

func (s *MySQLStore) UpdateRun(ctx context.Context, run *RunRecord) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sync_runs SET
			completed_at = ?, items_fetched = ?, new_records = ?,
			updated_records = ?, error_count = ?, status = ?, message = ?
		 WHERE id = ?`,
		run.CompletedAt, run.ItemsFetched, run.NewRecords, run.UpdatedRecords,
		run.ErrorCount, run.Status, run.Message, run.ID,
	)
	return err
}

func (s *MySQLStore) ListRuns(ctx context.Context, limit, offset int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, kind, started_at, completed_at, items_fetched,
			new_records, updated_records, error_count, status, message
		 FROM sync_runs ORDER BY started_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		var run RunRecord
		if err := rows.Scan(
			&run.ID, &run.TenantID, &run.Kind, &run.StartedAt, &run.CompletedAt,
			&run.ItemsFetched, &run.NewRecords, &run.UpdatedRecords,
			&run.ErrorCount, &run.Status, &run.Message,
		); err != nil {
			return nil, err
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}
