package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pot-code/lessonrelay/internal/domain"
	"github.com/pot-code/lessonrelay/internal/infrastructure/driver"
)

const snapshotRowID = 1

// SQLBackend keeps the document as a single row of the lessonrelay_snapshot table
type SQLBackend struct {
	conn   driver.ITransactionalDB
	driver string
}

var _ domain.SnapshotBackend = &SQLBackend{}

// NewSQLBackend driverName is mysql or postgres
func NewSQLBackend(conn driver.ITransactionalDB, driverName string) *SQLBackend {
	return &SQLBackend{conn: conn, driver: driverName}
}

// EnsureSchema create the snapshot table if it does not exist
func (sb *SQLBackend) EnsureSchema(ctx context.Context) error {
	documentType := "TEXT"
	if sb.driver == "mysql" {
		documentType = "LONGTEXT"
	}
	_, err := sb.conn.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS lessonrelay_snapshot (
    id INT PRIMARY KEY,
    document %s NOT NULL,
    updated_at BIGINT NOT NULL
)`, documentType))
	return err
}

func (sb *SQLBackend) Load(ctx context.Context) (*domain.Snapshot, error) {
	rows, err := sb.conn.QueryContext(ctx, `SELECT document FROM lessonrelay_snapshot WHERE id = $1`, snapshotRowID)
	if err != nil {
		return nil, err
	}
	var (
		document string
		found    bool
	)
	if rows.Next() {
		if err := rows.Scan(&document); err != nil {
			rows.Close()
			return nil, err
		}
		found = true
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	if !found {
		snap := domain.NewSnapshot()
		if err := sb.Save(ctx, snap); err != nil {
			return nil, err
		}
		return snap, nil
	}
	return decodeSnapshot([]byte(document))
}

func (sb *SQLBackend) Save(ctx context.Context, snap *domain.Snapshot) (err error) {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	tx, err := sb.conn.BeginTx(ctx, &driver.TxOptions{
		Isolation:      sql.LevelReadCommitted,
		AccessMode:     driver.AccessReadWrite,
		DeferrableMode: driver.NotDeferrable,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM lessonrelay_snapshot WHERE id = $1`, snapshotRowID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `
INSERT INTO lessonrelay_snapshot (id, document, updated_at)
VALUES ($1, $2, $3)`, snapshotRowID, string(data), time.Now().Unix()); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (sb *SQLBackend) Reset(ctx context.Context) error {
	return sb.Save(ctx, domain.NewSnapshot())
}
