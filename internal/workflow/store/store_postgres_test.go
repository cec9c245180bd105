package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lostfound/internal/workflow/models"
	id "lostfound/pkg/domain"
)

// execRecorder is a database/sql driver that records statements and reports
// a fixed RowsAffected, enough to check how SaveClaim reads insert results.
type execRecorder struct {
	mu       sync.Mutex
	queries  []string
	affected int64
}

func (r *execRecorder) Open(string) (driver.Conn, error) { return &recorderConn{r: r}, nil }

func (r *execRecorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queries) == 0 {
		return ""
	}
	return r.queries[len(r.queries)-1]
}

type recorderConn struct{ r *execRecorder }

func (c *recorderConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}
func (c *recorderConn) Close() error              { return nil }
func (c *recorderConn) Begin() (driver.Tx, error) { return nil, errors.New("tx not supported") }

func (c *recorderConn) CheckNamedValue(*driver.NamedValue) error { return nil }

func (c *recorderConn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	c.r.queries = append(c.r.queries, query)
	return driver.RowsAffected(c.r.affected), nil
}

func newRecordingPostgres(t *testing.T, affected int64) (*PostgresStore, *execRecorder) {
	t.Helper()
	rec := &execRecorder{affected: affected}
	db := sql.OpenDB(recorderConnector{rec})
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(db), rec
}

type recorderConnector struct{ r *execRecorder }

func (c recorderConnector) Connect(context.Context) (driver.Conn, error) { return c.r.Open("") }
func (c recorderConnector) Driver() driver.Driver                        { return c.r }

func pendingClaim() *models.Claim {
	return &models.Claim{
		ID:         id.NewClaimID(),
		ItemID:     id.NewItemID(),
		ClaimantID: id.NewUserID(),
		Code:       "LF-ABCD1234",
		Answers:    []string{"blue"},
		Status:     models.ClaimPending,
		CreatedAt:  time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC),
	}
}

func TestPostgresSaveClaimCodeCollision(t *testing.T) {
	ctx := context.Background()

	t.Run("inserted row", func(t *testing.T) {
		st, rec := newRecordingPostgres(t, 1)
		require.NoError(t, st.SaveClaim(ctx, pendingClaim()))
		assert.Contains(t, rec.last(), "ON CONFLICT (code) DO NOTHING")
	})

	t.Run("taken code skips the insert without a unique violation", func(t *testing.T) {
		st, _ := newRecordingPostgres(t, 0)
		err := st.SaveClaim(ctx, pendingClaim())
		assert.ErrorIs(t, err, ErrDuplicateCode)
	})
}
