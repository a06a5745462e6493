package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRows serves pre-encoded JSONB documents through the pgx.Rows interface.
type fakeRows struct {
	docs    [][]byte
	pos     int
	err     error
	scanErr error
	closed  bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.docs) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	*(dest[0].(*[]byte)) = r.docs[r.pos-1]
	return nil
}

type fakeQuerier struct {
	rows     *fakeRows
	err      error
	gotQuery string

	execErr  error
	execSQL  []string
	execArgs [][]any
}

func (q *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if q.execErr != nil {
		return pgconn.CommandTag{}, q.execErr
	}
	q.execSQL = append(q.execSQL, sql)
	q.execArgs = append(q.execArgs, args)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (q *fakeQuerier) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	q.gotQuery = sql
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func TestPostgresStore_Load(t *testing.T) {
	rows := &fakeRows{docs: [][]byte{
		[]byte(`{"_id":"a","metadata":{"service_name":"A"},"enhanced_data":{"plans":[{"name":"Free","pricing":{"monthly":{"base_price":0}}}]}}`),
		[]byte(`{"_id":"b","metadata":{"service_name":"B"},"enhanced_data":{"plans":[]}}`),
	}}
	q := &fakeQuerier{rows: rows}
	store := newPostgresStore(q, "")

	services, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, "a", services[0].ID)
	assert.Equal(t, "B", services[1].Name())
	assert.True(t, rows.closed)
	assert.Contains(t, q.gotQuery, `FROM "services"`)
	assert.Equal(t, "postgres:services", store.String())
}

func TestPostgresStore_LoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		q       *fakeQuerier
		wantErr string
	}{
		{
			name:    "query failure",
			q:       &fakeQuerier{err: errors.New("connection refused")},
			wantErr: "query services",
		},
		{
			name:    "scan failure",
			q:       &fakeQuerier{rows: &fakeRows{docs: [][]byte{[]byte(`{}`)}, scanErr: errors.New("bad type")}},
			wantErr: "scan service row",
		},
		{
			name:    "corrupt document",
			q:       &fakeQuerier{rows: &fakeRows{docs: [][]byte{[]byte(`{"_id": 12`)}}},
			wantErr: "decode service document",
		},
		{
			name:    "iteration failure",
			q:       &fakeQuerier{rows: &fakeRows{err: errors.New("conn reset")}},
			wantErr: "iterate service rows",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newPostgresStore(tt.q, "catalog_docs").Load(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPostgresStore_Save(t *testing.T) {
	q := &fakeQuerier{}
	store := newPostgresStore(q, "saas")

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.Len(t, q.execSQL, 1)
	assert.Contains(t, q.execSQL[0], `CREATE TABLE IF NOT EXISTS "saas"`)

	n, err := store.Save(context.Background(), []Service{
		{ID: "x", EnhancedData: EnhancedData{Plans: []Plan{plan("Pro", price(20)), plan("Free", price(0))}}},
		{ID: ""},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, q.execSQL, 2)
	assert.Contains(t, q.execSQL[1], `ON CONFLICT (id)`)
	assert.Equal(t, "x", q.execArgs[1][0])

	// The stored document is normalized: Free sorts before Pro.
	doc := q.execArgs[1][1].(string)
	assert.Less(t, strings.Index(doc, `"Free"`), strings.Index(doc, `"Pro"`))
}

func TestPostgresStore_SaveError(t *testing.T) {
	q := &fakeQuerier{execErr: errors.New("permission denied")}
	store := newPostgresStore(q, "")

	n, err := store.Save(context.Background(), []Service{{ID: "x"}})
	require.Error(t, err)
	assert.Equal(t, 0, n)
	assert.Contains(t, err.Error(), "upsert service x")

	require.ErrorContains(t, store.EnsureSchema(context.Background()), "create table services")
}

func TestNewPostgresPool_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewPostgresPool(ctx, "postgres://%zz")
	require.ErrorContains(t, err, "parse database url")

	// Nothing listens on port 1, so the pool must fail at construction rather
	// than on the first Load.
	_, err = NewPostgresPool(ctx, "postgres://apicus@127.0.0.1:1/apicus?connect_timeout=2&sslmode=disable")
	require.ErrorContains(t, err, "ping database")
}
