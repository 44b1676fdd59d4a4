package graph

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Decode(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := Record{
		"id":       "m1",
		"title":    "Heat",
		"year":     int64(1995),
		"avg":      int64(4),
		"score":    4.25,
		"genres":   []any{"Action", nil, "Crime"},
		"plot":     nil,
		"rated_at": ts,
		"existed":  true,
	}

	d := rec.Decode()
	assert.Equal(t, "m1", d.String("id"))
	assert.Equal(t, "Heat", d.String("title"))
	assert.Equal(t, 1995, d.Int("year"))
	assert.Equal(t, 4.0, d.Float("avg"))
	assert.Equal(t, 4.25, d.Float("score"))
	assert.Equal(t, []string{"Action", "Crime"}, d.Strings("genres"))
	assert.Equal(t, "", d.OptString("plot"))
	assert.Equal(t, 0.0, d.OptFloat("missing"))
	assert.Equal(t, ts, d.OptTime("rated_at"))
	assert.True(t, d.Bool("existed"))
	require.NoError(t, d.Err())
}

func TestRecord_DecodeFailsLoudly(t *testing.T) {
	tests := []struct {
		name   string
		rec    Record
		decode func(d *Decoder)
		key    string
	}{
		{
			name:   "missing required string",
			rec:    Record{},
			decode: func(d *Decoder) { d.String("id") },
			key:    "id",
		},
		{
			name:   "null required number",
			rec:    Record{"avg_rating": nil},
			decode: func(d *Decoder) { d.Float("avg_rating") },
			key:    "avg_rating",
		},
		{
			name:   "wrong type",
			rec:    Record{"rating_count": "ten"},
			decode: func(d *Decoder) { d.Int("rating_count") },
			key:    "rating_count",
		},
		{
			name:   "list with non-string element",
			rec:    Record{"genres": []any{"Drama", int64(3)}},
			decode: func(d *Decoder) { d.Strings("genres") },
			key:    "genres",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.rec.Decode()
			tt.decode(d)

			var decodeErr *DecodeError
			require.ErrorAs(t, d.Err(), &decodeErr)
			assert.Equal(t, tt.key, decodeErr.Key)
		})
	}
}

func TestRecord_FirstErrorSticks(t *testing.T) {
	d := Record{"b": 1.5}.Decode()
	d.String("a")
	d.Float("b")
	d.String("c")

	var decodeErr *DecodeError
	require.ErrorAs(t, d.Err(), &decodeErr)
	assert.Equal(t, "a", decodeErr.Key)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{
			name: "constraint violation",
			err:  &neo4j.Neo4jError{Code: "Neo.ClientError.Schema.ConstraintValidationFailed", Msg: "already exists"},
			kind: ErrConstraint,
		},
		{
			name: "syntax error",
			err:  &neo4j.Neo4jError{Code: "Neo.ClientError.Statement.SyntaxError", Msg: "invalid input"},
			kind: ErrSyntax,
		},
		{
			name: "transient error",
			err:  &neo4j.Neo4jError{Code: "Neo.TransientError.General.DatabaseUnavailable", Msg: "unavailable"},
			kind: ErrUnavailable,
		},
		{
			name: "deadline exceeded",
			err:  context.DeadlineExceeded,
			kind: ErrCanceled,
		},
		{
			name: "caller canceled",
			err:  fmt.Errorf("run: %w", context.Canceled),
			kind: ErrCanceled,
		},
		{
			name: "connectivity error",
			err:  &neo4j.ConnectivityError{Inner: errors.New("dial tcp: connection refused")},
			kind: ErrUnavailable,
		},
		{
			name: "other server error",
			err:  &neo4j.Neo4jError{Code: "Neo.DatabaseError.General.UnknownError", Msg: "boom"},
			kind: ErrQuery,
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			kind: ErrQuery,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("RETURN 1", tt.err)
			assert.ErrorIs(t, err, tt.kind)
			assert.ErrorIs(t, err, tt.err)

			var graphErr *Error
			require.ErrorAs(t, err, &graphErr)
			assert.Equal(t, "RETURN 1", graphErr.Statement)
		})
	}
}

func TestClassify_KeepsClassifiedErrors(t *testing.T) {
	original := &Error{Kind: ErrSyntax, Statement: "RETURN", Err: errors.New("bad")}
	assert.Same(t, original, classify("other", original))
}

type scriptedStore struct {
	calls int
	err   error
	rows  []Record
}

func (s *scriptedStore) Query(ctx context.Context, stmt string, params map[string]any) ([]Record, error) {
	s.calls++
	return s.rows, s.err
}

func (s *scriptedStore) WriteQuery(ctx context.Context, stmt string, params map[string]any) ([]Record, error) {
	s.calls++
	return s.rows, s.err
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestBreakerStore_OpensOnUnavailable(t *testing.T) {
	inner := &scriptedStore{err: &Error{Kind: ErrUnavailable, Err: errors.New("connection refused")}}
	store := NewBreakerStore(inner, BreakerSettings{
		Name:             "test-open",
		MaxRequests:      1,
		Timeout:          time.Minute,
		FailureThreshold: 2,
	}, quietLogger())

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := store.Query(ctx, "RETURN 1", nil)
		require.ErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, gobreaker.StateOpen, store.State())

	_, err := store.WriteQuery(ctx, "RETURN 1", nil)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, inner.calls)
}

func TestBreakerStore_IgnoresQueryErrors(t *testing.T) {
	inner := &scriptedStore{err: &Error{Kind: ErrSyntax, Err: errors.New("bad statement")}}
	store := NewBreakerStore(inner, BreakerSettings{
		Name:             "test-closed",
		Timeout:          time.Minute,
		FailureThreshold: 2,
	}, quietLogger())

	for i := 0; i < 5; i++ {
		_, err := store.Query(context.Background(), "RETURN", nil)
		require.ErrorIs(t, err, ErrSyntax)
	}
	assert.Equal(t, gobreaker.StateClosed, store.State())
	assert.Equal(t, 5, inner.calls)
}

// ctxStore fails the way the driver does when the caller's context is done.
type ctxStore struct {
	calls int
}

func (s *ctxStore) Query(ctx context.Context, stmt string, params map[string]any) ([]Record, error) {
	s.calls++
	if err := ctx.Err(); err != nil {
		return nil, classify(stmt, err)
	}
	return []Record{{"n": int64(1)}}, nil
}

func (s *ctxStore) WriteQuery(ctx context.Context, stmt string, params map[string]any) ([]Record, error) {
	return s.Query(ctx, stmt, params)
}

func TestBreakerStore_IgnoresCallerCancellation(t *testing.T) {
	inner := &ctxStore{}
	store := NewBreakerStore(inner, BreakerSettings{
		Name:             "test-canceled",
		Timeout:          time.Minute,
		FailureThreshold: 2,
	}, quietLogger())

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	expired, stop := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer stop()

	for i := 0; i < 5; i++ {
		_, err := store.Query(canceled, "RETURN 1", nil)
		require.ErrorIs(t, err, ErrCanceled)
		assert.NotErrorIs(t, err, ErrUnavailable)

		_, err = store.WriteQuery(expired, "RETURN 1", nil)
		require.ErrorIs(t, err, ErrCanceled)
	}
	assert.Equal(t, gobreaker.StateClosed, store.State())

	rows, err := store.Query(context.Background(), "RETURN 1", nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 11, inner.calls)
}

func TestBreakerStore_PassesRows(t *testing.T) {
	inner := &scriptedStore{rows: []Record{{"n": int64(1)}}}
	store := NewBreakerStore(inner, BreakerSettings{Name: "test-rows"}, quietLogger())

	rows, err := store.Query(context.Background(), "RETURN 1 AS n", nil)
	require.NoError(t, err)
	assert.Equal(t, []Record{{"n": int64(1)}}, rows)
}

func TestEnsureSchema(t *testing.T) {
	inner := &scriptedStore{}
	require.NoError(t, EnsureSchema(context.Background(), inner))
	assert.Equal(t, len(SchemaStatements), inner.calls)

	failing := &scriptedStore{err: &Error{Kind: ErrSyntax, Err: errors.New("unsupported")}}
	err := EnsureSchema(context.Background(), failing)
	require.ErrorIs(t, err, ErrSyntax)
	assert.Equal(t, 1, failing.calls)
}
