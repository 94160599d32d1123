package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/surrealdb/surrealdb.go"
)

func TestWrapQueryError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"record exists", &surrealdb.QueryError{Message: "Database record `document:abc` already exists"}, ErrAlreadyExists},
		{"unique index", &surrealdb.QueryError{Message: "Database index `document_fingerprint` already contains 'x'"}, ErrAlreadyExists},
		{"conflict", &surrealdb.QueryError{Message: "Transaction conflict: resource busy"}, ErrTransactionConflict},
		{"wrapped conflict", fmt.Errorf("query: %w", &surrealdb.QueryError{Message: "Transaction conflict"}), ErrTransactionConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapQueryError(tt.err)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestWrapQueryErrorPassesThroughUnknown(t *testing.T) {
	plain := errors.New("connection reset")
	assert.Same(t, plain, wrapQueryError(plain))

	parse := &surrealdb.QueryError{Message: "Parse error: unexpected token"}
	got := wrapQueryError(parse)
	assert.NotErrorIs(t, got, ErrAlreadyExists)
	assert.NotErrorIs(t, got, ErrTransactionConflict)
}
