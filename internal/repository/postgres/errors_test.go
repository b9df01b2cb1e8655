package postgres

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
)

func TestIsUniqueViolation_PqErrorWithCode23505(t *testing.T) {
	err := &pq.Error{Code: "23505"}
	assert.True(t, isUniqueViolation(err))
}

func TestIsUniqueViolation_PqErrorWithOtherCode(t *testing.T) {
	err := &pq.Error{Code: "22001"}
	assert.False(t, isUniqueViolation(err))
}

func TestIsUniqueViolation_FallsBackToStringMatch(t *testing.T) {
	err := errors.New(`pq: duplicate key value violates unique constraint "usage_events_provider_call_id_key"`)
	assert.True(t, isUniqueViolation(err))
}

func TestIsUniqueViolation_UnrelatedError(t *testing.T) {
	assert.False(t, isUniqueViolation(errors.New("connection refused")))
}

func TestJSONArg_NilPointerBecomesNil(t *testing.T) {
	assert.Nil(t, jsonArg(nil))
}

func TestJSONArg_NonNilPointerDereferences(t *testing.T) {
	j := domain.JSON(`{"a":1}`)
	got := jsonArg(&j)
	assert.Equal(t, j, got)
}
