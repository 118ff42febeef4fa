package diagerr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("collect: %w", Unavailable("worker-0", "run", errors.New("exit code 1")))
	assert.Equal(t, CollaboratorUnavailable, KindOf(err))
	assert.True(t, Is(err, CollaboratorUnavailable))
	assert.False(t, Is(err, SchemaMismatch))
	assert.False(t, Is(nil, CollaboratorUnavailable))
	assert.Equal(t, Kind(""), KindOf(context.Canceled))
}

func TestErrorMessage(t *testing.T) {
	err := Invalid("top_n", "%d must be at least 1", 0)
	assert.Equal(t, "InvalidParameter validate [top_n]: 0 must be at least 1", err.Error())

	inner := errors.New("boom")
	assert.ErrorIs(t, Unavailable("x", "get", inner), inner)
}

func TestDescribe(t *testing.T) {
	d := Describe(Schema("worker-0", "stats summary has no node.fs"))
	assert.Equal(t, Descriptor{Kind: SchemaMismatch, Subject: "worker-0", Message: "stats summary has no node.fs"}, d)
	assert.JSONEq(t, `{"kind":"SchemaMismatch","subject":"worker-0","message":"stats summary has no node.fs"}`, d.JSON())

	plain := Describe(errors.New("connection refused"))
	assert.Equal(t, CollaboratorUnavailable, plain.Kind)
	assert.Empty(t, plain.Subject)
	assert.JSONEq(t, `{"kind":"CollaboratorUnavailable","message":"connection refused"}`, plain.JSON())

	units := Describe(Units("add", "bytes", "percent"))
	assert.Equal(t, UnitMismatch, units.Kind)
	assert.Equal(t, "bytes vs percent", units.Message)
}
