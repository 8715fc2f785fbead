package requestcontext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunID(t *testing.T) {
	assert.Empty(t, RunID(context.Background()))

	ctx := WithRunID(context.Background(), "run-1")
	assert.Equal(t, "run-1", RunID(ctx))

	ctx = context.WithValue(context.Background(), ContextKeyRunID, 42)
	assert.Empty(t, RunID(ctx), "non-string values are ignored")
}
