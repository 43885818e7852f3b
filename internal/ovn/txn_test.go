package ovn

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCommitContext(t *testing.T) {
	ctx, cancel := commitContext(context.Background(), 30*time.Second)
	defer cancel()
	deadline, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(30*time.Second), deadline, time.Second)

	plain, cancel := commitContext(context.Background(), 0)
	defer cancel()
	_, ok = plain.Deadline()
	assert.False(t, ok)
}
