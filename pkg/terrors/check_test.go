package terrors

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsInvalidInputErr(t *testing.T) {
	err := errors.Wrap(ErrInvalidInput, "tag without parent_name")
	assert.True(t, IsInvalidInputErr(err))
	err = errors.WithMessage(err, "create port")
	assert.True(t, IsInvalidInputErr(err))
	assert.False(t, IsTxnFailedErr(err))
}

func TestIsTxnFailedErr(t *testing.T) {
	err := errors.Wrapf(ErrTxnFailed, "constraint violation")
	assert.True(t, IsTxnFailedErr(err))
	assert.False(t, IsInvalidInputErr(err))
}

func TestIsNotFoundErr(t *testing.T) {
	assert.True(t, IsNotFoundErr(errors.Wrap(ErrSwitchNotFound, "neutron-x")))
	assert.True(t, IsNotFoundErr(errors.Wrap(ErrPortNotFound, "p1")))
	assert.False(t, IsNotFoundErr(errors.New("boom")))
}
