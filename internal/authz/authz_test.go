package authz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"order-core/internal/apperr"
)

func TestRequireOwner_SameID_Allows(t *testing.T) {
	id := uuid.New()
	assert.NoError(t, RequireOwner(id, id))
}

func TestRequireOwner_DifferentID_Denies(t *testing.T) {
	err := RequireOwner(uuid.New(), uuid.New())
	assert.Error(t, err)
	assert.Equal(t, apperr.KindAuthDenied, apperr.KindOf(err))
}
