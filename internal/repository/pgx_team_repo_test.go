package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yakoovad/scrapyard-registration/internal/model"
)

func TestListByStatusQuery(t *testing.T) {
	sql, args, err := listByStatusQuery([]model.TeamStatus{
		model.TeamStatusAccepted,
		model.TeamStatusAwaitingPayment,
	}).Build(context.Background())
	require.NoError(t, err)

	assert.Contains(t, sql, `"status" IN (`)
	assert.Contains(t, sql, "NULLS LAST")
	assert.Equal(t, []any{string(model.TeamStatusAccepted), string(model.TeamStatusAwaitingPayment)}, args)
}
