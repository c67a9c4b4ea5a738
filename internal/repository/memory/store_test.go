package memory

import (
	"alcyxob/health-tracker/internal/domain"
	"alcyxob/health-tracker/internal/repository"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestGetActiveByUser(t *testing.T) {
	ctx := context.Background()
	instances := NewStore().Instances()
	userID := primitive.NewObjectID()

	_, err := instances.GetActiveByUser(ctx, userID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	id, err := instances.Create(ctx, &domain.UserPlanInstance{UserID: userID, PlanTemplateID: primitive.NewObjectID(), Status: domain.PlanStatusActive})
	require.NoError(t, err)

	active, err := instances.GetActiveByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, id, active.ID)
}

func TestGetActiveByUser_ReportsListFailure(t *testing.T) {
	instances := NewStore().Instances()
	userID := primitive.NewObjectID()
	_, err := instances.Create(context.Background(), &domain.UserPlanInstance{UserID: userID, PlanTemplateID: primitive.NewObjectID(), Status: domain.PlanStatusActive})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	active, err := instances.GetActiveByUser(ctx, userID)
	assert.Nil(t, active)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, repository.ErrNotFound)
}
