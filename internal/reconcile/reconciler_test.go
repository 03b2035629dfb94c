package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "interview-sync/internal/common/errors"
	"interview-sync/internal/common/logger"
	"interview-sync/internal/models"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) CountOrphans(ctx context.Context, groupID string, known []string) (*models.OrphanedEntitySummary, error) {
	args := m.Called(ctx, groupID, known)
	s, _ := args.Get(0).(*models.OrphanedEntitySummary)
	return s, args.Error(1)
}

func TestSummarize_NormalizesKnownIDs(t *testing.T) {
	store := new(MockStore)
	store.On("CountOrphans", mock.Anything, "group-1", []string{"org-a", "org-b"}).
		Return(&models.OrphanedEntitySummary{Jobs: 2, Applicants: 1, DanglingOrganizationIDs: []string{"org-x"}}, nil)

	r := NewReconciler(store, logger.NewTestLogger(t))
	summary, err := r.Summarize(context.Background(), "group-1", []string{" org-b", "org-a", "", "org-b"})
	require.NoError(t, err)

	assert.Equal(t, "group-1", summary.GroupID)
	assert.Equal(t, 3, summary.Total())
	assert.Equal(t, []string{"org-x"}, summary.DanglingOrganizationIDs)
	store.AssertExpectations(t)
}

func TestSummarize_EmptyKnownSetStillBindsArray(t *testing.T) {
	store := new(MockStore)
	store.On("CountOrphans", mock.Anything, "group-1", []string{}).
		Return(&models.OrphanedEntitySummary{}, nil)

	summary, err := NewReconciler(store, logger.NewNoOpLogger()).Summarize(context.Background(), "group-1", nil)
	require.NoError(t, err)
	assert.False(t, summary.HasOrphans())
	assert.NotNil(t, summary.DanglingOrganizationIDs)
}

func TestSummarize_RequiresGroup(t *testing.T) {
	_, err := NewReconciler(new(MockStore), logger.NewNoOpLogger()).Summarize(context.Background(), " ", nil)
	assert.True(t, apperrors.IsValidation(err))
}

func TestSummarize_StoreError(t *testing.T) {
	store := new(MockStore)
	store.On("CountOrphans", mock.Anything, "group-1", []string{}).
		Return(nil, apperrors.NewDatabaseError("count_orphans", errors.New("down")))

	_, err := NewReconciler(store, logger.NewNoOpLogger()).Summarize(context.Background(), "group-1", []string{})
	assert.Error(t, err)
}

func TestParseIDs(t *testing.T) {
	assert.Equal(t, []string{}, ParseIDs(""))
	assert.Equal(t, []string{"a", "b"}, ParseIDs("b, a,,b"))
	assert.Equal(t, []string{"0a1b2c3d-0000-4000-8000-00000000abcd"},
		ParseIDs("0A1B2C3D-0000-4000-8000-00000000ABCD, 0a1b2c3d-0000-4000-8000-00000000abcd"))
}

func TestSummarize_UpperCaseKnownIDsAreLowered(t *testing.T) {
	store := new(MockStore)
	store.On("CountOrphans", mock.Anything, "group-1", []string{"0a1b2c3d-0000-4000-8000-00000000abcd"}).
		Return(&models.OrphanedEntitySummary{DanglingOrganizationIDs: []string{}}, nil)

	summary, err := NewReconciler(store, logger.NewNoOpLogger()).
		Summarize(context.Background(), "group-1", []string{"0A1B2C3D-0000-4000-8000-00000000ABCD"})
	require.NoError(t, err)
	assert.False(t, summary.HasOrphans())
	store.AssertExpectations(t)
}
