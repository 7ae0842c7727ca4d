package bulk

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	warmstack_errors "github.com/customeros/warmstack/errors"

	"github.com/customeros/warmstack/interfaces"
	"github.com/customeros/warmstack/internal/enum"
	"github.com/customeros/warmstack/internal/logger"
	"github.com/customeros/warmstack/internal/models"
	"github.com/customeros/warmstack/internal/utils"
)

type fakeMailboxRepository struct {
	mu          sync.Mutex
	mailboxes   map[string]*models.Mailbox
	deleted     []string
	deleteErrs  map[string]error
	trackingErr map[string]error
}

func newFakeMailboxRepository(ids ...string) *fakeMailboxRepository {
	repo := &fakeMailboxRepository{
		mailboxes:   make(map[string]*models.Mailbox),
		deleteErrs:  make(map[string]error),
		trackingErr: make(map[string]error),
	}
	for _, id := range ids {
		repo.mailboxes[id] = &models.Mailbox{ID: id, Tenant: "acme"}
	}
	return repo
}

func (f *fakeMailboxRepository) GetById(ctx context.Context, id string) (*models.Mailbox, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mailboxes[id], nil
}

func (f *fakeMailboxRepository) GetByIds(ctx context.Context, ids []string) ([]*models.Mailbox, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.Mailbox
	for _, id := range ids {
		if mailbox, ok := f.mailboxes[id]; ok {
			result = append(result, mailbox)
		}
	}
	return result, nil
}

func (f *fakeMailboxRepository) GetAllForTenant(ctx context.Context) ([]*models.Mailbox, error) {
	return nil, nil
}

func (f *fakeMailboxRepository) Save(ctx context.Context, mailbox *models.Mailbox) error {
	return nil
}

func (f *fakeMailboxRepository) UpdateConnectionStatus(ctx context.Context, mailboxID string, status enum.ConnectionState, errorMessage string) error {
	return nil
}

func (f *fakeMailboxRepository) UpdateTracking(ctx context.Context, mailboxID string, trackOpens, trackClicks, trackReplies *bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trackingErr[mailboxID]
}

func (f *fakeMailboxRepository) SoftDelete(ctx context.Context, mailboxID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErrs[mailboxID]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, mailboxID)
	return nil
}

type fakeWarmupService struct {
	mu         sync.Mutex
	configured []string
	disabled   []string
	failFor    map[string]error
}

func (f *fakeWarmupService) ConfigureWarmup(ctx context.Context, mailboxID string, settings *models.WarmupSettings, schedule *models.WarmupSchedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[mailboxID]; err != nil {
		return err
	}
	f.configured = append(f.configured, mailboxID)
	return nil
}

func (f *fakeWarmupService) ActivateWarmup(ctx context.Context, mailboxID string) error { return nil }
func (f *fakeWarmupService) CompleteWarmup(ctx context.Context, mailboxID string) error { return nil }

func (f *fakeWarmupService) DisableWarmup(ctx context.Context, mailboxID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disabled = append(f.disabled, mailboxID)
	return nil
}
func (f *fakeWarmupService) RemainingQuota(ctx context.Context, mailboxID string) (int, error) {
	return 0, nil
}
func (f *fakeWarmupService) ExecuteWarmupCycle(ctx context.Context) error { return nil }

func testLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func tenantContext() context.Context {
	return utils.WithCustomContext(context.Background(), &utils.CustomContext{Tenant: "acme"})
}

func TestApplyToMany_IsolatedItemFailure(t *testing.T) {
	// Arrange
	repo := newFakeMailboxRepository("mbox_1", "mbox_2", "mbox_3")
	warmup := &fakeWarmupService{
		failFor: map[string]error{"mbox_2": errors.New("settings rejected")},
	}
	applier := NewBulkConfigApplier(repo, warmup, testLogger(), 2)
	config := &interfaces.BulkConfig{
		Warmup: &interfaces.BulkWarmupConfig{
			Settings: &models.WarmupSettings{
				DailyLimit:        5,
				RampUpDays:        30,
				TargetDailyVolume: 50,
			},
		},
	}

	// Act
	result, err := applier.ApplyToMany(tenantContext(), []string{"mbox_1", "mbox_2", "mbox_3"}, enum.BulkActionWarmup, config)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.Skipped)
	require.Len(t, result.Details.Failed, 1)
	assert.Equal(t, "mbox_2", result.Details.Failed[0].ID)
	assert.Equal(t, "settings rejected", result.Details.Failed[0].Reason)
	// ids 1 and 3 were still attempted
	assert.ElementsMatch(t, []string{"mbox_1", "mbox_3"}, warmup.configured)
}

func TestApplyToMany_UnknownIdRejectsWholeRequest(t *testing.T) {
	// Arrange
	repo := newFakeMailboxRepository("mbox_1")
	warmup := &fakeWarmupService{}
	applier := NewBulkConfigApplier(repo, warmup, testLogger(), 2)

	// Act
	result, err := applier.ApplyToMany(tenantContext(), []string{"mbox_1", "mbox_missing"}, enum.BulkActionDelete, nil)

	// Assert: all-or-nothing, nothing ran
	assert.ErrorIs(t, err, warmstack_errors.ErrUnauthorized)
	assert.Nil(t, result)
	assert.Empty(t, repo.deleted)
}

func TestApplyToMany_MissingTenantIsRejected(t *testing.T) {
	// Arrange
	repo := newFakeMailboxRepository("mbox_1")
	applier := NewBulkConfigApplier(repo, &fakeWarmupService{}, testLogger(), 2)

	// Act
	result, err := applier.ApplyToMany(context.Background(), []string{"mbox_1"}, enum.BulkActionDelete, nil)

	// Assert
	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestApplyToMany_DeleteAction(t *testing.T) {
	// Arrange
	repo := newFakeMailboxRepository("mbox_1", "mbox_2")
	warmup := &fakeWarmupService{}
	applier := NewBulkConfigApplier(repo, warmup, testLogger(), 4)

	// Act
	result, err := applier.ApplyToMany(tenantContext(), []string{"mbox_1", "mbox_2"}, enum.BulkActionDelete, nil)

	// Assert: deletion also turns warm-up off
	require.NoError(t, err)
	assert.Equal(t, 2, result.Successful)
	assert.ElementsMatch(t, []string{"mbox_1", "mbox_2"}, repo.deleted)
	assert.ElementsMatch(t, []string{"mbox_1", "mbox_2"}, warmup.disabled)
}

func TestApplyToMany_TrackingActionRequiresConfig(t *testing.T) {
	// Arrange
	repo := newFakeMailboxRepository("mbox_1")
	applier := NewBulkConfigApplier(repo, &fakeWarmupService{}, testLogger(), 2)

	// Act
	result, err := applier.ApplyToMany(tenantContext(), []string{"mbox_1"}, enum.BulkActionTracking, nil)

	// Assert
	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestApplyToMany_AlreadyAppliedTrackingIsSkipped(t *testing.T) {
	// Arrange
	repo := newFakeMailboxRepository("mbox_1", "mbox_2")
	repo.mailboxes["mbox_1"].TrackOpens = true
	applier := NewBulkConfigApplier(repo, &fakeWarmupService{}, testLogger(), 2)
	config := &interfaces.BulkConfig{
		Tracking: &interfaces.BulkTrackingConfig{TrackOpens: utils.ToPtr(true)},
	}

	// Act
	result, err := applier.ApplyToMany(tenantContext(), []string{"mbox_1", "mbox_2"}, enum.BulkActionTracking, config)

	// Assert: mbox_1 already tracks opens, only mbox_2 is touched
	require.NoError(t, err)
	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, []string{"mbox_2"}, result.Details.Successful)
}

func TestApplyToMany_EmptyInput(t *testing.T) {
	// Arrange
	applier := NewBulkConfigApplier(newFakeMailboxRepository(), &fakeWarmupService{}, testLogger(), 2)

	// Act
	result, err := applier.ApplyToMany(tenantContext(), nil, enum.BulkActionDelete, nil)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 0, result.Total)
	assert.Equal(t, 0, result.Successful)
}
