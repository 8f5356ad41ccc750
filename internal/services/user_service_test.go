package services_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/localnerve/macroai/internal/logger"
	"github.com/localnerve/macroai/internal/models"
	"github.com/localnerve/macroai/internal/repositories"
	"github.com/localnerve/macroai/internal/services"
	"github.com/localnerve/macroai/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newUserService(t *testing.T, now func() time.Time) (*services.UserService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc := services.NewUserService(repositories.NewUserRepository(db), logger.Nop())
	if now != nil {
		svc.WithClock(now)
	}
	return svc, db
}

func TestRegisterOrLoginIsIdempotent(t *testing.T) {
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, db := newUserService(t, func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})
	ctx := context.Background()

	first, err := svc.RegisterOrLoginUserByID(ctx, "u1", "u1@example.com", true)
	require.NoError(t, err)
	require.NotNil(t, first.LastLogin)
	firstLogin := *first.LastLogin

	second, err := svc.RegisterOrLoginUserByID(ctx, "u1", "u1@example.com", true)
	require.NoError(t, err)
	require.NotNil(t, second.LastLogin)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.LastLogin.After(firstLogin), "second login %v not after %v", second.LastLogin, firstLogin)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Where("email = ?", "u1@example.com").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRegisterOrLoginStrictlyIncreasesWithStoppedClock(t *testing.T) {
	stopped := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, _ := newUserService(t, func() time.Time { return stopped })
	ctx := context.Background()

	first, err := svc.RegisterOrLoginUserByID(ctx, "u1", "u1@example.com", false)
	require.NoError(t, err)
	second, err := svc.RegisterOrLoginUserByID(ctx, "u1", "u1@example.com", false)
	require.NoError(t, err)

	assert.True(t, second.LastLogin.After(*first.LastLogin))
}

func TestRegisterOrLoginValidation(t *testing.T) {
	svc, _ := newUserService(t, nil)
	ctx := context.Background()

	_, err := svc.RegisterOrLoginUserByID(ctx, "", "u1@example.com", false)
	assert.True(t, types.IsKind(err, types.KindValidation), "got %v", err)

	_, err = svc.RegisterOrLoginUserByID(ctx, "u1", "", false)
	assert.True(t, types.IsKind(err, types.KindValidation), "got %v", err)
}

func TestGetUserByID(t *testing.T) {
	svc, _ := newUserService(t, nil)
	ctx := context.Background()

	_, err := svc.GetUserByID(ctx, "missing")
	assert.True(t, types.IsKind(err, types.KindNotFound), "got %v", err)

	_, err = svc.RegisterOrLoginUserByID(ctx, "u1", "u1@example.com", true)
	require.NoError(t, err)
	user, err := svc.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, user.EmailVerified)
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newUserService(t, nil)
	ctx := context.Background()
	_, err := svc.RegisterOrLoginUserByID(ctx, "u1", "u1@example.com", true)
	require.NoError(t, err)

	last := "Lovelace"
	user, err := svc.UpdateProfile(ctx, "u1", services.ProfileInput{LastName: &last})
	require.NoError(t, err)
	require.NotNil(t, user.LastName)
	assert.Equal(t, "Lovelace", *user.LastName)

	_, err = svc.UpdateProfile(ctx, "u1", services.ProfileInput{})
	assert.True(t, types.IsKind(err, types.KindValidation), "got %v", err)

	long := strings.Repeat("x", 256)
	_, err = svc.UpdateProfile(ctx, "u1", services.ProfileInput{FirstName: &long})
	assert.True(t, types.IsKind(err, types.KindValidation), "got %v", err)

	_, err = svc.UpdateProfile(ctx, "ghost", services.ProfileInput{LastName: &last})
	assert.True(t, types.IsKind(err, types.KindNotFound), "got %v", err)
}

// barrierUserStore holds the first two lookups until both have run, so two
// first logins both see the user as absent.
type barrierUserStore struct {
	*repositories.UserRepository
	mu      sync.Mutex
	lookups int
	arrived sync.WaitGroup
}

func (b *barrierUserStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	b.mu.Lock()
	b.lookups++
	held := b.lookups <= 2
	b.mu.Unlock()

	user, err := b.UserRepository.FindUserByID(ctx, id)
	if held {
		b.arrived.Done()
		b.arrived.Wait()
	}
	return user, err
}

func TestRegisterOrLoginConcurrentFirstLogin(t *testing.T) {
	db := newTestDB(t)
	store := &barrierUserStore{UserRepository: repositories.NewUserRepository(db)}
	store.arrived.Add(2)
	svc := services.NewUserService(store, logger.Nop())

	var wg sync.WaitGroup
	errs := make([]error, 2)
	users := make([]*models.User, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			users[i], errs[i] = svc.RegisterOrLoginUserByID(context.Background(), "u1", "u1@example.com", true)
		}(i)
	}
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
		require.NotNil(t, users[i])
		assert.Equal(t, "u1", users[i].ID)
	}

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
