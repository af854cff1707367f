package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fitretto/gymbill/internal/clock"
	"github.com/fitretto/gymbill/internal/config"
	"github.com/fitretto/gymbill/internal/session/domain"
	"github.com/fitretto/gymbill/internal/session/repository"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, cfg config.Config) (domain.Service, *clock.FakeClock, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Session{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	return New(cfg, zap.NewNop(), repository.New(db), clk, node), clk, db
}

func TestCreateValidateRoundTrip(t *testing.T) {
	svc, _, _ := newTestService(t, config.Config{})
	ctx := context.Background()

	token, err := svc.Create(ctx, 7)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(token), 43) // 32 bytes base64url

	userID, err := svc.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(7), userID)

	_, err = svc.Validate(ctx, "not-a-token")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSingleActiveSessionPerUser(t *testing.T) {
	svc, _, db := newTestService(t, config.Config{})
	ctx := context.Background()

	first, err := svc.Create(ctx, 7)
	require.NoError(t, err)
	second, err := svc.Create(ctx, 7)
	require.NoError(t, err)

	var active int64
	require.NoError(t, db.Model(&domain.Session{}).
		Where("user_id = ? AND is_active = ?", 7, true).
		Count(&active).Error)
	assert.EqualValues(t, 1, active)

	_, err = svc.Validate(ctx, first)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	userID, err := svc.Validate(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(7), userID)
}

func TestLazyExpiryFlipsInactive(t *testing.T) {
	svc, clk, db := newTestService(t, config.Config{})
	ctx := context.Background()

	token, err := svc.Create(ctx, 3)
	require.NoError(t, err)

	clk.Advance(25 * time.Hour)

	_, err = svc.Validate(ctx, token)
	assert.ErrorIs(t, err, domain.ErrSessionExpired)

	// Expiry is self-healing: the row is now inactive.
	var session domain.Session
	require.NoError(t, db.Where("user_id = ?", 3).First(&session).Error)
	assert.False(t, session.IsActive)

	// Subsequent validation no longer finds an active session.
	_, err = svc.Validate(ctx, token)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestConfiguredTTLOverridesDefault(t *testing.T) {
	svc, clk, _ := newTestService(t, config.Config{SessionTTL: time.Hour})
	ctx := context.Background()

	token, err := svc.Create(ctx, 3)
	require.NoError(t, err)

	clk.Advance(30 * time.Minute)
	_, err = svc.Validate(ctx, token)
	require.NoError(t, err)

	clk.Advance(31 * time.Minute)
	_, err = svc.Validate(ctx, token)
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestValidateBumpsLastActivity(t *testing.T) {
	svc, clk, db := newTestService(t, config.Config{})
	ctx := context.Background()

	token, err := svc.Create(ctx, 5)
	require.NoError(t, err)

	clk.Advance(2 * time.Hour)
	_, err = svc.Validate(ctx, token)
	require.NoError(t, err)

	var session domain.Session
	require.NoError(t, db.Where("user_id = ?", 5).First(&session).Error)
	assert.Equal(t, clk.Now(), session.LastActivity.UTC())
}

func TestRevoke(t *testing.T) {
	svc, _, _ := newTestService(t, config.Config{})
	ctx := context.Background()

	token, err := svc.Create(ctx, 9)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, token))

	_, err = svc.Validate(ctx, token)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	assert.ErrorIs(t, svc.Revoke(ctx, token), domain.ErrSessionNotFound)
}
