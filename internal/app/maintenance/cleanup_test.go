package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/medconnecthq/medconnect/internal/database/testutil"
	"github.com/medconnecthq/medconnect/internal/models"
	"github.com/medconnecthq/medconnect/internal/services"
)

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(context.Context, string, string, string, string) error { return nil }
func (noopDispatcher) SendEmail(context.Context, string, string, string) error        { return nil }
func (noopDispatcher) SendSMS(context.Context, string, string) error                  { return nil }

func TestRunOncePurgesDeadTokens(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	now := time.Now()

	resets, err := services.NewPasswordResetService(db, noopDispatcher{})
	require.NoError(t, err)

	expired := models.PasswordResetToken{
		AccountKind: models.KindPatient,
		AccountID:   "account-expired",
		TokenHash:   "hash-expired",
		ExpiresAt:   now.Add(-time.Hour),
	}
	usedAt := now.Add(-time.Minute)
	used := models.PasswordResetToken{
		AccountKind: models.KindPatient,
		AccountID:   "account-used",
		TokenHash:   "hash-used",
		ExpiresAt:   now.Add(time.Hour),
		UsedAt:      &usedAt,
	}
	active := models.PasswordResetToken{
		AccountKind: models.KindDoctor,
		AccountID:   "account-active",
		TokenHash:   "hash-active",
		ExpiresAt:   now.Add(time.Hour),
	}
	require.NoError(t, db.Create(&expired).Error)
	require.NoError(t, db.Create(&used).Error)
	require.NoError(t, db.Create(&active).Error)

	cleaner := NewCleaner(resets)
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var remaining []models.PasswordResetToken
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, "hash-active", remaining[0].TokenHash)
}

func TestStartAndStopScheduler(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	resets, err := services.NewPasswordResetService(db, noopDispatcher{})
	require.NoError(t, err)

	cleaner := NewCleaner(resets, WithTokenSchedule("@daily"))
	require.NoError(t, cleaner.Start())

	done := cleaner.Stop()
	select {
	case <-done.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop in time")
	}
}

func TestRunOnceWithoutService(t *testing.T) {
	cleaner := NewCleaner(nil)
	require.NoError(t, cleaner.RunOnce(context.Background()))
	require.NoError(t, cleaner.Start())
}
