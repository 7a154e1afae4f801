package prefs_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirewire/notifykit/pkg/prefs"
)

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }
func strPtr(s string) *string     { return &s }

// failingStorage simulates a storage outage.
type failingStorage struct{}

func (failingStorage) Get(context.Context, string, prefs.Scope) (*prefs.Preference, error) {
	return nil, errors.New("connection refused")
}

func (failingStorage) Upsert(context.Context, string, prefs.Scope, prefs.Preference) error {
	return errors.New("connection refused")
}

func TestResolver_NoRowsYieldsDefaults(t *testing.T) {
	t.Parallel()

	resolver := prefs.NewResolver(prefs.NewMemoryStorage())

	eff := resolver.Resolve(context.Background(), "user-1", prefs.GlobalScope())
	assert.Equal(t, prefs.Defaults(), eff)
}

func TestResolver_ScopedOverridesGlobalFieldByField(t *testing.T) {
	t.Parallel()

	storage := prefs.NewMemoryStorage()
	ctx := context.Background()

	require.NoError(t, storage.Upsert(ctx, "user-1", prefs.GlobalScope(), prefs.Preference{
		ChannelSMS:    boolPtr(false),
		MinMatchScore: floatPtr(60),
	}))
	require.NoError(t, storage.Upsert(ctx, "user-1", prefs.JobScope("job-1"), prefs.Preference{
		MinMatchScore: floatPtr(85),
	}))

	resolver := prefs.NewResolver(storage)
	eff := resolver.Resolve(ctx, "user-1", prefs.JobScope("job-1"))

	assert.Equal(t, 85.0, eff.MinMatchScore, "job row overrides the score")
	assert.False(t, eff.ChannelSMS, "unset job fields inherit from the global row")
	assert.True(t, eff.ChannelEmail, "fields set nowhere fall back to defaults")
}

func TestResolver_GlobalScopeIgnoresJobRows(t *testing.T) {
	t.Parallel()

	storage := prefs.NewMemoryStorage()
	ctx := context.Background()

	require.NoError(t, storage.Upsert(ctx, "user-1", prefs.JobScope("job-1"), prefs.Preference{
		ChannelEmail: boolPtr(false),
	}))

	resolver := prefs.NewResolver(storage)
	eff := resolver.Resolve(ctx, "user-1", prefs.GlobalScope())

	assert.True(t, eff.ChannelEmail)
}

func TestResolver_StorageFailureDegradesToDefaults(t *testing.T) {
	t.Parallel()

	resolver := prefs.NewResolver(failingStorage{})

	eff := resolver.Resolve(context.Background(), "user-1", prefs.JobScope("job-1"))
	assert.Equal(t, prefs.Defaults(), eff)
}

func TestService_UpsertPatchesStoredRow(t *testing.T) {
	t.Parallel()

	svc, err := prefs.NewService(prefs.NewMemoryStorage())
	require.NoError(t, err)

	ctx := context.Background()

	_, err = svc.Upsert(ctx, "user-1", prefs.GlobalScope(), prefs.Preference{
		ChannelSMS: boolPtr(false),
	})
	require.NoError(t, err)

	// A later patch touching a different field must not reset the first.
	eff, err := svc.Upsert(ctx, "user-1", prefs.GlobalScope(), prefs.Preference{
		DigestMode: boolPtr(true),
	})
	require.NoError(t, err)

	assert.False(t, eff.ChannelSMS)
	assert.True(t, eff.DigestMode)
}

func TestService_UpsertValidation(t *testing.T) {
	t.Parallel()

	svc, err := prefs.NewService(prefs.NewMemoryStorage())
	require.NoError(t, err)

	tests := []struct {
		name  string
		patch prefs.Preference
	}{
		{name: "bad clock", patch: prefs.Preference{QuietHoursStart: strPtr("25:00")}},
		{name: "bad frequency", patch: prefs.Preference{DigestFrequency: func() *prefs.Frequency { f := prefs.Frequency("hourly"); return &f }()}},
		{name: "bad timezone", patch: prefs.Preference{Timezone: strPtr("Nowhere/Flat")}},
		{name: "score out of range", patch: prefs.Preference{MinMatchScore: floatPtr(120)}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := svc.Upsert(context.Background(), "user-1", prefs.GlobalScope(), tt.patch)
			assert.ErrorIs(t, err, prefs.ErrInvalidPreference)
		})
	}
}

func TestService_ResetRestoresDefaults(t *testing.T) {
	t.Parallel()

	svc, err := prefs.NewService(prefs.NewMemoryStorage())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = svc.Upsert(ctx, "user-1", prefs.GlobalScope(), prefs.Preference{
		ChannelEmail: boolPtr(false),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Reset(ctx, "user-1", prefs.GlobalScope()))

	eff := svc.Get(ctx, "user-1", prefs.GlobalScope())
	assert.True(t, eff.ChannelEmail)
}
