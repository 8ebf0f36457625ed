package domain_test

import (
	"errors"
	"testing"

	"github.com/openlh/aliquot/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferOptionsDefaults(t *testing.T) {
	o, err := domain.NewTransferOptions(domain.ModeTransfer)
	require.NoError(t, err)

	assert.Equal(t, domain.ModeTransfer, o.Mode())
	assert.Equal(t, domain.TipOnce, o.TipPolicy())
	assert.True(t, o.Carryover())
	assert.Equal(t, 0.0, o.AirGap())
	assert.Equal(t, 0.0, o.DisposalVolume())
	assert.Equal(t, domain.MixNever, o.MixStrategy())
	assert.Equal(t, domain.TouchTipNever, o.TouchTip())
	assert.Equal(t, domain.BlowOutNever, o.BlowOut())
	assert.Equal(t, domain.DropTipTrash, o.DropTip())
	assert.Equal(t, 1.0, o.Rate())

	// Linear gradient by default.
	require.NotNil(t, o.Gradient())
	assert.Equal(t, 0.0, o.Gradient()(0))
	assert.Equal(t, 0.5, o.Gradient()(0.5))
	assert.Equal(t, 1.0, o.Gradient()(1))
}

func TestTransferOptionsOverrides(t *testing.T) {
	o, err := domain.NewTransferOptions(domain.ModeDistribute,
		domain.WithTipPolicy(domain.TipAlways),
		domain.WithAirGap(10),
		domain.WithCarryover(false),
		domain.WithDisposalVolume(5),
		domain.WithMixBefore(3, 20),
		domain.WithMixAfter(2, 15),
		domain.WithTouchTip(),
		domain.WithBlowOut(),
		domain.WithTipReturn(),
		domain.WithRate(1.5),
	)
	require.NoError(t, err)

	assert.Equal(t, domain.TipAlways, o.TipPolicy())
	assert.Equal(t, 10.0, o.AirGap())
	assert.False(t, o.Carryover())
	assert.Equal(t, 5.0, o.DisposalVolume())
	assert.Equal(t, domain.MixBoth, o.MixStrategy())
	assert.Equal(t, domain.MixSpec{Repetitions: 3, Volume: 20}, o.MixBeforeSpec())
	assert.Equal(t, domain.MixSpec{Repetitions: 2, Volume: 15}, o.MixAfterSpec())
	assert.Equal(t, domain.TouchTipAlways, o.TouchTip())
	assert.Equal(t, domain.BlowOutTrash, o.BlowOut())
	assert.Equal(t, domain.DropTipReturn, o.DropTip())
	assert.Equal(t, 1.5, o.Rate())
}

func TestMixStrategyCombination(t *testing.T) {
	t.Run("before only", func(t *testing.T) {
		o, err := domain.NewTransferOptions(domain.ModeTransfer, domain.WithMixBefore(2, 10))
		require.NoError(t, err)
		assert.Equal(t, domain.MixBefore, o.MixStrategy())
		assert.True(t, o.MixStrategy().Before())
		assert.False(t, o.MixStrategy().After())
	})

	t.Run("after only", func(t *testing.T) {
		o, err := domain.NewTransferOptions(domain.ModeTransfer, domain.WithMixAfter(2, 10))
		require.NoError(t, err)
		assert.Equal(t, domain.MixAfter, o.MixStrategy())
	})

	t.Run("both, either order", func(t *testing.T) {
		o, err := domain.NewTransferOptions(domain.ModeTransfer,
			domain.WithMixAfter(2, 10), domain.WithMixBefore(1, 5))
		require.NoError(t, err)
		assert.Equal(t, domain.MixBoth, o.MixStrategy())
	})
}

func TestTransferOptionsValidation(t *testing.T) {
	cases := []struct {
		name string
		mode domain.Mode
		opts []domain.TransferOption
	}{
		{"unknown mode", domain.Mode("pour"), nil},
		{"unknown tip policy", domain.ModeTransfer, []domain.TransferOption{domain.WithTipPolicy("sometimes")}},
		{"negative air gap", domain.ModeTransfer, []domain.TransferOption{domain.WithAirGap(-1)}},
		{"negative disposal", domain.ModeDistribute, []domain.TransferOption{domain.WithDisposalVolume(-2)}},
		{"zero rate", domain.ModeTransfer, []domain.TransferOption{domain.WithRate(0)}},
		{"nil gradient", domain.ModeTransfer, []domain.TransferOption{domain.WithGradient(nil)}},
		{"negative mix volume", domain.ModeTransfer, []domain.TransferOption{domain.WithMixBefore(1, -5)}},
		{"mix with zero reps", domain.ModeTransfer, []domain.TransferOption{domain.WithMixAfter(0, 10)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := domain.NewTransferOptions(tc.mode, tc.opts...)
			require.Error(t, err)
			var cfgErr *domain.ConfigurationError
			assert.True(t, errors.As(err, &cfgErr), "want ConfigurationError, got %T", err)
		})
	}
}

func TestTouchTipSpeedClamping(t *testing.T) {
	t.Run("too slow clamps up", func(t *testing.T) {
		o, err := domain.NewTransferOptions(domain.ModeTransfer, domain.WithTouchTipSpeed(5))
		require.NoError(t, err)
		assert.Equal(t, domain.TouchTipSpeedMin, o.TouchTipSpeed())
		assert.Equal(t, domain.TouchTipAlways, o.TouchTip())
	})

	t.Run("too fast clamps down", func(t *testing.T) {
		o, err := domain.NewTransferOptions(domain.ModeTransfer, domain.WithTouchTipSpeed(500))
		require.NoError(t, err)
		assert.Equal(t, domain.TouchTipSpeedMax, o.TouchTipSpeed())
	})

	t.Run("in range kept", func(t *testing.T) {
		o, err := domain.NewTransferOptions(domain.ModeTransfer, domain.WithTouchTipSpeed(42))
		require.NoError(t, err)
		assert.Equal(t, 42.0, o.TouchTipSpeed())
	})

	t.Run("default without touch-tip", func(t *testing.T) {
		o, err := domain.NewTransferOptions(domain.ModeTransfer)
		require.NoError(t, err)
		assert.Equal(t, domain.TouchTipSpeedDefault, o.TouchTipSpeed())
	})
}
