package stores

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livebridge/livebridge/internal/dawerr"
)

func TestSnapshotStoreCopiesOnReadAndWrite(t *testing.T) {
	s := NewSnapshotStore()
	params := []ParameterValue{{Name: "Cutoff", Value: 0.4}}
	s.Save(Snapshot{ID: "a", CreatedAt: time.Now(), Parameters: params})

	// Mutating the caller's slice must not reach the store.
	params[0].Value = 0.9
	got, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 0.4, got.Parameters[0].Value)

	// Mutating a returned copy must not reach the store either.
	got.Parameters[0].Value = 0.1
	again, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 0.4, again.Parameters[0].Value)
}

func TestSnapshotStoreMissing(t *testing.T) {
	s := NewSnapshotStore()
	_, err := s.Get("nope")
	require.Error(t, err)
	assert.Equal(t, dawerr.KindInvalidInput, dawerr.KindOf(err))
	assert.Error(t, s.Delete("nope"))
}

func TestMacroBindingCurves(t *testing.T) {
	tests := []struct {
		name  string
		curve Curve
		input float64
		want  float64
	}{
		{"linear mid", CurveLinear, 0.5, 0.5},
		{"linear clamps high", CurveLinear, 1.5, 1.0},
		{"linear clamps low", CurveLinear, -0.5, 0.0},
		{"exponential mid", CurveExponential, 0.5, 0.25},
		{"logarithmic quarter", CurveLogarithmic, 0.25, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := MacroBinding{MinOut: 0, MaxOut: 1, Curve: tt.curve}
			assert.InDelta(t, tt.want, b.Apply(tt.input), 1e-9)
		})
	}

	// Range mapping composes with the curve.
	b := MacroBinding{MinOut: 200, MaxOut: 1000, Curve: CurveLinear}
	assert.InDelta(t, 600, b.Apply(0.5), 1e-9)
}

func TestMacroStoreRejectsUnknownCurve(t *testing.T) {
	s := NewMacroStore()
	err := s.Save(MacroController{ID: "m", Bindings: []MacroBinding{
		{ParameterName: "Cutoff", Curve: "sigmoid"},
	}})
	require.Error(t, err)
	assert.Equal(t, dawerr.KindInvalidInput, dawerr.KindOf(err))
}

func TestParameterMapFriendly(t *testing.T) {
	s := NewParameterMapStore()
	s.Put(ParameterMap{ID: "wavetable", DeviceKind: "synth", Mappings: []ParameterMapping{
		{OriginalName: "Osc 1 Transp", FriendlyName: "Oscillator 1 Transpose", Category: "pitch"},
	}})

	assert.Equal(t, "Oscillator 1 Transpose", s.Friendly("wavetable", "Osc 1 Transp"))
	assert.Equal(t, "Volume", s.Friendly("wavetable", "Volume"))
	assert.Equal(t, "X", s.Friendly("missing-map", "X"))
}

func TestTemplateStoreRoundTripAndReload(t *testing.T) {
	dir := t.TempDir()

	s, err := NewTemplateStore(dir, zerolog.Nop())
	require.NoError(t, err)

	tpl := Template{Name: "vocal-chain", Devices: []TemplateDevice{
		{URI: "query:FX#Compressor", ParameterOverrides: map[string]float64{"Threshold": -18}},
		{URI: "query:FX#Reverb", ParameterOverrides: map[string]float64{"Dry/Wet": 0.2}},
	}}
	require.NoError(t, s.Save(tpl))

	got, err := s.Get("vocal-chain")
	require.NoError(t, err)
	assert.Equal(t, tpl, got)

	// Write-through: a fresh store over the same directory sees it.
	reloaded, err := NewTemplateStore(dir, zerolog.Nop())
	require.NoError(t, err)
	got2, err := reloaded.Get("vocal-chain")
	require.NoError(t, err)
	assert.Equal(t, tpl, got2)
	assert.Equal(t, []string{"vocal-chain"}, reloaded.Names())
}

func TestTemplateStoreDeletePersists(t *testing.T) {
	dir := t.TempDir()
	s, err := NewTemplateStore(dir, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, s.Save(Template{Name: "x", Devices: []TemplateDevice{{URI: "u"}}}))
	require.NoError(t, s.Delete("x"))

	reloaded, err := NewTemplateStore(dir, zerolog.Nop())
	require.NoError(t, err)
	_, err = reloaded.Get("x")
	assert.Error(t, err)
}

func TestTemplateStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "effect_chains.json"), []byte("{not json"), 0o644))

	_, err := NewTemplateStore(dir, zerolog.Nop())
	require.Error(t, err)
}
