package mesh

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"spider/model"
)

func testConfig(n int) model.Mesh {
	return model.Mesh{
		OuterRadius:               6371000,
		InnerRadius:               3504050,
		NumberOfNodes:             n,
		MixingLengthProfile:       NearestBoundary,
		SurfaceDensity:            4090,
		Beta:                      1.1115e-7,
		GravitationalAcceleration: 10,
	}
}

func TestNewUniform_NodeCounts(t *testing.T) {
	for _, n := range []int{2, 10, 50} {
		m, err := NewUniform(testConfig(n))
		require.NoError(t, err)
		assert.Equal(t, n, m.Staggered.Number())
		assert.Equal(t, m.Staggered.Number()+1, m.Basic.Number())
	}
}

func TestNewUniform_Geometry(t *testing.T) {
	cfg := testConfig(10)
	m, err := NewUniform(cfg)
	require.NoError(t, err)

	rb, rs := m.Basic.Radii, m.Staggered.Radii
	assert.Equal(t, cfg.InnerRadius, rb[0])
	assert.InDelta(t, cfg.OuterRadius, rb[len(rb)-1], 1e-6)
	for i := range rs {
		assert.Less(t, rb[i], rs[i])
		assert.Less(t, rs[i], rb[i+1])
		assert.InDelta(t, 0.5*(rb[i]+rb[i+1]), rs[i], 1e-6)
	}
	for i := 1; i < len(rb); i++ {
		assert.Greater(t, rb[i], rb[i-1])
	}

	// 单元体积之和等于整个球壳
	total := (cfg.OuterRadius*cfg.OuterRadius*cfg.OuterRadius - cfg.InnerRadius*cfg.InnerRadius*cfg.InnerRadius) / 3
	assert.InEpsilon(t, total, floats.Sum(m.Staggered.Volume), 1e-12)
	assert.InEpsilon(t, total, floats.Sum(m.Basic.Volume), 1e-12)

	for _, nodes := range []*Nodes{m.Basic, m.Staggered} {
		for i, l := range nodes.MixingLength {
			assert.GreaterOrEqual(t, l, 0.0)
			assert.InDelta(t, l*l, nodes.MixingLengthSquared[i], 1e-6*l*l+1e-9)
			assert.InDelta(t, l*l*l, nodes.MixingLengthCubed[i], 1e-6*l*l*l+1e-9)
			assert.InDelta(t, nodes.Radii[i]*nodes.Radii[i], nodes.Area[i], 1e-3)
		}
	}
	assert.Zero(t, m.Basic.MixingLength[0])
	assert.InDelta(t, 0, m.Basic.MixingLength[len(rb)-1], 1e-6)

	// 压力在表面为零, 随深度增加
	assert.InDelta(t, 0, m.Basic.Pressure[len(rb)-1], 1e-3)
	for i := 1; i < len(rb); i++ {
		assert.Greater(t, m.Basic.Pressure[i-1], m.Basic.Pressure[i])
	}
}

func TestNewUniform_ConstantMixingLength(t *testing.T) {
	cfg := testConfig(4)
	cfg.MixingLengthProfile = Constant
	m, err := NewUniform(cfg)
	require.NoError(t, err)
	want := 0.25 * (cfg.OuterRadius - cfg.InnerRadius)
	for _, l := range m.Basic.MixingLength {
		assert.Equal(t, want, l)
	}
}

func TestNewUniform_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*model.Mesh)
	}{
		{"too few nodes", func(c *model.Mesh) { c.NumberOfNodes = 1 }},
		{"inner equals outer", func(c *model.Mesh) { c.InnerRadius = c.OuterRadius }},
		{"inner above outer", func(c *model.Mesh) { c.InnerRadius = c.OuterRadius + 1 }},
		{"unknown profile", func(c *model.Mesh) { c.MixingLengthProfile = "wobbly" }},
		{"no gravity", func(c *model.Mesh) { c.GravitationalAcceleration = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(10)
			tt.modify(&cfg)
			_, err := NewUniform(cfg)
			assert.True(t, errors.Is(err, model.ErrConfiguration), "got %v", err)
		})
	}
}

func TestQuantityAtBasicNodes_Linear(t *testing.T) {
	m, err := NewUniform(testConfig(8))
	require.NoError(t, err)

	// 线性场 (含外推的两端) 精确还原
	f := func(r float64) float64 { return 4000 - 3e-4*(r-m.InnerRadius) }
	staggered := make([]float64, m.Staggered.Number())
	for i, r := range m.Staggered.Radii {
		staggered[i] = f(r)
	}
	basic := m.QuantityAtBasicNodes(nil, staggered)
	for i, r := range m.Basic.Radii {
		assert.InDelta(t, f(r), basic[i], 1e-8)
	}

	ddr := m.DdrAtBasicNodes(nil, staggered)
	for _, d := range ddr {
		assert.InDelta(t, -3e-4, d, 1e-12)
	}
}

func TestQuantityAtBasicNodes_ReusesDst(t *testing.T) {
	m, err := NewUniform(testConfig(3))
	require.NoError(t, err)
	dst := make([]float64, 4)
	out := m.QuantityAtBasicNodes(dst, []float64{1, 2, 3})
	assert.Equal(t, &dst[0], &out[0])
	assert.InDeltaSlice(t, []float64{0.5, 1.5, 2.5, 3.5}, out, 1e-12)
}
