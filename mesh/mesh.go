// Package mesh 球壳的径向交错网格.
//
// 基本节点在单元界面上 (N+1 个, 下标 0 为内边界), 交错节点在单元中心 (N 个).
// 面积与体积省略 4π, 只以比值出现
package mesh

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"spider/model"
)

// 混合长度分布
const (
	NearestBoundary = "nearest_boundary"
	Constant        = "constant"
)

// Nodes 一组节点的几何量
type Nodes struct {
	Radii               []float64
	Area                []float64
	Volume              []float64
	MixingLength        []float64
	MixingLengthSquared []float64
	MixingLengthCubed   []float64
	Pressure            []float64 // 静压, Adams-Williamson
}

// Number 节点个数
func (n *Nodes) Number() int {
	return len(n.Radii)
}

// StaggeredMesh 构造后不再修改
type StaggeredMesh struct {
	Basic     *Nodes
	Staggered *Nodes

	InnerRadius float64
	OuterRadius float64
	Gravity     float64 // 大小, m/s^2
}

// NewUniform 内外半径之间 N 个等距单元
func NewUniform(cfg model.Mesh) (*StaggeredMesh, error) {
	n := cfg.NumberOfNodes
	switch {
	case n < 2:
		return nil, fmt.Errorf("mesh: number_of_nodes = %d, need at least 2: %w", n, model.ErrConfiguration)
	case cfg.InnerRadius <= 0:
		return nil, fmt.Errorf("mesh: inner_radius = %g must be positive: %w", cfg.InnerRadius, model.ErrConfiguration)
	case cfg.InnerRadius >= cfg.OuterRadius:
		return nil, fmt.Errorf("mesh: inner_radius = %g >= outer_radius = %g: %w",
			cfg.InnerRadius, cfg.OuterRadius, model.ErrConfiguration)
	case cfg.GravitationalAcceleration <= 0:
		return nil, fmt.Errorf("mesh: gravitational_acceleration = %g must be positive: %w",
			cfg.GravitationalAcceleration, model.ErrConfiguration)
	}

	basicRadii := floats.Span(make([]float64, n+1), cfg.InnerRadius, cfg.OuterRadius)
	staggeredRadii := make([]float64, n)
	for i := range staggeredRadii {
		staggeredRadii[i] = 0.5 * (basicRadii[i] + basicRadii[i+1])
	}

	m := &StaggeredMesh{
		InnerRadius: cfg.InnerRadius,
		OuterRadius: cfg.OuterRadius,
		Gravity:     cfg.GravitationalAcceleration,
	}

	var err error
	if m.Basic, err = m.newNodes(basicRadii, cfg); err != nil {
		return nil, err
	}
	if m.Staggered, err = m.newNodes(staggeredRadii, cfg); err != nil {
		return nil, err
	}

	// 交错节点占据两侧界面之间的球壳
	for i := range m.Staggered.Volume {
		m.Staggered.Volume[i] = shellVolume(basicRadii[i], basicRadii[i+1])
	}
	// 基本节点的体积跨相邻两个单元中心, 两端为半个单元
	for i := range m.Basic.Volume {
		lo, hi := basicRadii[i], basicRadii[i]
		if i > 0 {
			lo = staggeredRadii[i-1]
		}
		if i < n {
			hi = staggeredRadii[i]
		}
		m.Basic.Volume[i] = shellVolume(lo, hi)
	}
	return m, nil
}

func (m *StaggeredMesh) newNodes(radii []float64, cfg model.Mesh) (*Nodes, error) {
	num := len(radii)
	nodes := &Nodes{
		Radii:               radii,
		Area:                make([]float64, num),
		Volume:              make([]float64, num),
		MixingLength:        make([]float64, num),
		MixingLengthSquared: make([]float64, num),
		MixingLengthCubed:   make([]float64, num),
		Pressure:            make([]float64, num),
	}

	for i, r := range radii {
		nodes.Area[i] = r * r

		switch cfg.MixingLengthProfile {
		case NearestBoundary, "":
			nodes.MixingLength[i] = math.Min(r-cfg.InnerRadius, cfg.OuterRadius-r)
		case Constant:
			nodes.MixingLength[i] = 0.25 * (cfg.OuterRadius - cfg.InnerRadius)
		default:
			return nil, fmt.Errorf("mesh: mixing_length_profile = %q is unknown: %w",
				cfg.MixingLengthProfile, model.ErrConfiguration)
		}
		nodes.MixingLength[i] = math.Max(nodes.MixingLength[i], 0)
		nodes.MixingLengthSquared[i] = nodes.MixingLength[i] * nodes.MixingLength[i]
		nodes.MixingLengthCubed[i] = nodes.MixingLengthSquared[i] * nodes.MixingLength[i]

		nodes.Pressure[i] = adamsWilliamsonPressure(r, cfg)
	}
	return nodes, nil
}

// adamsWilliamsonPressure 积分 dP/dr = -ρ g, 其中 ρ = ρs exp(β (R - r))
func adamsWilliamsonPressure(r float64, cfg model.Mesh) float64 {
	depth := cfg.OuterRadius - r
	if cfg.Beta == 0 {
		return cfg.SurfaceDensity * cfg.GravitationalAcceleration * depth
	}
	return cfg.SurfaceDensity * cfg.GravitationalAcceleration / cfg.Beta * math.Expm1(cfg.Beta*depth)
}

func shellVolume(inner, outer float64) float64 {
	return (outer*outer*outer - inner*inner*inner) / 3
}

// QuantityAtBasicNodes 交错节点上的量插值到基本节点.
// 两个边界节点线性外推, 有边界条件时由边界条件覆盖. dst 为 nil 时新分配
func (m *StaggeredMesh) QuantityAtBasicNodes(dst, staggered []float64) []float64 {
	rs := m.Staggered.Radii
	rb := m.Basic.Radii
	n := len(rs)
	if len(staggered) != n {
		panic(fmt.Sprintf("mesh: staggered field has %d values, want %d", len(staggered), n))
	}
	if dst == nil {
		dst = make([]float64, n+1)
	}

	for i := 1; i < n; i++ {
		w := (rb[i] - rs[i-1]) / (rs[i] - rs[i-1])
		dst[i] = staggered[i-1] + w*(staggered[i]-staggered[i-1])
	}
	dst[0] = staggered[0] + (rb[0]-rs[0])*(staggered[1]-staggered[0])/(rs[1]-rs[0])
	dst[n] = staggered[n-1] + (rb[n]-rs[n-1])*(staggered[n-1]-staggered[n-2])/(rs[n-1]-rs[n-2])
	return dst
}

// DdrAtBasicNodes 交错节点上的量在基本节点处的径向导数.
// 边界节点取相邻内部界面的导数
func (m *StaggeredMesh) DdrAtBasicNodes(dst, staggered []float64) []float64 {
	rs := m.Staggered.Radii
	n := len(rs)
	if len(staggered) != n {
		panic(fmt.Sprintf("mesh: staggered field has %d values, want %d", len(staggered), n))
	}
	if dst == nil {
		dst = make([]float64, n+1)
	}

	for i := 1; i < n; i++ {
		dst[i] = (staggered[i] - staggered[i-1]) / (rs[i] - rs[i-1])
	}
	dst[0] = dst[1]
	dst[n] = dst[n-1]
	return dst
}
