package calculator

import (
	"fmt"
	"math"

	"spider/atmosphere"
	"spider/mesh"
	"spider/model"
)

// 斯特藩-玻尔兹曼常数, W/(m^2 K^4)
const StefanBoltzmann = 5.670374419e-8

type InnerKind int

const (
	InnerCoreCooling InnerKind = 1 // 等温核, 温度跟随最底层单元
	InnerHeatFlux    InnerKind = 2
	InnerTemperature InnerKind = 3
)

type OuterKind int

const (
	OuterGreyBody          OuterKind = 1
	OuterSteamAtmosphere   OuterKind = 2
	OuterCoupledAtmosphere OuterKind = 3
	OuterHeatFlux          OuterKind = 4
	OuterTemperature       OuterKind = 5
)

func (k InnerKind) String() string {
	switch k {
	case InnerCoreCooling:
		return "core cooling"
	case InnerHeatFlux:
		return "heat flux"
	case InnerTemperature:
		return "temperature"
	}
	return fmt.Sprintf("inner kind %d", int(k))
}

func (k OuterKind) String() string {
	switch k {
	case OuterGreyBody:
		return "grey body"
	case OuterSteamAtmosphere:
		return "steam atmosphere"
	case OuterCoupledAtmosphere:
		return "coupled atmosphere"
	case OuterHeatFlux:
		return "heat flux"
	case OuterTemperature:
		return "temperature"
	}
	return fmt.Sprintf("outer kind %d", int(k))
}

// InnerBoundary Value 为热流 (W/m^2) 或温度 (K), 取决于 Kind
type InnerBoundary struct {
	Kind  InnerKind
	Value float64
}

type OuterBoundary struct {
	Kind  OuterKind
	Value float64
}

type BoundaryConditions struct {
	Inner InnerBoundary
	Outer OuterBoundary

	Emissivity             float64
	EquilibriumTemperature float64

	// ρ_core c_core r_core^3 / 3
	CoreCapacity float64

	atmosphere atmosphere.Provider
}

// NewBoundaryConditions 校验边界类型, 外边界 2/3 需要 provider
func NewBoundaryConditions(cfg model.BoundaryConditions, provider atmosphere.Provider) (*BoundaryConditions, error) {
	bc := &BoundaryConditions{
		Inner:                  InnerBoundary{Kind: InnerKind(cfg.InnerBoundaryCondition), Value: cfg.InnerBoundaryValue},
		Outer:                  OuterBoundary{Kind: OuterKind(cfg.OuterBoundaryCondition), Value: cfg.OuterBoundaryValue},
		Emissivity:             cfg.Emissivity,
		EquilibriumTemperature: cfg.EquilibriumTemperature,
		atmosphere:             provider,
	}

	switch bc.Inner.Kind {
	case InnerCoreCooling:
		if !(cfg.CoreRadius > 0 && cfg.CoreDensity > 0 && cfg.CoreHeatCapacity > 0) {
			return nil, fmt.Errorf("boundary_conditions: core cooling needs positive core_radius, core_density "+
				"and core_heat_capacity: %w", model.ErrConfiguration)
		}
		bc.CoreCapacity = cfg.CoreDensity * cfg.CoreHeatCapacity * math.Pow(cfg.CoreRadius, 3) / 3
	case InnerHeatFlux:
	case InnerTemperature:
		if !(bc.Inner.Value > 0) {
			return nil, fmt.Errorf("boundary_conditions: inner temperature %g: %w", bc.Inner.Value, model.ErrConfiguration)
		}
	default:
		return nil, fmt.Errorf("boundary_conditions: inner_boundary_condition = %d is unknown: %w",
			cfg.InnerBoundaryCondition, model.ErrConfiguration)
	}

	switch bc.Outer.Kind {
	case OuterGreyBody:
		if bc.Emissivity < 0 || bc.Emissivity > 1 {
			return nil, fmt.Errorf("boundary_conditions: emissivity = %g outside [0, 1]: %w", bc.Emissivity, model.ErrConfiguration)
		}
	case OuterSteamAtmosphere, OuterCoupledAtmosphere:
		if provider == nil {
			return nil, fmt.Errorf("boundary_conditions: %v needs an atmosphere: %w", bc.Outer.Kind, model.ErrConfiguration)
		}
	case OuterHeatFlux:
	case OuterTemperature:
		if !(bc.Outer.Value > 0) {
			return nil, fmt.Errorf("boundary_conditions: outer temperature %g: %w", bc.Outer.Value, model.ErrConfiguration)
		}
	default:
		return nil, fmt.Errorf("boundary_conditions: outer_boundary_condition = %d is unknown: %w",
			cfg.OuterBoundaryCondition, model.ErrConfiguration)
	}
	return bc, nil
}

// GreyBodyFlux ε σ (Ts^4 - Teq^4)
func (bc *BoundaryConditions) GreyBodyFlux(surfaceTemperature float64) float64 {
	ts2 := surfaceTemperature * surfaceTemperature
	teq2 := bc.EquilibriumTemperature * bc.EquilibriumTemperature
	return bc.Emissivity * StefanBoltzmann * (ts2*ts2 - teq2*teq2)
}

// ConformTemperature 固定温度边界: 覆盖边界节点温度并按固定值重算梯度
func (bc *BoundaryConditions) ConformTemperature(m *mesh.StaggeredMesh, staggered, basic, dTdr []float64) {
	rb, rs := m.Basic.Radii, m.Staggered.Radii
	if bc.Inner.Kind == InnerTemperature {
		basic[0] = bc.Inner.Value
		dTdr[0] = (staggered[0] - bc.Inner.Value) / (rs[0] - rb[0])
	}
	if bc.Outer.Kind == OuterTemperature {
		n, ns := len(basic)-1, len(staggered)-1
		basic[n] = bc.Outer.Value
		dTdr[n] = (bc.Outer.Value - staggered[ns]) / (rb[n] - rs[ns])
	}
}

// Apply 覆盖边界节点的热流, 固定温度边界保留 State 计算的热流
func (bc *BoundaryConditions) Apply(s *State) error {
	flux := s.HeatFlux
	n := len(flux) - 1

	switch bc.Outer.Kind {
	case OuterGreyBody:
		flux[n] = bc.GreyBodyFlux(s.Temperature[n])
	case OuterSteamAtmosphere, OuterCoupledAtmosphere:
		q, err := bc.atmosphere.Flux(s.Temperature[n], s.Time)
		if err != nil {
			return fmt.Errorf("%v: %w", bc.Outer.Kind, err)
		}
		flux[n] = q
	case OuterHeatFlux:
		flux[n] = bc.Outer.Value
	}

	switch bc.Inner.Kind {
	case InnerCoreCooling:
		// 核与最底层单元共同冷却: q0 r0^2 = C_core / (C_core + C_0) q1 r1^2
		m := s.Mesh()
		c0 := s.PhaseStaggered.Capacitance[0] * m.Staggered.Volume[0]
		area := m.Basic.Area
		flux[0] = bc.CoreCapacity / (bc.CoreCapacity + c0) * flux[1] * area[1] / area[0]
	case InnerHeatFlux:
		flux[0] = bc.Inner.Value
	}
	return nil
}
