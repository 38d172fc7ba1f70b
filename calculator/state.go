package calculator

import (
	"fmt"
	"math"

	"spider/mesh"
	"spider/model"
	"spider/phase"
)

// CriticalReynoldsNumber 粘性/无粘对流的分界, 恰好等于时按粘性处理
const CriticalReynoldsNumber = 9.0 / 8

func viscousRegime(re float64) bool {
	return re <= CriticalReynoldsNumber
}

// Fields 单次求值得到的各节点物理量
type Fields struct {
	// staggered
	TemperatureStaggered []float64
	Heating              []float64 // K/s

	// basic
	Temperature      []float64
	DTdr             []float64
	SuperAdiabatic   []float64 // dTdr - dTdrs
	IsConvective     []bool
	ViscousVelocity  []float64
	InviscidVelocity []float64
	ReynoldsNumber   []float64
	EddyDiffusivity  []float64
	ConductiveFlux   []float64
	ConvectiveFlux   []float64
	HeatFlux         []float64 // W/m^2, positive outwards
}

func newFields(nStaggered, nBasic int) Fields {
	return Fields{
		TemperatureStaggered: make([]float64, nStaggered),
		Heating:              make([]float64, nStaggered),
		Temperature:          make([]float64, nBasic),
		DTdr:                 make([]float64, nBasic),
		SuperAdiabatic:       make([]float64, nBasic),
		IsConvective:         make([]bool, nBasic),
		ViscousVelocity:      make([]float64, nBasic),
		InviscidVelocity:     make([]float64, nBasic),
		ReynoldsNumber:       make([]float64, nBasic),
		EddyDiffusivity:      make([]float64, nBasic),
		ConductiveFlux:       make([]float64, nBasic),
		ConvectiveFlux:       make([]float64, nBasic),
		HeatFlux:             make([]float64, nBasic),
	}
}

// State 温度场求值的缓存, 每次 Update 全部重算
// Update 失败时保留上一次的结果
type State struct {
	Fields
	Time float64

	PhaseBasic     *phase.State
	PhaseStaggered *phase.State

	mesh          *mesh.StaggeredMesh
	bc            *BoundaryConditions
	energy        model.Energy
	radionuclides []Radionuclide

	spare Fields
}

func NewState(m *mesh.StaggeredMesh, evaluator phase.Evaluator, bc *BoundaryConditions,
	energy model.Energy, radionuclides []Radionuclide) *State {
	ns, nb := m.Staggered.Number(), m.Basic.Number()
	return &State{
		Fields:         newFields(ns, nb),
		PhaseBasic:     phase.NewState(evaluator, m.Gravity, nb),
		PhaseStaggered: phase.NewState(evaluator, m.Gravity, ns),
		mesh:           m,
		bc:             bc,
		energy:         energy,
		radionuclides:  radionuclides,
		spare:          newFields(ns, nb),
	}
}

// Mesh 所在的网格
func (s *State) Mesh() *mesh.StaggeredMesh {
	return s.mesh
}

// Update 由交错节点温度计算各节点的热流与内热源
func (s *State) Update(temperature []float64, time float64) error {
	switch {
	case s.energy.GravitationalSeparation:
		return fmt.Errorf("gravitational separation flux: %w", model.ErrNotImplemented)
	case s.energy.Mixing:
		return fmt.Errorf("mixing flux: %w", model.ErrNotImplemented)
	case s.energy.Tidal:
		return fmt.Errorf("tidal heating: %w", model.ErrNotImplemented)
	}
	m := s.mesh
	if len(temperature) != m.Staggered.Number() {
		return fmt.Errorf("state: got %d temperatures, want %d", len(temperature), m.Staggered.Number())
	}

	next := &s.spare
	copy(next.TemperatureStaggered, temperature)
	m.QuantityAtBasicNodes(next.Temperature, temperature)
	m.DdrAtBasicNodes(next.DTdr, temperature)
	s.bc.ConformTemperature(m, temperature, next.Temperature, next.DTdr)

	staggered, err := s.PhaseStaggered.Evaluate(temperature, m.Staggered.Pressure)
	if err != nil {
		return fmt.Errorf("staggered nodes: %w", err)
	}
	basic, err := s.PhaseBasic.Evaluate(next.Temperature, m.Basic.Pressure)
	if err != nil {
		return fmt.Errorf("basic nodes: %w", err)
	}

	g := m.Gravity
	nodes := m.Basic
	for i := range next.Temperature {
		sa := next.DTdr[i] - basic.DTdrs[i]
		next.SuperAdiabatic[i] = sa
		convective := sa < 0
		next.IsConvective[i] = convective

		nu := basic.KinematicViscosity[i]
		prefactor := -g * basic.ThermalExpansivity[i] * sa
		var viscous, inviscid float64
		if convective {
			viscous = prefactor * nodes.MixingLengthCubed[i] / (18 * nu)
			inviscid = math.Sqrt(math.Max(prefactor*nodes.MixingLengthSquared[i]/16, 0))
		}
		re := viscous * nodes.MixingLength[i] / nu
		next.ViscousVelocity[i] = viscous
		next.InviscidVelocity[i] = inviscid
		next.ReynoldsNumber[i] = re
		if viscousRegime(re) {
			next.EddyDiffusivity[i] = viscous * nodes.MixingLength[i]
		} else {
			next.EddyDiffusivity[i] = inviscid * nodes.MixingLength[i]
		}

		next.ConductiveFlux[i], next.ConvectiveFlux[i] = 0, 0
		if s.energy.Conduction {
			next.ConductiveFlux[i] = -basic.ThermalConductivity[i] * next.DTdr[i]
		}
		if s.energy.Convection {
			next.ConvectiveFlux[i] = -basic.Capacitance[i] * next.EddyDiffusivity[i] * sa
		}
		next.HeatFlux[i] = next.ConductiveFlux[i] + next.ConvectiveFlux[i]
	}

	for i := range next.Heating {
		next.Heating[i] = 0
	}
	if s.energy.Radionuclides {
		for _, r := range s.radionuclides {
			rate := r.HeatingRate(time)
			for i := range next.Heating {
				next.Heating[i] += rate * staggered.Density[i] / staggered.Capacitance[i]
			}
		}
	}

	s.PhaseStaggered.Commit()
	s.PhaseBasic.Commit()
	s.Fields, s.spare = s.spare, s.Fields
	s.Time = time
	return nil
}
