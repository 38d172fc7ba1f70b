package phase

import "fmt"

// Arrays 一次求值中各节点的物性
type Arrays struct {
	Temperature         []float64
	Pressure            []float64
	Density             []float64
	HeatCapacity        []float64
	ThermalConductivity []float64
	ThermalExpansivity  []float64
	Viscosity           []float64
	MeltFraction        []float64

	KinematicViscosity []float64
	Capacitance        []float64 // density * heat capacity
	DTdrs              []float64 // 绝热温度梯度
}

func newArrays(n int) Arrays {
	return Arrays{
		Temperature:         make([]float64, n),
		Pressure:            make([]float64, n),
		Density:             make([]float64, n),
		HeatCapacity:        make([]float64, n),
		ThermalConductivity: make([]float64, n),
		ThermalExpansivity:  make([]float64, n),
		Viscosity:           make([]float64, n),
		MeltFraction:        make([]float64, n),
		KinematicViscosity:  make([]float64, n),
		Capacitance:         make([]float64, n),
		DTdrs:               make([]float64, n),
	}
}

// State 一组节点的物性缓存, 每次 Update 覆盖, Update 失败时保留上一次的值
type State struct {
	Arrays

	evaluator Evaluator
	gravity   float64
	spare     Arrays
}

// NewState n 个节点, 重力加速度大小为 gravity
func NewState(evaluator Evaluator, gravity float64, n int) *State {
	return &State{
		Arrays:    newArrays(n),
		evaluator: evaluator,
		gravity:   gravity,
		spare:     newArrays(n),
	}
}

// Number 节点个数
func (s *State) Number() int {
	return len(s.Temperature)
}

// Update 计算各节点物性并提交
func (s *State) Update(temperature, pressure []float64) error {
	if _, err := s.Evaluate(temperature, pressure); err != nil {
		return err
	}
	s.Commit()
	return nil
}

// Evaluate 填充待提交的数组并返回, Commit 之前已提交的数组不变
func (s *State) Evaluate(temperature, pressure []float64) (*Arrays, error) {
	n := s.Number()
	if len(temperature) != n || len(pressure) != n {
		return nil, fmt.Errorf("phase state: got %d temperatures and %d pressures, want %d",
			len(temperature), len(pressure), n)
	}

	next := &s.spare
	for i := range temperature {
		p, err := s.evaluator.Evaluate(temperature[i], pressure[i])
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		next.Temperature[i] = temperature[i]
		next.Pressure[i] = pressure[i]
		next.Density[i] = p.Density
		next.HeatCapacity[i] = p.HeatCapacity
		next.ThermalConductivity[i] = p.ThermalConductivity
		next.ThermalExpansivity[i] = p.ThermalExpansivity
		next.Viscosity[i] = p.Viscosity
		next.MeltFraction[i] = p.MeltFraction

		next.KinematicViscosity[i] = p.Viscosity / p.Density
		next.Capacitance[i] = p.Density * p.HeatCapacity
		next.DTdrs[i] = -s.gravity * p.ThermalExpansivity * temperature[i] / p.HeatCapacity
	}
	return next, nil
}

// Commit 使最近一次成功的 Evaluate 生效
func (s *State) Commit() {
	s.Arrays, s.spare = s.spare, s.Arrays
}
