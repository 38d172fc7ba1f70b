package phase

import (
	"fmt"
	"math"

	"spider/model"
)

// Properties 某个 (T, P) 下的物性
type Properties struct {
	Density             float64
	HeatCapacity        float64
	ThermalConductivity float64
	ThermalExpansivity  float64
	Viscosity           float64
	MeltFraction        float64
}

// Evaluator 给定温度和压力的物性, 实现只依赖输入
type Evaluator interface {
	Evaluate(temperature, pressure float64) (Properties, error)
}

// Single 固相或液相端元
type Single struct {
	Name                string
	Density             Property
	HeatCapacity        Property
	ThermalConductivity Property
	ThermalExpansivity  Property
	Viscosity           Property
	MeltFraction        float64 // 固相为 0, 液相为 1
}

// NewSingle 由配置段构造端元
func NewSingle(name string, cfg model.Phase, meltFraction float64, root string) (*Single, error) {
	s := &Single{Name: name, MeltFraction: meltFraction}
	fields := []struct {
		key   string
		value string
		dst   *Property
	}{
		{"density", cfg.Density, &s.Density},
		{"heat_capacity", cfg.HeatCapacity, &s.HeatCapacity},
		{"thermal_conductivity", cfg.ThermalConductivity, &s.ThermalConductivity},
		{"thermal_expansivity", cfg.ThermalExpansivity, &s.ThermalExpansivity},
		{"viscosity", cfg.Viscosity, &s.Viscosity},
	}
	for _, f := range fields {
		p, err := ParseProperty(name+"."+f.key, f.value, root)
		if err != nil {
			return nil, err
		}
		*f.dst = p
	}
	return s, nil
}

func (s *Single) Evaluate(temperature, pressure float64) (Properties, error) {
	var (
		p   = Properties{MeltFraction: s.MeltFraction}
		err error
	)
	if !finite(temperature) || !finite(pressure) {
		return p, fmt.Errorf("%s: state T=%g P=%g is not finite: %w", s.Name, temperature, pressure, model.ErrDomain)
	}
	if p.Density, err = s.Density.At(temperature, pressure); err != nil {
		return p, err
	}
	if p.HeatCapacity, err = s.HeatCapacity.At(temperature, pressure); err != nil {
		return p, err
	}
	if p.ThermalConductivity, err = s.ThermalConductivity.At(temperature, pressure); err != nil {
		return p, err
	}
	if p.ThermalExpansivity, err = s.ThermalExpansivity.At(temperature, pressure); err != nil {
		return p, err
	}
	if p.Viscosity, err = s.Viscosity.At(temperature, pressure); err != nil {
		return p, err
	}
	return p, p.check(s.Name, temperature, pressure)
}

// 熔融区间内熔体分数的形状
const (
	Linear     = "linear"
	Smoothstep = "smoothstep"
)

// Mixed 在熔融区间内混合固相和液相端元
type Mixed struct {
	Solid    Evaluator
	Liquid   Evaluator
	Solidus  Curve
	Liquidus Curve

	LatentHeat float64 // J/kg

	// 粘度权重 0.5(1+tanh((φ-RheologicalMeltFraction)/RheologicalWidth))
	RheologicalMeltFraction float64
	RheologicalWidth        float64

	Shape string
}

// NewMixed 检查熔融区间的参数
func NewMixed(solid, liquid Evaluator, cfg model.PhaseMixed, root string) (*Mixed, error) {
	m := &Mixed{
		Solid:                   solid,
		Liquid:                  liquid,
		LatentHeat:              cfg.LatentHeatOfFusion,
		RheologicalMeltFraction: cfg.RheologicalMeltFraction,
		RheologicalWidth:        cfg.RheologicalWidth,
		Shape:                   cfg.MeltFractionShape,
	}
	if m.Shape == "" {
		m.Shape = Linear
	}
	if m.Shape != Linear && m.Shape != Smoothstep {
		return nil, fmt.Errorf("phase_mixed: melt_fraction_shape = %q is unknown: %w", m.Shape, model.ErrConfiguration)
	}
	if m.LatentHeat < 0 {
		return nil, fmt.Errorf("phase_mixed: latent_heat_of_fusion = %g is negative: %w", m.LatentHeat, model.ErrConfiguration)
	}
	if m.RheologicalWidth <= 0 {
		return nil, fmt.Errorf("phase_mixed: rheological_transition_width = %g must be positive: %w",
			m.RheologicalWidth, model.ErrConfiguration)
	}
	var err error
	if m.Solidus, err = ParseCurve("solidus", cfg.Solidus, root); err != nil {
		return nil, err
	}
	if m.Liquidus, err = ParseCurve("liquidus", cfg.Liquidus, root); err != nil {
		return nil, err
	}
	return m, nil
}

// MeltFraction 熔体分数及其对温度的导数
func (m *Mixed) MeltFraction(temperature, pressure float64) (phi, dphidT float64, err error) {
	solidus, err := m.Solidus.At(pressure)
	if err != nil {
		return 0, 0, err
	}
	liquidus, err := m.Liquidus.At(pressure)
	if err != nil {
		return 0, 0, err
	}
	gap := liquidus - solidus
	if !(gap > 0) {
		return 0, 0, fmt.Errorf("liquidus %g not above solidus %g at pressure %g: %w",
			liquidus, solidus, pressure, model.ErrDomain)
	}
	if !finite(temperature) {
		return 0, 0, fmt.Errorf("temperature %g is not finite: %w", temperature, model.ErrDomain)
	}

	x := (temperature - solidus) / gap
	if x <= 0 {
		return 0, 0, nil
	}
	if x >= 1 {
		return 1, 0, nil
	}
	switch m.Shape {
	case Smoothstep:
		return x * x * (3 - 2*x), 6 * x * (1 - x) / gap, nil
	default:
		return x, 1 / gap, nil
	}
}

func (m *Mixed) Evaluate(temperature, pressure float64) (Properties, error) {
	phi, dphidT, err := m.MeltFraction(temperature, pressure)
	if err != nil {
		return Properties{}, err
	}
	solid, err := m.Solid.Evaluate(temperature, pressure)
	if err != nil {
		return Properties{}, err
	}
	liquid, err := m.Liquid.Evaluate(temperature, pressure)
	if err != nil {
		return Properties{}, err
	}

	lerp := func(s, l float64) float64 { return phi*l + (1-phi)*s }
	w := 0.5 * (1 + math.Tanh((phi-m.RheologicalMeltFraction)/m.RheologicalWidth))

	p := Properties{
		// 比容按质量相加
		Density:             1 / (phi/liquid.Density + (1-phi)/solid.Density),
		HeatCapacity:        lerp(solid.HeatCapacity, liquid.HeatCapacity) + m.LatentHeat*dphidT,
		ThermalConductivity: lerp(solid.ThermalConductivity, liquid.ThermalConductivity),
		ThermalExpansivity:  lerp(solid.ThermalExpansivity, liquid.ThermalExpansivity),
		Viscosity:           math.Pow(10, w*math.Log10(liquid.Viscosity)+(1-w)*math.Log10(solid.Viscosity)),
		MeltFraction:        phi,
	}
	return p, p.check("mixed", temperature, pressure)
}

func (p Properties) check(name string, temperature, pressure float64) error {
	values := [...]float64{p.Density, p.HeatCapacity, p.ThermalConductivity, p.ThermalExpansivity, p.Viscosity, p.MeltFraction}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s: non-finite property at T=%g P=%g: %w", name, temperature, pressure, model.ErrDomain)
		}
	}
	if p.Density <= 0 || p.HeatCapacity <= 0 || p.Viscosity <= 0 {
		return fmt.Errorf("%s: non-positive density, heat capacity or viscosity at T=%g P=%g: %w",
			name, temperature, pressure, model.ErrDomain)
	}
	if p.MeltFraction < 0 || p.MeltFraction > 1 {
		return fmt.Errorf("%s: melt fraction %g outside [0, 1]: %w", name, p.MeltFraction, model.ErrDomain)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
