package calculator

import (
	"bytes"
	"context"
	"errors"
	"math"
	"sort"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"spider/integrator"
	"spider/model"
)

// shortParameters 液相算例, 粗网格, 十年
func shortParameters(t *testing.T) *model.Parameters {
	t.Helper()
	p, err := LoadParameters("testdata/liquid.ini", []byte("[mesh]\nnumber_of_nodes = 10\n[solver]\nend_time = 10\n"))
	require.NoError(t, err)
	return p
}

func TestNewSolver_Method(t *testing.T) {
	p := shortParameters(t)
	s, err := NewSolver(p)
	require.NoError(t, err)
	assert.Same(t, integrator.ROS2, s.Method)

	p.Solver.Method = "Rodas3"
	s, err = NewSolver(p)
	require.NoError(t, err)
	assert.Same(t, integrator.Rodas3, s.Method)
}

func TestSolver_InitialTemperature(t *testing.T) {
	s, err := NewSolver(shortParameters(t))
	require.NoError(t, err)
	initial := s.InitialTemperature()
	require.Len(t, initial, 10)
	assert.Equal(t, 4000.0, initial[0])
	assert.InDelta(t, 1800, initial[9], 1e-9)
	for i := 1; i < len(initial); i++ {
		assert.InDelta(t, -2200.0/9, initial[i]-initial[i-1], 1e-9)
	}
}

func TestNewSolver_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*model.Parameters)
	}{
		{"mesh", func(p *model.Parameters) { p.Mesh.NumberOfNodes = 1 }},
		{"boundary", func(p *model.Parameters) { p.BoundaryConditions.InnerBoundaryCondition = 9 }},
		{"phase", func(p *model.Parameters) { p.PhaseMixed.Phase = "plasma" }},
		{"radionuclide", func(p *model.Parameters) { p.Radionuclides = []model.Radionuclide{{Name: "x"}} }},
		{"time span", func(p *model.Parameters) { p.Solver.EndTime = p.Solver.StartTime }},
		{"method", func(p *model.Parameters) { p.Solver.Method = "euler" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := shortParameters(t)
			tt.modify(p)
			_, err := NewSolver(p)
			assert.True(t, errors.Is(err, model.ErrConfiguration), "got %v", err)
		})
	}
}

func TestSolver_DTdtBatch(t *testing.T) {
	s, err := NewSolver(shortParameters(t))
	require.NoError(t, err)

	initial := s.InitialTemperature()
	cooler := append([]float64(nil), initial...)
	floats.AddConst(-100, cooler)
	times := []float64{0, 1e7}

	batch := mat.NewDense(len(initial), 2, nil)
	batch.SetCol(0, initial)
	batch.SetCol(1, cooler)
	out, err := s.DTdtBatch(times, batch)
	require.NoError(t, err)

	for j, col := range [][]float64{initial, cooler} {
		want, err := s.DTdt(times[j], col, nil)
		require.NoError(t, err)
		assert.Equal(t, want, mat.Col(nil, j, out))
	}

	_, err = s.DTdtBatch([]float64{0}, batch)
	assert.Error(t, err)
}

func TestSolver_DTdtChecksInput(t *testing.T) {
	s, err := NewSolver(shortParameters(t))
	require.NoError(t, err)

	_, err = s.DTdt(0, s.InitialTemperature(), make([]float64, 3))
	assert.Error(t, err)

	// NaN 温度不能产生 NaN 导数
	temperature := s.InitialTemperature()
	temperature[3] = math.NaN()
	_, err = s.DTdt(0, temperature, nil)
	assert.True(t, errors.Is(err, model.ErrDomain), "got %v", err)
}

// energy 交错节点上 Σ capacitance × volume × T
func energy(s *Solver, temperature []float64) float64 {
	var total float64
	for i, T := range temperature {
		total += s.State().PhaseStaggered.Capacitance[i] * s.Mesh.Staggered.Volume[i] * T
	}
	return total
}

func closedParameters(t *testing.T) *model.Parameters {
	p := shortParameters(t)
	p.BoundaryConditions.InnerBoundaryCondition = int(InnerHeatFlux)
	p.BoundaryConditions.InnerBoundaryValue = 0
	p.BoundaryConditions.OuterBoundaryCondition = int(OuterHeatFlux)
	p.BoundaryConditions.OuterBoundaryValue = 0
	p.Energy.Radionuclides = false
	return p
}

func TestSolver_EnergyConservedByDTdt(t *testing.T) {
	s, err := NewSolver(closedParameters(t))
	require.NoError(t, err)

	temperature := s.InitialTemperature()
	temperature[9] -= 700 // 使顶部对流
	dTdt, err := s.DTdt(0, temperature, nil)
	require.NoError(t, err)

	var sum, scale float64
	for i, d := range dTdt {
		c := s.State().PhaseStaggered.Capacitance[i] * s.Mesh.Staggered.Volume[i]
		sum += c * d
		scale += math.Abs(c * d)
	}
	require.Greater(t, scale, 0.0)
	assert.Less(t, math.Abs(sum), 1e-10*scale)
}

func TestSolver_EnergyConservedBySolve(t *testing.T) {
	p := closedParameters(t)
	p.Solver.EndTime = 100
	s, err := NewSolver(p)
	require.NoError(t, err)

	sol, err := s.Solve(context.Background())
	require.NoError(t, err)
	_, cols := sol.Temperature.Dims()
	require.Greater(t, cols, 1)

	// 物性为常数, 最后一次求值缓存的热容适用于所有时刻
	before := energy(s, sol.Profile(0))
	after := energy(s, sol.Profile(cols-1))
	assert.InEpsilon(t, before, after, 1e-8)
}

// 混合相: 潜热计入热容, 封闭边界时总热量的变化只来自放射性生热
func TestSolver_MixedPhaseEnergyBalance(t *testing.T) {
	p, err := LoadParameters("testdata/mixed.ini")
	require.NoError(t, err)
	p.BoundaryConditions.InnerBoundaryCondition = int(InnerHeatFlux)
	p.BoundaryConditions.OuterBoundaryCondition = int(OuterHeatFlux)
	s, err := NewSolver(p)
	require.NoError(t, err)

	dTdt, err := s.DTdt(0, s.InitialTemperature(), nil)
	require.NoError(t, err)
	st := s.State()

	var mixed int
	for _, phi := range st.PhaseStaggered.MeltFraction {
		if phi > 0 && phi < 1 {
			mixed++
		}
	}
	require.Greater(t, mixed, 0, "no node inside the melting interval")

	var stored, produced, scale float64
	for i, d := range dTdt {
		v := s.Mesh.Staggered.Volume[i]
		stored += st.PhaseStaggered.Capacitance[i] * v * d
		scale += math.Abs(st.PhaseStaggered.Capacitance[i] * v * d)
		for _, r := range s.Radionuclides {
			produced += st.PhaseStaggered.Density[i] * v * r.HeatingRate(0)
		}
	}
	require.Greater(t, produced, 0.0)
	assert.InDelta(t, produced, stored, 1e-9*scale)
}

func TestSolver_SolveMixedPhase(t *testing.T) {
	p, err := LoadParameters("testdata/mixed.ini")
	require.NoError(t, err)
	s, err := NewSolver(p)
	require.NoError(t, err)

	sol, err := s.Solve(context.Background())
	require.NoError(t, err)
	years := sol.TimesYears()
	assert.InDelta(t, 10.0, years[len(years)-1], 1e-9)
	for j := range sol.Times {
		for _, T := range sol.Profile(j) {
			require.False(t, math.IsNaN(T) || math.IsInf(T, 0))
		}
	}
	for _, phi := range s.State().PhaseStaggered.MeltFraction {
		assert.GreaterOrEqual(t, phi, 0.0)
		assert.LessOrEqual(t, phi, 1.0)
	}
}

func TestSolver_Solve(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New()
	logger.Out = &buf
	logger.Level = log.InfoLevel

	hub := NewCalcHub(1 << 16)
	s, err := NewSolver(shortParameters(t), WithLogger(logger), WithCalcHub(hub))
	require.NoError(t, err)
	assert.Nil(t, s.Solution())

	sol, err := s.Solve(context.Background())
	require.NoError(t, err)
	assert.Same(t, sol, s.Solution())

	rows, cols := sol.Temperature.Dims()
	assert.Equal(t, 10, rows)
	assert.Equal(t, len(sol.Times), cols)
	assert.Equal(t, sol.Steps+1, cols)
	assert.InDelta(t, 10.0, sol.TimesYears()[cols-1], 1e-9)
	assert.Equal(t, s.InitialTemperature(), sol.Profile(0))
	// 灰体辐射使表面冷却
	surface := sol.Surface()
	assert.Less(t, surface[cols-1], surface[0])

	var frames []model.Frame
	for f := range hub.Frames() {
		frames = append(frames, f)
	}
	require.NotEmpty(t, frames)
	assert.Equal(t, 0, frames[0].Step)
	assert.Equal(t, sol.Steps+1, len(frames)+hub.Dropped())
	assert.Contains(t, buf.String(), "solve finished")
}

func TestSolver_SolveCancelled(t *testing.T) {
	s, err := NewSolver(shortParameters(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sol, err := s.Solve(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, sol)
	_, cols := sol.Temperature.Dims()
	assert.Equal(t, 1, cols)
}

// superAdiabaticMisfit 内部基本节点上 Σ|dTdr - dTdrs| / Σ|dTdrs|
func superAdiabaticMisfit(t *testing.T, s *Solver, temperature []float64) float64 {
	_, err := s.DTdt(0, temperature, nil)
	require.NoError(t, err)
	st := s.State()
	var misfit, scale float64
	for i := 1; i < len(st.DTdr)-1; i++ {
		misfit += math.Abs(st.SuperAdiabatic[i])
		scale += math.Abs(st.PhaseBasic.DTdrs[i])
	}
	return misfit / scale
}

func TestSolver_MagmaOceanCooling(t *testing.T) {
	if testing.Short() {
		t.Skip("integrates a million years")
	}
	p, err := LoadParameters("testdata/liquid.ini")
	require.NoError(t, err)
	s, err := NewSolver(p)
	require.NoError(t, err)

	sol, err := s.Solve(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1e6, sol.TimesYears()[len(sol.Times)-1], 1e-6)

	// 初始线性剖面的顶部对流热流远大于灰体辐射, 表面先升温不到 1 K, 一年内回落到初值以下
	surface := sol.Surface()
	adjusted := 1
	for adjusted < len(surface) && surface[adjusted] >= surface[0] {
		adjusted++
	}
	require.Less(t, adjusted, len(surface))
	assert.Less(t, sol.Times[adjusted], SecondsPerYear)
	assert.Less(t, floats.Max(surface[:adjusted]), surface[0]+1)

	// 对流层重组时表面可有毫开量级的停顿, 以 5% 的时间窗判断单调冷却
	for j := adjusted + 1; j < len(surface); j++ {
		k := sort.SearchFloat64s(sol.Times, 0.95*sol.Times[j]) - 1
		if k < adjusted {
			continue
		}
		assert.Less(t, surface[j], surface[k], "surface warmed between %g and %g years",
			sol.Times[k]/SecondsPerYear, sol.Times[j]/SecondsPerYear)
	}
	assert.Less(t, surface[len(surface)-1], 300.0)

	// 内边界绝热, 外边界只放热, 总能量逐步严格下降
	previous := energy(s, sol.Profile(0))
	for j := 1; j < len(sol.Times); j++ {
		e := energy(s, sol.Profile(j))
		require.Less(t, e, previous, "energy rose at step %d", j)
		previous = e
	}

	initial := superAdiabaticMisfit(t, s, sol.Profile(0))
	final := superAdiabaticMisfit(t, s, sol.Profile(len(sol.Times)-1))
	assert.Less(t, final, 0.01*initial)
}
