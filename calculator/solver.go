package calculator

import (
	"context"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"spider/atmosphere"
	"spider/integrator"
	"spider/mesh"
	"spider/model"
)

type Option func(*Solver)

// WithLogger 注入日志, 默认不输出
func WithLogger(logger log.FieldLogger) Option {
	return func(s *Solver) { s.logger = logger }
}

// WithAtmosphere 外边界 2/3 使用的大气模型
func WithAtmosphere(provider atmosphere.Provider) Option {
	return func(s *Solver) { s.provider = provider }
}

// WithCalcHub 每个接受的时间步向 hub 推送一帧温度剖面
func WithCalcHub(hub *CalcHub) Option {
	return func(s *Solver) { s.hub = hub }
}

// Solver 岩浆洋一维径向热演化
type Solver struct {
	Parameters    *model.Parameters
	Mesh          *mesh.StaggeredMesh
	Boundary      *BoundaryConditions
	Radionuclides []Radionuclide

	StartTime float64 // s
	EndTime   float64 // s
	Method    *integrator.Method

	state    *State
	initial  []float64
	energy   []float64 // 基本节点上的 q * area
	logger   log.FieldLogger
	provider atmosphere.Provider
	hub      *CalcHub
	solution *Solution
}

// discardLogger 未注入日志时使用
func discardLogger() log.FieldLogger {
	logger := log.New()
	logger.Out = io.Discard
	return logger
}

func NewSolver(params *model.Parameters, opts ...Option) (*Solver, error) {
	s := &Solver{Parameters: params, logger: discardLogger()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = discardLogger()
	}

	m, err := mesh.NewUniform(params.Mesh)
	if err != nil {
		return nil, err
	}
	if s.provider == nil && OuterKind(params.BoundaryConditions.OuterBoundaryCondition) == OuterSteamAtmosphere {
		s.provider = atmosphere.Zahnle1988{}
	}
	bc, err := NewBoundaryConditions(params.BoundaryConditions, s.provider)
	if err != nil {
		return nil, err
	}
	evaluator, err := NewEvaluator(params)
	if err != nil {
		return nil, err
	}
	for _, cfg := range params.Radionuclides {
		r, err := NewRadionuclide(cfg)
		if err != nil {
			return nil, err
		}
		s.Radionuclides = append(s.Radionuclides, r)
	}

	s.StartTime = params.Solver.StartTime * SecondsPerYear
	s.EndTime = params.Solver.EndTime * SecondsPerYear
	if !(s.EndTime > s.StartTime) {
		return nil, fmt.Errorf("solver: end_time = %g not after start_time = %g: %w",
			params.Solver.EndTime, params.Solver.StartTime, model.ErrConfiguration)
	}
	method := params.Solver.Method
	if method == "" {
		method = integrator.ROS2.Name
	}
	if s.Method, err = integrator.MethodByName(method); err != nil {
		return nil, fmt.Errorf("solver: %v: %w", err, model.ErrConfiguration)
	}

	s.Mesh = m
	s.Boundary = bc
	s.state = NewState(m, evaluator, bc, params.Energy, s.Radionuclides)
	s.initial = InitialTemperature(m, params.InitialCondition)
	s.energy = make([]float64, m.Basic.Number())

	s.logger.WithFields(log.Fields{
		"nodes":          m.Staggered.Number(),
		"inner_radius":   m.InnerRadius,
		"outer_radius":   m.OuterRadius,
		"inner":          bc.Inner.Kind.String(),
		"outer":          bc.Outer.Kind.String(),
		"phase":          params.PhaseMixed.Phase,
		"radionuclides":  len(s.Radionuclides),
		"end_time_years": params.Solver.EndTime,
	}).Debug("solver configured")
	return s, nil
}

// State 最近一次求值的缓存
func (s *Solver) State() *State {
	return s.state
}

// InitialTemperature 交错节点初始温度的副本
func (s *Solver) InitialTemperature() []float64 {
	return append([]float64(nil), s.initial...)
}

// DTdt 交错节点温度的时间导数 (K/s). dst 为 nil 时新分配
func (s *Solver) DTdt(time float64, temperature, dst []float64) ([]float64, error) {
	n := s.Mesh.Staggered.Number()
	if dst == nil {
		dst = make([]float64, n)
	}
	if len(dst) != n {
		return dst, fmt.Errorf("dTdt: dst has %d values, want %d", len(dst), n)
	}
	if err := s.state.Update(temperature, time); err != nil {
		return dst, err
	}
	if err := s.Boundary.Apply(s.state); err != nil {
		return dst, err
	}

	floats.MulTo(s.energy, s.state.HeatFlux, s.Mesh.Basic.Area)
	capacitance := s.state.PhaseStaggered.Capacitance
	volume := s.Mesh.Staggered.Volume
	for i := range dst {
		dE := s.energy[i+1] - s.energy[i]
		dst[i] = -dE/(capacitance[i]*volume[i]) + s.state.Heating[i]
	}
	return dst, nil
}

// DTdtBatch 批量求值, 每一列为一个时刻的温度剖面
func (s *Solver) DTdtBatch(times []float64, temperature *mat.Dense) (*mat.Dense, error) {
	r, c := temperature.Dims()
	if r != s.Mesh.Staggered.Number() || c != len(times) {
		return nil, fmt.Errorf("batch: temperature is %dx%d, want %dx%d", r, c, s.Mesh.Staggered.Number(), len(times))
	}
	out := mat.NewDense(r, c, nil)
	col := make([]float64, r)
	d := make([]float64, r)
	for j, t := range times {
		mat.Col(col, j, temperature)
		if _, err := s.DTdt(t, col, d); err != nil {
			return nil, fmt.Errorf("sample %d: %w", j, err)
		}
		out.SetCol(j, d)
	}
	return out, nil
}

// Solve 从初始温度积分到结束时间. 失败时 Solution 保留已完成的部分
func (s *Solver) Solve(ctx context.Context) (*Solution, error) {
	if s.hub != nil {
		defer s.hub.Close()
		s.hub.PushFrame(s.frame(0, s.StartTime, s.initial))
	}
	s.logger.WithFields(log.Fields{
		"start_time_years": s.Parameters.Solver.StartTime,
		"end_time_years":   s.Parameters.Solver.EndTime,
		"atol":             s.Parameters.Solver.Atol,
		"rtol":             s.Parameters.Solver.Rtol,
		"method":           s.Method.Name,
	}).Info("solve started")

	rhs := func(t float64, y, dydt []float64) error {
		_, err := s.DTdt(t, y, dydt)
		return err
	}
	res, err := integrator.Solve(ctx, rhs, s.StartTime, s.EndTime, s.initial, integrator.Settings{
		Atol:     s.Parameters.Solver.Atol,
		Rtol:     s.Parameters.Solver.Rtol,
		MaxSteps: s.Parameters.Solver.MaxSteps,
		Method:   s.Method,
		Observer: s.observe,
	})
	if res != nil {
		s.solution = newSolution(res, s.Mesh.Staggered.Radii)
	}
	if err != nil {
		s.logger.WithError(err).Error("solve failed")
		return s.solution, err
	}
	s.logger.WithFields(log.Fields{
		"steps":       res.Steps,
		"rejected":    res.Rejected,
		"evaluations": res.Evaluations,
	}).Info("solve finished")
	return s.solution, nil
}

// Solution 最近一次 Solve 的结果, 未求解时为 nil
func (s *Solver) Solution() *Solution {
	return s.solution
}

func (s *Solver) GetCalcHub() *CalcHub {
	return s.hub
}

func (s *Solver) observe(step int, t float64, y []float64) {
	s.logger.WithFields(log.Fields{
		"step":        step,
		"time_years":  t / SecondsPerYear,
		"temperature": y,
		"heat_flux":   s.state.HeatFlux,
	}).Trace("step accepted")
	if step%1000 == 0 {
		s.logger.WithFields(log.Fields{
			"step":       step,
			"time_years": t / SecondsPerYear,
		}).Debug("progress")
	}
	if s.hub != nil {
		s.hub.PushFrame(s.frame(step, t, y))
	}
}

func (s *Solver) frame(step int, t float64, y []float64) model.Frame {
	return model.Frame{
		Step:        step,
		TimeYears:   t / SecondsPerYear,
		Radii:       s.Mesh.Staggered.Radii,
		Temperature: append([]float64(nil), y...),
	}
}

// Solution 温度随时间的演化, Temperature 的每一列对应 Times 中的一个时刻
type Solution struct {
	Times       []float64 // s
	Radii       []float64 // 交错节点
	Temperature *mat.Dense

	Steps       int
	Rejected    int
	Evaluations int
}

func newSolution(res *integrator.Result, radii []float64) *Solution {
	sol := &Solution{
		Times:       res.Times,
		Radii:       radii,
		Temperature: mat.NewDense(len(radii), len(res.Times), nil),
		Steps:       res.Steps,
		Rejected:    res.Rejected,
		Evaluations: res.Evaluations,
	}
	for j, y := range res.States {
		sol.Temperature.SetCol(j, y)
	}
	return sol
}

func (sol *Solution) TimesYears() []float64 {
	years := make([]float64, len(sol.Times))
	floats.ScaleTo(years, 1/SecondsPerYear, sol.Times)
	return years
}

// Profile 第 j 个时刻的温度剖面
func (sol *Solution) Profile(j int) []float64 {
	return mat.Col(nil, j, sol.Temperature)
}

// Surface 最外层交错节点温度随时间的变化
func (sol *Solution) Surface() []float64 {
	r, _ := sol.Temperature.Dims()
	return mat.Row(nil, r-1, sol.Temperature)
}
