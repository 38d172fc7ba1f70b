// Package integrator 求解刚性常微分方程组 dy/dt = f(t, y).
// 采用带内嵌误差估计的 Rosenbrock 方法 (ROS2 或 Rodas3), 步长按局部误差自适应调整.
// Jacobian 用前向差分近似, 每个接受的步长后重新计算
package integrator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Method 一种 Rosenbrock 方法的系数.
// 第 i 级: (I/(γh) - J) k_i = f(t + α_i h, y + Σ a_ij k_j) + Σ c_ij k_j / h + γ_i h df/dt,
// 新解 y + Σ m_i k_i, 误差估计 Σ e_i k_i. a 与 c 为下三角, 按行存储
type Method struct {
	Name string

	gamma  float64
	a, c   []float64
	newF   []bool
	alpha  []float64
	gammas []float64
	m, e   []float64
	// 误差估计的阶数 + 1
	order float64
}

var ros2Gamma = 1 + 1/math.Sqrt2

var (
	// ROS2 二级二阶, L 稳定, 内嵌一阶解. 右端项不光滑时 (对流开关) 仍能取大步长
	ROS2 = &Method{
		Name:   "ros2",
		gamma:  ros2Gamma,
		a:      []float64{1 / ros2Gamma},
		c:      []float64{-2 / ros2Gamma},
		newF:   []bool{true, true},
		alpha:  []float64{0, 1},
		gammas: []float64{ros2Gamma, -ros2Gamma},
		m:      []float64{3 / (2 * ros2Gamma), 1 / (2 * ros2Gamma)},
		e:      []float64{1 / (2 * ros2Gamma), 1 / (2 * ros2Gamma)},
		order:  2,
	}
	// Rodas3 四级三阶, 内嵌二阶解, 两者均为刚性精确. 光滑问题上步数远少于 ROS2
	Rodas3 = &Method{
		Name:  "rodas3",
		gamma: 0.5,
		a:     []float64{0, 2, 0, 2, 0, 1},
		c:     []float64{4, 1, -1, 1, -1, -8.0 / 3},
		// 第二级沿用第一级的 f
		newF:   []bool{false, false, true, true},
		alpha:  []float64{0, 0, 1, 1},
		gammas: []float64{0.5, 1.5, 0, 0},
		m:      []float64{2, 0, 1, 1},
		e:      []float64{0, 0, 0, 1},
		order:  3,
	}
)

// MethodByName 按名称 (不区分大小写) 查找方法
func MethodByName(name string) (*Method, error) {
	for _, m := range []*Method{ROS2, Rodas3} {
		if strings.EqualFold(name, m.Name) {
			return m, nil
		}
	}
	return nil, fmt.Errorf("integrator: unknown method %q", name)
}

func (m *Method) stages() int { return len(m.m) }

const (
	facMin  = 0.2
	facMax  = 6.0
	facSafe = 0.9
)

var (
	ErrStepTooSmall = errors.New("step size too small")
	ErrMaxSteps     = errors.New("maximum number of steps reached")
)

// Func 计算 (t, y) 处的 dy/dt, 写入 dydt. 不得保留 y 或 dydt.
// 返回错误时触发该错误的试探步被拒绝
type Func func(t float64, y, dydt []float64) error

// Observer 每个接受的时间步之后调用, 不得修改 y
type Observer func(step int, t float64, y []float64)

type Settings struct {
	Atol     float64
	Rtol     float64
	MaxSteps int

	// 为 0 时由 f(t0, y0) 估计
	InitialStep float64
	// 为 nil 时使用 Rodas3
	Method *Method

	Observer Observer
}

// Result 接受的轨迹, 包含 t0
type Result struct {
	Times  []float64
	States [][]float64

	Steps       int
	Rejected    int
	Evaluations int
}

// Error 积分失败时停止的位置
type Error struct {
	Step int
	Time float64
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("integrator: step %d at t=%g: %v", e.Step, e.Time, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Solve 从 t0 积分到 t1. 出错时 Result 仍保留已接受的部分轨迹
func Solve(ctx context.Context, f Func, t0, t1 float64, y0 []float64, s Settings) (*Result, error) {
	if !(t1 > t0) {
		return nil, fmt.Errorf("integrator: end time %g not after start time %g", t1, t0)
	}
	if s.Atol <= 0 || s.Rtol < 0 {
		return nil, fmt.Errorf("integrator: atol = %g, rtol = %g", s.Atol, s.Rtol)
	}
	if s.MaxSteps <= 0 {
		s.MaxSteps = 100000
	}
	if s.Method == nil {
		s.Method = Rodas3
	}

	n := len(y0)
	if n == 0 {
		return nil, errors.New("integrator: empty state")
	}
	ig := &rosenbrock{
		f:     f,
		s:     s,
		n:     n,
		y:     append([]float64(nil), y0...),
		f0:    make([]float64, n),
		dfdt:  make([]float64, n),
		ytmp:  make([]float64, n),
		ynew:  make([]float64, n),
		fnew:  make([]float64, n),
		fwork: make([]float64, n),
		jac:   mat.NewDense(n, n, nil),
		w:     mat.NewDense(n, n, nil),
		rhs:   mat.NewVecDense(n, nil),
		k:     make([]*mat.VecDense, s.Method.stages()),
	}
	for i := range ig.k {
		ig.k[i] = mat.NewVecDense(n, nil)
	}
	res := &Result{}
	res.record(t0, ig.y)

	t := t0
	if err := ig.eval(t, ig.y, ig.f0); err != nil {
		return res, &Error{Time: t, Err: err}
	}
	res.Evaluations++

	h := s.InitialStep
	if h <= 0 {
		h = ig.initialStep(t1 - t0)
	}

	for t < t1 {
		if err := ctx.Err(); err != nil {
			return res, &Error{Step: res.Steps, Time: t, Err: err}
		}
		if res.Steps >= s.MaxSteps {
			return res, &Error{Step: res.Steps, Time: t, Err: ErrMaxSteps}
		}
		evals, err := ig.jacobian(t)
		res.Evaluations += evals
		if err != nil {
			return res, &Error{Step: res.Steps, Time: t, Err: err}
		}

		var (
			lastErr  error
			rejected bool
		)
		for {
			last := false
			if t+h >= t1 {
				h = t1 - t
				last = true
			}
			if h <= 16*math.Abs(t)*epsilon || h <= 0 {
				if lastErr == nil {
					lastErr = ErrStepTooSmall
				} else {
					lastErr = fmt.Errorf("%w: %w", ErrStepTooSmall, lastErr)
				}
				return res, &Error{Step: res.Steps, Time: t, Err: lastErr}
			}

			errNorm, evals, err := ig.step(t, h)
			res.Evaluations += evals
			if err != nil {
				// 试探解超出模型的定义域
				lastErr = err
				rejected = true
				res.Rejected++
				h *= 0.25
				continue
			}

			factor := facMax
			if errNorm > 0 {
				factor = math.Max(facMin, math.Min(facMax, facSafe/math.Pow(errNorm, 1/s.Method.order)))
			}
			if errNorm > 1 {
				rejected = true
				res.Rejected++
				h *= factor
				continue
			}

			if last {
				t = t1
			} else {
				t += h
			}
			ig.y, ig.ynew = ig.ynew, ig.y
			ig.f0, ig.fnew = ig.fnew, ig.f0
			res.Steps++
			res.record(t, ig.y)
			if s.Observer != nil {
				s.Observer(res.Steps, t, ig.y)
			}
			if rejected {
				factor = math.Min(factor, 1)
			}
			h *= factor
			break
		}
	}
	return res, nil
}

var epsilon = math.Nextafter(1, 2) - 1

type rosenbrock struct {
	f Func
	s Settings
	n int

	y, f0      []float64
	dfdt       []float64
	ytmp       []float64
	ynew, fnew []float64
	fwork      []float64

	jac, w *mat.Dense
	lu     mat.LU
	k      []*mat.VecDense
	rhs    *mat.VecDense
}

func (ig *rosenbrock) eval(t float64, y, dydt []float64) error {
	if err := ig.f(t, y, dydt); err != nil {
		return err
	}
	for i, v := range dydt {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite derivative %g at component %d", v, i)
		}
	}
	return nil
}

// jacobian 在 (t, ig.y) 处更新 ig.jac 和 ig.dfdt, 返回求值次数
func (ig *rosenbrock) jacobian(t float64) (int, error) {
	var (
		evals int
		err   error
	)
	step := math.Sqrt(epsilon) * math.Max(1, floats.Norm(ig.y, math.Inf(1)))
	fd.Jacobian(ig.jac, func(dydt, y []float64) {
		evals++
		if e := ig.f(t, y, dydt); e != nil && err == nil {
			err = e
		}
	}, ig.y, &fd.JacobianSettings{
		OriginValue: ig.f0,
		Step:        step,
	})
	if err != nil {
		return evals, fmt.Errorf("jacobian: %w", err)
	}

	// 非自治项 df/dt
	delta := math.Sqrt(epsilon) * math.Max(1e-5, math.Abs(t))
	evals++
	if err := ig.eval(t+delta, ig.y, ig.fwork); err != nil {
		return evals, fmt.Errorf("time derivative: %w", err)
	}
	floats.SubTo(ig.dfdt, ig.fwork, ig.f0)
	floats.Scale(1/delta, ig.dfdt)
	return evals, nil
}

// step 从 (t, ig.y) 以步长 h 试探一步, 结果写入 ig.ynew 和 ig.fnew.
// 返回局部误差的加权均方根范数
func (ig *rosenbrock) step(t, h float64) (float64, int, error) {
	m := ig.s.Method
	// W = I/(γh) - J
	ig.w.Scale(-1, ig.jac)
	for i := 0; i < ig.n; i++ {
		ig.w.Set(i, i, ig.w.At(i, i)+1/(m.gamma*h))
	}
	ig.lu.Factorize(ig.w)

	evals := 0
	fstage := ig.f0
	rhs := ig.rhs.RawVector().Data
	for stage := range ig.k {
		row := stage * (stage - 1) / 2
		if stage > 0 && m.newF[stage] {
			// 新的一级在 y + Σ a_ij k_j 处求值
			copy(ig.ytmp, ig.y)
			for j := 0; j < stage; j++ {
				floats.AddScaled(ig.ytmp, m.a[row+j], ig.k[j].RawVector().Data)
			}
			evals++
			if err := ig.eval(t+m.alpha[stage]*h, ig.ytmp, ig.fwork); err != nil {
				return 0, evals, err
			}
			fstage = ig.fwork
		}
		copy(rhs, fstage)
		for j := 0; j < stage; j++ {
			floats.AddScaled(rhs, m.c[row+j]/h, ig.k[j].RawVector().Data)
		}
		if m.gammas[stage] != 0 {
			floats.AddScaled(rhs, m.gammas[stage]*h, ig.dfdt)
		}
		if err := ig.lu.SolveVecTo(ig.k[stage], false, ig.rhs); err != nil {
			return 0, evals, fmt.Errorf("stage %d: %w", stage+1, err)
		}
	}

	copy(ig.ynew, ig.y)
	for j, c := range m.m {
		if c != 0 {
			floats.AddScaled(ig.ynew, c, ig.k[j].RawVector().Data)
		}
	}

	var sum float64
	for i := range ig.ynew {
		if math.IsNaN(ig.ynew[i]) || math.IsInf(ig.ynew[i], 0) {
			return 0, evals, fmt.Errorf("non-finite state at component %d", i)
		}
		var e float64
		for j, c := range m.e {
			if c != 0 {
				e += c * ig.k[j].AtVec(i)
			}
		}
		sc := ig.s.Atol + ig.s.Rtol*math.Max(math.Abs(ig.y[i]), math.Abs(ig.ynew[i]))
		e /= sc
		sum += e * e
	}
	errNorm := math.Sqrt(sum / float64(ig.n))

	// 新解处的导数即下一步的第一级, 同时检查新解仍在定义域内
	evals++
	if err := ig.eval(t+h, ig.ynew, ig.fnew); err != nil {
		return 0, evals, err
	}
	return errNorm, evals, nil
}

// initialStep 常用的 d0/d1 估计, 不超过积分区间
func (ig *rosenbrock) initialStep(span float64) float64 {
	var d0, d1 float64
	for i := range ig.y {
		sc := ig.s.Atol + ig.s.Rtol*math.Abs(ig.y[i])
		d0 += (ig.y[i] / sc) * (ig.y[i] / sc)
		d1 += (ig.f0[i] / sc) * (ig.f0[i] / sc)
	}
	d0 = math.Sqrt(d0 / float64(ig.n))
	d1 = math.Sqrt(d1 / float64(ig.n))
	h := 1e-6 * span
	if d0 > 1e-5 && d1 > 1e-5 {
		h = 0.01 * d0 / d1
	}
	return math.Min(h, span)
}

func (r *Result) record(t float64, y []float64) {
	r.Times = append(r.Times, t)
	r.States = append(r.States, append([]float64(nil), y...))
}
