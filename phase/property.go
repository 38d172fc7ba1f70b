package phase

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/interp"

	"spider/model"
)

// Property 随温度和压力变化的物性
type Property interface {
	At(temperature, pressure float64) (float64, error)
}

// Curve 随压力变化的相边界温度
type Curve interface {
	At(pressure float64) (float64, error)
}

// Constant 与温度压力无关的物性
type Constant float64

func (c Constant) At(_, _ float64) (float64, error) {
	return float64(c), nil
}

// ConstantCurve 与压力无关的相边界
type ConstantCurve float64

func (c ConstantCurve) At(_ float64) (float64, error) {
	return float64(c), nil
}

// Table 规则 (压力, 温度) 网格上的物性表.
// 网格内双线性插值, 网格外 At 返回 model.ErrDomain
type Table struct {
	Name         string
	Pressures    []float64
	Temperatures []float64
	rows         []interp.PiecewiseLinear // 每个压力一条, 沿温度插值
}

// NewTable 由网格坐标和 values[压力][温度] 构造物性表
func NewTable(name string, pressures, temperatures []float64, values [][]float64) (*Table, error) {
	if len(pressures) < 2 || len(temperatures) < 2 {
		return nil, fmt.Errorf("table %s: need at least a 2x2 grid: %w", name, model.ErrConfiguration)
	}
	if len(values) != len(pressures) {
		return nil, fmt.Errorf("table %s: %d pressure rows, want %d: %w",
			name, len(values), len(pressures), model.ErrConfiguration)
	}
	t := &Table{
		Name:         name,
		Pressures:    pressures,
		Temperatures: temperatures,
		rows:         make([]interp.PiecewiseLinear, len(pressures)),
	}
	for i, row := range values {
		if len(row) != len(temperatures) {
			return nil, fmt.Errorf("table %s: row %d has %d values, want %d: %w",
				name, i, len(row), len(temperatures), model.ErrConfiguration)
		}
		if err := t.rows[i].Fit(temperatures, row); err != nil {
			return nil, fmt.Errorf("table %s: %v: %w", name, err, model.ErrConfiguration)
		}
	}
	return t, nil
}

func (t *Table) At(temperature, pressure float64) (float64, error) {
	np, nt := len(t.Pressures), len(t.Temperatures)
	if !(pressure >= t.Pressures[0] && pressure <= t.Pressures[np-1]) {
		return 0, fmt.Errorf("table %s: pressure %g outside [%g, %g]: %w",
			t.Name, pressure, t.Pressures[0], t.Pressures[np-1], model.ErrDomain)
	}
	if !(temperature >= t.Temperatures[0] && temperature <= t.Temperatures[nt-1]) {
		return 0, fmt.Errorf("table %s: temperature %g outside [%g, %g]: %w",
			t.Name, temperature, t.Temperatures[0], t.Temperatures[nt-1], model.ErrDomain)
	}

	j := sort.SearchFloat64s(t.Pressures, pressure)
	if j == 0 {
		return t.rows[0].Predict(temperature), nil
	}
	lo, hi := t.rows[j-1].Predict(temperature), t.rows[j].Predict(temperature)
	w := (pressure - t.Pressures[j-1]) / (t.Pressures[j] - t.Pressures[j-1])
	return lo + w*(hi-lo), nil
}

// CurveTable 按压力列表的相边界
type CurveTable struct {
	Name      string
	Pressures []float64
	curve     interp.PiecewiseLinear
}

// NewCurveTable 由压力和温度构造相边界
func NewCurveTable(name string, pressures, temperatures []float64) (*CurveTable, error) {
	c := &CurveTable{Name: name, Pressures: pressures}
	if err := c.curve.Fit(pressures, temperatures); err != nil {
		return nil, fmt.Errorf("curve %s: %v: %w", name, err, model.ErrConfiguration)
	}
	return c, nil
}

func (c *CurveTable) At(pressure float64) (float64, error) {
	n := len(c.Pressures)
	if !(pressure >= c.Pressures[0] && pressure <= c.Pressures[n-1]) {
		return 0, fmt.Errorf("curve %s: pressure %g outside [%g, %g]: %w",
			c.Name, pressure, c.Pressures[0], c.Pressures[n-1], model.ErrDomain)
	}
	return c.curve.Predict(pressure), nil
}

// ParseProperty 读取配置值: 数值, 或相对 root 的 "压力 温度 值" 表文件路径
func ParseProperty(name, value, root string) (Property, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("property %s: no value: %w", name, model.ErrConfiguration)
	}
	if v, err := strconv.ParseFloat(value, 64); err == nil {
		return Constant(v), nil
	}
	cols, err := readColumns(resolve(root, value), 3)
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", name, err)
	}
	pressures, temperatures, values, err := grid(cols)
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", name, err)
	}
	return NewTable(name, pressures, temperatures, values)
}

// ParseCurve 读取配置值: 数值, 或相对 root 的 "压力 温度" 表文件路径
func ParseCurve(name, value, root string) (Curve, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("curve %s: no value: %w", name, model.ErrConfiguration)
	}
	if v, err := strconv.ParseFloat(value, 64); err == nil {
		return ConstantCurve(v), nil
	}
	cols, err := readColumns(resolve(root, value), 2)
	if err != nil {
		return nil, fmt.Errorf("curve %s: %w", name, err)
	}
	return NewCurveTable(name, cols[0], cols[1])
}

func resolve(root, path string) string {
	if filepath.IsAbs(path) || root == "" {
		return path
	}
	return filepath.Join(root, path)
}

func readColumns(path string, ncol int) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, model.ErrConfiguration)
	}
	defer f.Close()
	return parseColumns(f, ncol)
}

// parseColumns 读取空白分隔的数值, '#' 之后为注释
func parseColumns(r io.Reader, ncol int) ([][]float64, error) {
	cols := make([][]float64, ncol)
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != ncol {
			return nil, fmt.Errorf("line %d: %d columns, want %d: %w", line, len(fields), ncol, model.ErrConfiguration)
		}
		for i, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %v: %w", line, err, model.ErrConfiguration)
			}
			cols[i] = append(cols[i], v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, model.ErrConfiguration)
	}
	return cols, nil
}

// grid 把 (p, t, v) 行整理成完整的规则网格
func grid(cols [][]float64) (pressures, temperatures []float64, values [][]float64, err error) {
	pressures = unique(cols[0])
	temperatures = unique(cols[1])
	values = make([][]float64, len(pressures))
	filled := 0
	for i := range values {
		values[i] = make([]float64, len(temperatures))
		for j := range values[i] {
			values[i][j] = math.NaN()
		}
	}
	for k := range cols[0] {
		i := sort.SearchFloat64s(pressures, cols[0][k])
		j := sort.SearchFloat64s(temperatures, cols[1][k])
		if math.IsNaN(values[i][j]) {
			filled++
		}
		values[i][j] = cols[2][k]
	}
	if filled != len(pressures)*len(temperatures) {
		return nil, nil, nil, fmt.Errorf("table is not a full %dx%d grid: %w",
			len(pressures), len(temperatures), model.ErrConfiguration)
	}
	return pressures, temperatures, values, nil
}

func unique(xs []float64) []float64 {
	out := append([]float64(nil), xs...)
	sort.Float64s(out)
	n := 0
	for i, x := range out {
		if i == 0 || x != out[n-1] {
			out[n] = x
			n++
		}
	}
	return out[:n]
}
