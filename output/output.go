// Package output 把计算结果写成 CSV 和温度剖面图
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"spider/calculator"
	"spider/mesh"
)

// DefaultProfiles 默认绘制的剖面条数
const DefaultProfiles = 11

func format(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteCSV 每个输出时刻一行: 时间 (年) 和各交错节点的温度.
// 表头为节点半径 (m)
func WriteCSV(out io.Writer, sol *calculator.Solution) error {
	w := csv.NewWriter(out)
	header := make([]string, 0, len(sol.Radii)+1)
	header = append(header, "time_years")
	for _, r := range sol.Radii {
		header = append(header, format(r))
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	record := make([]string, len(sol.Radii)+1)
	for j, t := range sol.TimesYears() {
		record[0] = format(t)
		for i, T := range sol.Profile(j) {
			record[i+1] = format(T)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write csv record %d: %w", j, err)
		}
	}
	w.Flush()
	return w.Error()
}

// ProfileIndices 在等间隔的时刻上选 n 个输出: 首尾两个, 中间取最接近目标时刻的一个.
// n 至少为 2
func ProfileIndices(times []float64, n int) []int {
	if len(times) == 0 {
		return nil
	}
	if n < 2 {
		n = 2
	}
	last := len(times) - 1
	indices := []int{0}
	step := (times[last] - times[0]) / float64(n-1)
	for k := 1; k < n-1; k++ {
		target := times[0] + float64(k)*step
		closest := 0
		for j, t := range times {
			if math.Abs(t-target) < math.Abs(times[closest]-target) {
				closest = j
			}
		}
		indices = append(indices, closest)
	}
	return append(indices, last)
}

// NewProfilePlot 绘制 n 个等间隔时刻基本节点上的温度-半径曲线, 图例为时间 (年)
func NewProfilePlot(m *mesh.StaggeredMesh, sol *calculator.Solution, n int) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Magma ocean thermal profile"
	p.X.Label.Text = "Temperature (K)"
	p.Y.Label.Text = "Radius (m)"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	years := sol.TimesYears()
	basic := make([]float64, m.Basic.Number())
	for k, j := range ProfileIndices(years, n) {
		m.QuantityAtBasicNodes(basic, sol.Profile(j))
		xys := make(plotter.XYs, len(basic))
		for i := range basic {
			xys[i].X = basic[i]
			xys[i].Y = m.Basic.Radii[i]
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("profile at %g yr: %w", years[j], err)
		}
		line.Color = plotutil.Color(k)
		p.Add(line)
		p.Legend.Add(strconv.FormatFloat(years[j], 'f', 2, 64)+" yr", line)
	}
	return p, nil
}

// WriteProfilePlot 保存剖面图, 格式由文件扩展名决定
func WriteProfilePlot(path string, m *mesh.StaggeredMesh, sol *calculator.Solution, n int) error {
	p, err := NewProfilePlot(m, sol, n)
	if err != nil {
		return err
	}
	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	return nil
}
