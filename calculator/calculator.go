package calculator

import "context"

// calculator 的接口定义

type Calculator interface {
	// 交错节点温度的时间导数
	DTdt(time float64, temperature, dst []float64) ([]float64, error)

	// 运行
	Solve(ctx context.Context) (*Solution, error)

	// 最近一次运行的结果
	Solution() *Solution

	// 获取CalcHub
	GetCalcHub() *CalcHub
}

var _ Calculator = (*Solver)(nil)
