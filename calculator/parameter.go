package calculator

import (
	"gonum.org/v1/gonum/floats"

	"spider/mesh"
	"spider/model"
)

// InitialTemperature 初始温度场: 交错节点上从底部温度线性过渡到表面温度
func InitialTemperature(m *mesh.StaggeredMesh, ic model.InitialCondition) []float64 {
	return floats.Span(make([]float64, m.Staggered.Number()), ic.BasalTemperature, ic.SurfaceTemperature)
}
