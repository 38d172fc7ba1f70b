package calculator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spider/mesh"
	"spider/model"
	"spider/phase"
)

func TestLoadParameters_Liquid(t *testing.T) {
	p, err := LoadParameters("testdata/liquid.ini")
	require.NoError(t, err)

	assert.Equal(t, "testdata", p.Root)
	assert.Equal(t, model.Mesh{
		OuterRadius:               6370000,
		InnerRadius:               3480000,
		NumberOfNodes:             50,
		MixingLengthProfile:       mesh.NearestBoundary,
		SurfaceDensity:            4090,
		Beta:                      1.1115e-7,
		GravitationalAcceleration: 10,
	}, p.Mesh)
	assert.Equal(t, 1, p.BoundaryConditions.OuterBoundaryCondition)
	assert.Equal(t, 2, p.BoundaryConditions.InnerBoundaryCondition)
	assert.Equal(t, 255.0, p.BoundaryConditions.EquilibriumTemperature)
	assert.Equal(t, model.Energy{Conduction: true, Convection: true}, p.Energy)
	assert.Equal(t, model.InitialCondition{SurfaceTemperature: 1800, BasalTemperature: 4000}, p.InitialCondition)
	assert.Equal(t, "100", p.PhaseLiquid.Viscosity)
	assert.Equal(t, PhaseLiquid, p.PhaseMixed.Phase)
	assert.Empty(t, p.Radionuclides)
	assert.Equal(t, model.Solver{EndTime: 1e6, Atol: 1e-3, Rtol: 1e-5, MaxSteps: 200000, Method: "ros2"}, p.Solver)
}

func TestLoadParameters_MixedWithRadionuclides(t *testing.T) {
	p, err := LoadParameters("testdata/mixed.ini")
	require.NoError(t, err)

	assert.Equal(t, PhaseMixed, p.PhaseMixed.Phase)
	assert.Equal(t, phase.Smoothstep, p.PhaseMixed.MeltFractionShape)
	assert.Equal(t, "solidus.dat", p.PhaseMixed.Solidus)
	assert.Equal(t, "1e21", p.PhaseSolid.Viscosity)

	// 默认值
	assert.Equal(t, mesh.NearestBoundary, p.Mesh.MixingLengthProfile)
	assert.Equal(t, 1.0, p.BoundaryConditions.Emissivity)
	assert.Equal(t, 1e-6, p.Solver.Atol)
	assert.Equal(t, 1e-6, p.Solver.Rtol)
	assert.Equal(t, 100000, p.Solver.MaxSteps)
	assert.Equal(t, "ros2", p.Solver.Method)
	assert.False(t, p.Energy.Tidal)

	require.Len(t, p.Radionuclides, 2)
	assert.Equal(t, model.Radionuclide{
		Name:           "K40",
		T0Years:        4.55e9,
		Abundance:      1.1668e-4,
		Concentration:  310,
		HeatProduction: 2.8761e-5,
		HalfLifeYears:  1248e6,
	}, p.Radionuclides[0])
	// 未给 name 时取段名后缀
	assert.Equal(t, "u238", p.Radionuclides[1].Name)

	// 相对表路径以配置文件所在目录为准
	s, err := NewSolver(p)
	require.NoError(t, err)
	_, err = s.DTdt(0, s.InitialTemperature(), nil)
	require.NoError(t, err)
}

func TestLoadParameters_Override(t *testing.T) {
	p, err := LoadParameters("testdata/liquid.ini", []byte("[solver]\nend_time = 10\n[mesh]\nnumber_of_nodes = 8\n"))
	require.NoError(t, err)
	assert.Equal(t, 10.0, p.Solver.EndTime)
	assert.Equal(t, 8, p.Mesh.NumberOfNodes)
	assert.Equal(t, 1e-5, p.Solver.Rtol)
}

func TestLoadParameters_Errors(t *testing.T) {
	const valid = `
[mesh]
outer_radius = 2
inner_radius = 1
number_of_nodes = 4
gravitational_acceleration = 10
[boundary_conditions]
outer_boundary_condition = 1
inner_boundary_condition = 2
[energy]
conduction = true
convection = false
[initial_condition]
surface_temperature = 1500
basal_temperature = 3000
[phase_liquid]
density = 4000
heat_capacity = 1000
thermal_conductivity = 2
thermal_expansivity = 5e-5
viscosity = 100
[solver]
end_time = 1
`
	_, err := LoadParameters([]byte(valid))
	require.NoError(t, err)

	tests := []struct {
		name  string
		extra string
		input string
	}{
		{name: "missing file", input: "testdata/nope.ini"},
		{name: "missing section", extra: "", input: "[mesh]\nouter_radius = 2\n"},
		{name: "missing key", extra: "[mesh]\nnumber_of_nodes = \n"},
		{name: "bad number", extra: "[mesh]\nouter_radius = far\n"},
		{name: "solid section needed", extra: "[phase_mixed]\nphase = solid\n"},
		{name: "mixed keys needed", extra: "[phase_mixed]\nphase = mixed\n[phase_solid]\ndensity = 1\n" +
			"heat_capacity = 1\nthermal_conductivity = 1\nthermal_expansivity = 1\nviscosity = 1\n"},
		{name: "radionuclide keys needed", extra: "[radionuclide_k40]\nconcentration = 310\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			switch {
			case tt.input == "testdata/nope.ini":
				_, err = LoadParameters(tt.input)
			case tt.input != "":
				_, err = LoadParameters([]byte(tt.input))
			default:
				_, err = LoadParameters([]byte(valid), []byte(tt.extra))
			}
			assert.True(t, errors.Is(err, model.ErrConfiguration), "got %v", err)
		})
	}
}
