package model

// Parameters 一次模拟的全部输入, 单位均为 SI (时间除外, 见 Solver)
type Parameters struct {
	Mesh               Mesh               `json:"mesh"`
	BoundaryConditions BoundaryConditions `json:"boundary_conditions"`
	Energy             Energy             `json:"energy"`
	InitialCondition   InitialCondition   `json:"initial_condition"`
	PhaseSolid         Phase              `json:"phase_solid"`
	PhaseLiquid        Phase              `json:"phase_liquid"`
	PhaseMixed         PhaseMixed         `json:"phase_mixed"`
	Radionuclides      []Radionuclide     `json:"radionuclides"`
	Solver             Solver             `json:"solver"`

	// 相对表路径的根目录
	Root string `json:"-"`
}

// 网格配置
type Mesh struct {
	OuterRadius         float64 `ini:"outer_radius" json:"outer_radius"`
	InnerRadius         float64 `ini:"inner_radius" json:"inner_radius"`
	NumberOfNodes       int     `ini:"number_of_nodes" json:"number_of_nodes"`
	MixingLengthProfile string  `ini:"mixing_length_profile" json:"mixing_length_profile"`

	// Adams-Williamson 静压分布
	SurfaceDensity            float64 `ini:"adams_williamson_surface_density" json:"adams_williamson_surface_density"`
	Beta                      float64 `ini:"adams_williamson_beta" json:"adams_williamson_beta"`
	GravitationalAcceleration float64 `ini:"gravitational_acceleration" json:"gravitational_acceleration"`
}

// 边界条件配置
// 内边界: 1 核冷却, 2 热流, 3 温度
// 外边界: 1 灰体, 2 水蒸气大气, 3 耦合大气, 4 热流, 5 温度
type BoundaryConditions struct {
	OuterBoundaryCondition int     `ini:"outer_boundary_condition" json:"outer_boundary_condition"`
	OuterBoundaryValue     float64 `ini:"outer_boundary_value" json:"outer_boundary_value"`
	InnerBoundaryCondition int     `ini:"inner_boundary_condition" json:"inner_boundary_condition"`
	InnerBoundaryValue     float64 `ini:"inner_boundary_value" json:"inner_boundary_value"`
	Emissivity             float64 `ini:"emissivity" json:"emissivity"`
	EquilibriumTemperature float64 `ini:"equilibrium_temperature" json:"equilibrium_temperature"`
	CoreRadius             float64 `ini:"core_radius" json:"core_radius"`
	CoreDensity            float64 `ini:"core_density" json:"core_density"`
	CoreHeatCapacity       float64 `ini:"core_heat_capacity" json:"core_heat_capacity"`
}

// 能量项开关
type Energy struct {
	Conduction              bool `ini:"conduction" json:"conduction"`
	Convection              bool `ini:"convection" json:"convection"`
	GravitationalSeparation bool `ini:"gravitational_separation" json:"gravitational_separation"`
	Mixing                  bool `ini:"mixing" json:"mixing"`
	Radionuclides           bool `ini:"radionuclides" json:"radionuclides"`
	Tidal                   bool `ini:"tidal" json:"tidal"`
}

// 初始温度, 从底部到表面线性分布
type InitialCondition struct {
	SurfaceTemperature float64 `ini:"surface_temperature" json:"surface_temperature"`
	BasalTemperature   float64 `ini:"basal_temperature" json:"basal_temperature"`
}

// 单相物性参数, 数值或者查表文件路径
type Phase struct {
	Density             string `ini:"density" json:"density"`
	HeatCapacity        string `ini:"heat_capacity" json:"heat_capacity"`
	ThermalConductivity string `ini:"thermal_conductivity" json:"thermal_conductivity"`
	ThermalExpansivity  string `ini:"thermal_expansivity" json:"thermal_expansivity"`
	Viscosity           string `ini:"viscosity" json:"viscosity"`
}

// 固液两相混合参数
type PhaseMixed struct {
	Phase                   string  `ini:"phase" json:"phase"` // liquid, solid 或 mixed
	LatentHeatOfFusion      float64 `ini:"latent_heat_of_fusion" json:"latent_heat_of_fusion"`
	RheologicalMeltFraction float64 `ini:"rheological_transition_melt_fraction" json:"rheological_transition_melt_fraction"`
	RheologicalWidth        float64 `ini:"rheological_transition_width" json:"rheological_transition_width"`
	Solidus                 string  `ini:"solidus" json:"solidus"`
	Liquidus                string  `ini:"liquidus" json:"liquidus"`
	MeltFractionShape       string  `ini:"melt_fraction_shape" json:"melt_fraction_shape"`
}

// 放射性核素, concentration 单位 ppm
type Radionuclide struct {
	Name           string  `ini:"name" json:"name"`
	T0Years        float64 `ini:"t0_years" json:"t0_years"`
	Abundance      float64 `ini:"abundance" json:"abundance"`
	Concentration  float64 `ini:"concentration" json:"concentration"`
	HeatProduction float64 `ini:"heat_production" json:"heat_production"`
	HalfLifeYears  float64 `ini:"half_life_years" json:"half_life_years"`
}

// 积分控制, 时间单位 year
type Solver struct {
	StartTime float64 `ini:"start_time" json:"start_time"`
	EndTime   float64 `ini:"end_time" json:"end_time"`
	Atol      float64 `ini:"atol" json:"atol"`
	Rtol      float64 `ini:"rtol" json:"rtol"`
	MaxSteps  int     `ini:"max_steps" json:"max_steps"`
	// ros2 或 rodas3
	Method string `ini:"method" json:"method"`
}

// 前后端通信消息结构
type Msg struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Frame 推送给前端的一条温度剖面
type Frame struct {
	Step        int       `json:"step"`
	TimeYears   float64   `json:"time_years"`
	Radii       []float64 `json:"radii"`
	Temperature []float64 `json:"temperature"`
}
