package calculator

import (
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"

	"spider/integrator"
	"spider/mesh"
	"spider/model"
	"spider/phase"
)

const radionuclidePrefix = "radionuclide_"

// LoadParameters 读取 INI 配置. source 为文件路径或 []byte, 与 ini.Load 相同;
// 后面的 others 依次覆盖前面的值. 相对的查表路径以第一个配置文件所在目录为准
func LoadParameters(source interface{}, others ...interface{}) (*model.Parameters, error) {
	file, err := ini.Load(source, others...)
	if err != nil {
		return nil, fmt.Errorf("load config: %v: %w", err, model.ErrConfiguration)
	}
	params, err := loadParameters(file)
	if err != nil {
		return nil, err
	}
	if path, ok := source.(string); ok {
		params.Root = filepath.Dir(path)
	}
	return params, nil
}

func loadParameters(file *ini.File) (*model.Parameters, error) {
	p := &model.Parameters{}

	sections := []struct {
		name     string
		dst      interface{}
		required []string
	}{
		{"mesh", &p.Mesh, []string{"outer_radius", "inner_radius", "number_of_nodes", "gravitational_acceleration"}},
		{"boundary_conditions", &p.BoundaryConditions, []string{"outer_boundary_condition", "inner_boundary_condition"}},
		{"energy", &p.Energy, []string{"conduction", "convection"}},
		{"initial_condition", &p.InitialCondition, []string{"surface_temperature", "basal_temperature"}},
		{"phase_liquid", &p.PhaseLiquid, []string{"density", "heat_capacity", "thermal_conductivity",
			"thermal_expansivity", "viscosity"}},
		{"solver", &p.Solver, []string{"end_time"}},
	}
	for _, s := range sections {
		if err := mapSection(file, s.name, s.dst, s.required); err != nil {
			return nil, err
		}
	}

	// 默认值
	p.Mesh.MixingLengthProfile = file.Section("mesh").Key("mixing_length_profile").MustString(mesh.NearestBoundary)
	p.BoundaryConditions.Emissivity = file.Section("boundary_conditions").Key("emissivity").MustFloat64(1)
	p.Solver.Atol = file.Section("solver").Key("atol").MustFloat64(1e-6)
	p.Solver.Rtol = file.Section("solver").Key("rtol").MustFloat64(1e-6)
	p.Solver.MaxSteps = file.Section("solver").Key("max_steps").MustInt(100000)
	p.Solver.Method = file.Section("solver").Key("method").MustString(integrator.ROS2.Name)

	if file.HasSection("phase_mixed") {
		if err := file.Section("phase_mixed").StrictMapTo(&p.PhaseMixed); err != nil {
			return nil, fmt.Errorf("section phase_mixed: %v: %w", err, model.ErrConfiguration)
		}
	}
	p.PhaseMixed.Phase = file.Section("phase_mixed").Key("phase").MustString(PhaseLiquid)
	p.PhaseMixed.MeltFractionShape = file.Section("phase_mixed").Key("melt_fraction_shape").MustString(phase.Linear)

	switch p.PhaseMixed.Phase {
	case PhaseSolid, PhaseMixed:
		if err := mapSection(file, "phase_solid", &p.PhaseSolid, []string{"density", "heat_capacity",
			"thermal_conductivity", "thermal_expansivity", "viscosity"}); err != nil {
			return nil, err
		}
	}
	if p.PhaseMixed.Phase == PhaseMixed {
		if err := requireKeys(file.Section("phase_mixed"), []string{"latent_heat_of_fusion",
			"rheological_transition_melt_fraction", "rheological_transition_width", "solidus", "liquidus"}); err != nil {
			return nil, err
		}
	}

	for _, section := range file.Sections() {
		if !strings.HasPrefix(section.Name(), radionuclidePrefix) {
			continue
		}
		r := model.Radionuclide{Name: strings.TrimPrefix(section.Name(), radionuclidePrefix), Abundance: 1}
		if err := requireKeys(section, []string{"t0_years", "concentration", "heat_production", "half_life_years"}); err != nil {
			return nil, err
		}
		if err := section.StrictMapTo(&r); err != nil {
			return nil, fmt.Errorf("section %s: %v: %w", section.Name(), err, model.ErrConfiguration)
		}
		p.Radionuclides = append(p.Radionuclides, r)
	}
	return p, nil
}

func mapSection(file *ini.File, name string, dst interface{}, required []string) error {
	section, err := file.GetSection(name)
	if err != nil {
		return fmt.Errorf("section %s is missing: %w", name, model.ErrConfiguration)
	}
	if err := requireKeys(section, required); err != nil {
		return err
	}
	if err := section.StrictMapTo(dst); err != nil {
		return fmt.Errorf("section %s: %v: %w", name, err, model.ErrConfiguration)
	}
	return nil
}

func requireKeys(section *ini.Section, keys []string) error {
	for _, key := range keys {
		if !section.HasKey(key) || strings.TrimSpace(section.Key(key).String()) == "" {
			return fmt.Errorf("section %s: key %s is missing: %w", section.Name(), key, model.ErrConfiguration)
		}
	}
	return nil
}
