package calculator

import (
	"fmt"
	"math"

	"spider/model"
)

const (
	// SecondsPerYear 儒略年
	SecondsPerYear = 365.25 * 86400

	partsPerMillion = 1e-6
)

// Radionuclide 放射性核素, 时间单位 s, 浓度为质量分数
type Radionuclide struct {
	Name           string
	T0             float64
	Abundance      float64
	Concentration  float64
	HeatProduction float64 // W/kg
	HalfLife       float64
}

func NewRadionuclide(cfg model.Radionuclide) (Radionuclide, error) {
	r := Radionuclide{
		Name:           cfg.Name,
		T0:             cfg.T0Years * SecondsPerYear,
		Abundance:      cfg.Abundance,
		Concentration:  cfg.Concentration * partsPerMillion,
		HeatProduction: cfg.HeatProduction,
		HalfLife:       cfg.HalfLifeYears * SecondsPerYear,
	}
	if !(r.HalfLife > 0) {
		return r, fmt.Errorf("radionuclide %s: half_life_years = %g must be positive: %w",
			r.Name, cfg.HalfLifeYears, model.ErrConfiguration)
	}
	if r.Concentration < 0 || r.HeatProduction < 0 {
		return r, fmt.Errorf("radionuclide %s: negative concentration or heat production: %w",
			r.Name, model.ErrConfiguration)
	}
	return r, nil
}

// HeatingRate 单位质量放热 (W/kg), 按半衰期指数衰减
// abundance 只作记录, 浓度已是该核素的质量分数
func (r Radionuclide) HeatingRate(time float64) float64 {
	return r.Concentration * r.HeatProduction * math.Exp(-math.Ln2*(time-r.T0)/r.HalfLife)
}
