// Package atmosphere 岩浆洋上方大气的表面热流, 为表面温度和时间的函数
package atmosphere

import (
	"fmt"
	"math"

	"spider/model"
)

// Provider 给定表面温度 (K) 和时间 (s) 的向外热流 (W/m^2, 向外为正)
type Provider interface {
	Flux(surfaceTemperature, time float64) (float64, error)
}

// ProviderFunc 把函数用作 Provider
type ProviderFunc func(surfaceTemperature, time float64) (float64, error)

func (f ProviderFunc) Flux(surfaceTemperature, time float64) (float64, error) {
	return f(surfaceTemperature, time)
}

// Zahnle1988 水蒸气大气的参数化热流,
// Zahnle et al. (1988): F = 1.5e2 + 1.02e-5 exp(0.011 Ts)
type Zahnle1988 struct{}

func (Zahnle1988) Flux(surfaceTemperature, _ float64) (float64, error) {
	if !(surfaceTemperature > 0) || math.IsInf(surfaceTemperature, 0) {
		return 0, fmt.Errorf("steam atmosphere: surface temperature %g: %w", surfaceTemperature, model.ErrDomain)
	}
	flux := 1.5e2 + 1.02e-5*math.Exp(0.011*surfaceTemperature)
	if math.IsInf(flux, 0) {
		return 0, fmt.Errorf("steam atmosphere: flux overflows at %g K: %w", surfaceTemperature, model.ErrDomain)
	}
	return flux, nil
}
