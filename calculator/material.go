package calculator

import (
	"fmt"

	"spider/model"
	"spider/phase"
)

// 参与计算的相
const (
	PhaseLiquid = "liquid"
	PhaseSolid  = "solid"
	PhaseMixed  = "mixed"
)

// NewEvaluator 根据 [phase_mixed] phase 选择物性计算方式, 默认液相
func NewEvaluator(params *model.Parameters) (phase.Evaluator, error) {
	switch params.PhaseMixed.Phase {
	case "", PhaseLiquid:
		return phase.NewSingle(PhaseLiquid, params.PhaseLiquid, 1, params.Root)
	case PhaseSolid:
		return phase.NewSingle(PhaseSolid, params.PhaseSolid, 0, params.Root)
	case PhaseMixed:
		solid, err := phase.NewSingle(PhaseSolid, params.PhaseSolid, 0, params.Root)
		if err != nil {
			return nil, err
		}
		liquid, err := phase.NewSingle(PhaseLiquid, params.PhaseLiquid, 1, params.Root)
		if err != nil {
			return nil, err
		}
		return phase.NewMixed(solid, liquid, params.PhaseMixed, params.Root)
	}
	return nil, fmt.Errorf("phase_mixed: phase = %q is unknown: %w", params.PhaseMixed.Phase, model.ErrConfiguration)
}
