package calculator

import (
	"context"
	"errors"
	"io"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spider/model"
)

func TestSweep(t *testing.T) {
	logger := log.New()
	logger.Out = io.Discard

	emissivities := []float64{1, 0.5, 2, 0.1}
	params := make([]*model.Parameters, len(emissivities))
	for i, e := range emissivities {
		params[i] = shortParameters(t)
		params[i].BoundaryConditions.Emissivity = e
	}

	results := Sweep(context.Background(), params, 3, logger)
	require.Len(t, results, len(params))
	for i, r := range results {
		assert.Equal(t, i, r.Index)
	}

	// 发射率 2 非法, 不影响其他参数组
	assert.True(t, errors.Is(results[2].Err, model.ErrConfiguration))
	var surfaces []float64
	for _, i := range []int{0, 1, 3} {
		require.NoError(t, results[i].Err)
		s := results[i].Solution.Surface()
		surfaces = append(surfaces, s[len(s)-1])
	}
	// 发射率越小, 表面越热
	assert.Less(t, surfaces[0], surfaces[1])
	assert.Less(t, surfaces[1], surfaces[2])
}

func TestSweep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := Sweep(ctx, []*model.Parameters{shortParameters(t), shortParameters(t)}, 0, log.New())
	for _, r := range results {
		assert.True(t, errors.Is(r.Err, context.Canceled))
	}
	assert.Empty(t, Sweep(context.Background(), nil, 2, log.New()))
}

func TestSweep_NilLogger(t *testing.T) {
	results := Sweep(context.Background(), []*model.Parameters{shortParameters(t)}, 1, nil)
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
	assert.NotNil(t, results[0].Solution)
}
