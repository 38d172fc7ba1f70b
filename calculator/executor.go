package calculator

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"spider/model"
)

// Result 参数扫描中一组参数的结果
type Result struct {
	Index    int
	Solution *Solution
	Err      error
	Duration time.Duration
}

type task struct {
	index  int
	params *model.Parameters
}

// 固定数量的 worker 从 dispatchChan 取任务
type executor struct {
	dispatchChan chan task
	results      chan Result
	workers      int
	logger       log.FieldLogger
}

func newExecutor(workers, tasks int, logger log.FieldLogger) *executor {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &executor{
		dispatchChan: make(chan task, tasks),
		results:      make(chan Result, tasks),
		workers:      workers,
		logger:       logger,
	}
}

func (e *executor) run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for t := range e.dispatchChan {
				e.results <- e.solve(ctx, worker, t)
			}
		}(i)
	}
	go func() {
		wg.Wait()
		close(e.results)
	}()
}

func (e *executor) solve(ctx context.Context, worker int, t task) Result {
	start := time.Now()
	logger := e.logger.WithFields(log.Fields{"run": t.index, "worker": worker})
	res := Result{Index: t.index}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	s, err := NewSolver(t.params, WithLogger(logger))
	if err != nil {
		res.Err = err
		return res
	}
	res.Solution, res.Err = s.Solve(ctx)
	res.Duration = time.Since(start)
	logger.WithField("duration", res.Duration).Info("run finished")
	return res
}

// Sweep 多组参数各自独立求解, 每组一个 Solver, 互不共享状态
// 结果按输入顺序返回
func Sweep(ctx context.Context, params []*model.Parameters, workers int, logger log.FieldLogger) []Result {
	e := newExecutor(workers, len(params), logger)
	e.run(ctx)
	for i, p := range params {
		e.dispatchChan <- task{index: i, params: p}
	}
	close(e.dispatchChan)

	results := make([]Result, len(params))
	for r := range e.results {
		results[r.Index] = r
	}
	return results
}
