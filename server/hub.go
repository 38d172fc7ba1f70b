package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"spider/calculator"
	"spider/deque"
	"spider/model"
)

// 请求类型
const (
	MsgStart   = "start" // Content 为 INI 格式的参数
	MsgStop    = "stop"
	MsgHistory = "history"
)

// 回复类型
const (
	MsgStarted  = "started"
	MsgFrame    = "frame"
	MsgFinished = "finished"
	MsgStopped  = "stopped"
	MsgError    = "error"
)

// 计算器推送帧的缓冲
const calcHubBuffer = 256

// Summary 计算结束时发送给前端
type Summary struct {
	Steps       int     `json:"steps"`
	Rejected    int     `json:"rejected"`
	Evaluations int     `json:"evaluations"`
	TimeYears   float64 `json:"time_years"`
	Dropped     int     `json:"dropped"`
}

// Hub 一个连接上的计算任务, 以及计算过程中推送的温度剖面
type Hub struct {
	conn          *websocket.Conn
	newCalculator NewCalculatorFunc
	logger        log.FieldLogger

	// response
	reply chan model.Msg
	done  chan struct{}
	once  sync.Once

	mu      sync.Mutex
	history *deque.ArrDeque
	cancel  context.CancelFunc
	running sync.WaitGroup
}

func NewHub(conn *websocket.Conn, newCalculator NewCalculatorFunc, historyLength int, logger log.FieldLogger) *Hub {
	return &Hub{
		conn:          conn,
		newCalculator: newCalculator,
		logger:        logger,
		reply:         make(chan model.Msg, 16),
		done:          make(chan struct{}),
		history:       deque.NewArrDeque(historyLength),
	}
}

// handleResponse 唯一的写端
func (h *Hub) handleResponse() {
	for {
		select {
		case reply := <-h.reply:
			if err := h.conn.WriteJSON(&reply); err != nil {
				h.logger.WithError(err).Warn("write failed")
			}
		case <-h.done:
			return
		}
	}
}

func (h *Hub) send(reply model.Msg) {
	select {
	case h.reply <- reply:
	case <-h.done:
	}
}

func (h *Hub) sendJSON(typ string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.sendError(err)
		return
	}
	h.send(model.Msg{Type: typ, Content: string(data)})
}

func (h *Hub) sendError(err error) {
	h.send(model.Msg{Type: MsgError, Content: err.Error()})
}

func (h *Hub) handleRequest(msg model.Msg) {
	switch msg.Type {
	case MsgStart:
		h.start(msg.Content)
	case MsgStop:
		if !h.stop() {
			h.send(model.Msg{Type: MsgError, Content: "no calculation is running"})
		}
	case MsgHistory:
		h.mu.Lock()
		frames := h.history.Slice()
		h.mu.Unlock()
		h.sendJSON(MsgHistory, frames)
	default:
		h.logger.WithField("type", msg.Type).Warn("no such type")
		h.send(model.Msg{Type: MsgError, Content: "no such type: " + msg.Type})
	}
}

func (h *Hub) start(content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.send(model.Msg{Type: MsgError, Content: "a calculation is already running"})
		return
	}

	params, err := calculator.LoadParameters([]byte(content))
	if err != nil {
		h.sendError(err)
		return
	}
	calcHub := calculator.NewCalcHub(calcHubBuffer)
	c, err := h.newCalculator(params, calcHub, h.logger)
	if err != nil {
		h.sendError(err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	for !h.history.IsEmpty() {
		h.history.RemoveFirst()
	}
	h.send(model.Msg{Type: MsgStarted})

	h.running.Add(1)
	go h.run(ctx, c, calcHub)
}

func (h *Hub) run(ctx context.Context, c calculator.Calculator, calcHub *calculator.CalcHub) {
	defer h.running.Done()

	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for frame := range calcHub.Frames() {
			h.mu.Lock()
			h.history.PushLast(frame)
			h.mu.Unlock()
			h.sendJSON(MsgFrame, frame)
		}
	}()

	sol, err := c.Solve(ctx)
	calcHub.Close()
	<-forwarded

	h.mu.Lock()
	h.cancel()
	h.cancel = nil
	h.mu.Unlock()

	switch {
	case errors.Is(err, context.Canceled):
		h.send(model.Msg{Type: MsgStopped, Content: "stopped"})
	case err != nil:
		h.sendError(err)
	default:
		summary := Summary{
			Steps:       sol.Steps,
			Rejected:    sol.Rejected,
			Evaluations: sol.Evaluations,
			Dropped:     calcHub.Dropped(),
		}
		if years := sol.TimesYears(); len(years) > 0 {
			summary.TimeYears = years[len(years)-1]
		}
		h.sendJSON(MsgFinished, summary)
	}
}

// stop 取消正在进行的计算
func (h *Hub) stop() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel == nil {
		return false
	}
	h.cancel()
	return true
}

// Close 取消计算并等待其退出
func (h *Hub) Close() {
	h.stop()
	h.once.Do(func() { close(h.done) })
	h.running.Wait()
}
