package server

import (
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"spider/calculator"
	"spider/model"
)

// 每个连接保留的历史帧数
const defaultHistoryLength = 512

// NewCalculatorFunc 根据前端发来的参数创建计算器, 计算过程中的帧推送到 hub
type NewCalculatorFunc func(params *model.Parameters, hub *calculator.CalcHub, logger log.FieldLogger) (calculator.Calculator, error)

func newSolver(params *model.Parameters, hub *calculator.CalcHub, logger log.FieldLogger) (calculator.Calculator, error) {
	return calculator.NewSolver(params, calculator.WithCalcHub(hub), calculator.WithLogger(logger))
}

type Server struct {
	addr     string
	upgrader websocket.Upgrader
	logger   log.FieldLogger

	HistoryLength int
	NewCalculator NewCalculatorFunc

	connections int64
}

func NewServer(addr string, upgrader websocket.Upgrader, logger log.FieldLogger) *Server {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Server{
		addr:          addr,
		upgrader:      upgrader,
		logger:        logger,
		HistoryLength: defaultHistoryLength,
		NewCalculator: newSolver,
	}
}

// serveWs 处理来自客户端的 websocket 请求
func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("upgrade failed")
		return
	}
	defer conn.Close()

	id := atomic.AddInt64(&s.connections, 1)
	logger := s.logger.WithFields(log.Fields{"conn": id, "remote": conn.RemoteAddr().String()})
	hub := NewHub(conn, s.NewCalculator, s.HistoryLength, logger)
	defer hub.Close()
	go hub.handleResponse()

	logger.Info("connected")
	for {
		var msg model.Msg
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithError(err).Warn("read failed")
			}
			logger.Info("disconnected")
			return
		}
		hub.handleRequest(msg)
	}
}

// Handler 在 /ws 上提供 websocket 服务
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWs)
	return mux
}

func (s *Server) Serve() error {
	s.logger.WithField("addr", s.addr).Info("listening")
	return http.ListenAndServe(s.addr, s.Handler())
}
