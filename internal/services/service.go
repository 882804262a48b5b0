package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"risk-service/internal/alerts"
	"risk-service/internal/config"
	"risk-service/internal/logging"
	"risk-service/internal/models"
	"risk-service/internal/risk"
)

// Store is the slice of persistence the evaluation pipeline writes to.
// Alert writes go through the alerts.Manager instead.
type Store interface {
	InsertRiskScore(ctx context.Context, score models.RiskScore) error
}

// Notifier escalates HIGH alerts to the on-call reviewer channel.
type Notifier interface {
	EscalateHighAlert(ctx context.Context, alert models.Alert) error
}

// Task is one queued evaluation request.
type Task struct {
	RequestID string
	Input     risk.Input
}

// WebSocketManager fans newly created alerts out to connected dashboard
// reviewers.
type WebSocketManager struct {
	connections map[*websocket.Conn]bool
	mutex       sync.Mutex
	logger      *logging.Logger
}

// Service runs the evaluation pipeline: score, persist, alert, broadcast,
// escalate. Tasks arrive from the Kafka consumer through a bounded queue
// and are drained by a worker pool.
type Service struct {
	store     Store
	evaluator *risk.Evaluator
	alerts    *alerts.Manager
	notifier  Notifier
	logger    *logging.Logger
	config    config.Config
	tasks     chan Task
	ctx       context.Context
	cancel    context.CancelFunc
	wg        *sync.WaitGroup
	wsManager *WebSocketManager
}

// New constructs an evaluation Service. notifier may be nil when Telegram
// escalation is not configured.
func New(store Store, evaluator *risk.Evaluator, alertMgr *alerts.Manager, notifier Notifier, logger *logging.Logger, cfg config.Config) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		store:     store,
		evaluator: evaluator,
		alerts:    alertMgr,
		notifier:  notifier,
		logger:    logger,
		config:    cfg,
		tasks:     make(chan Task, cfg.Evaluation.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
		wsManager: &WebSocketManager{
			connections: make(map[*websocket.Conn]bool),
			logger:      logger,
		},
	}
}

// Logger exposes the Service's logger to the Kafka consumer.
func (s *Service) Logger() *logging.Logger {
	return s.logger
}

// Start launches the worker pool.
func (s *Service) Start(wg *sync.WaitGroup) {
	s.wg = wg
	for i := 0; i < s.config.Evaluation.MaxWorkers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

// Stop cancels the workers; queued tasks past this point are dropped.
func (s *Service) Stop() {
	s.cancel()
}

// QueueTask enqueues a Task for processing.
func (s *Service) QueueTask(task Task) {
	select {
	case s.tasks <- task:
		s.logger.Debugf("Queued task: request_id=%s user=%s", task.RequestID, task.Input.UserID)
	default:
		s.logger.Errorf("Queue full, dropping task: request_id=%s", task.RequestID)
	}
}

// worker processes Tasks until context is cancelled.
func (s *Service) worker(id int) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			s.logger.Infof("Worker %d stopped", id)
			return
		case task := <-s.tasks:
			if _, _, err := s.Process(s.ctx, task.Input); err != nil {
				s.logger.Errorf("Task %s failed: %v", task.RequestID, err)
			}
		}
	}
}

// Process runs one message through the full pipeline: evaluate, persist the
// score, create an alert when the level qualifies, broadcast and escalate.
// Nothing is written if the score insert fails.
func (s *Service) Process(ctx context.Context, in risk.Input) (models.RiskScore, *models.Alert, error) {
	if s.evaluator.IsCrisis(in.Message) {
		s.logger.Warnf("Crisis indicator in message from user %s", in.UserID)
	}

	score, err := s.evaluator.Evaluate(in)
	if err != nil {
		return models.RiskScore{}, nil, fmt.Errorf("evaluate: %w", err)
	}

	if err := s.store.InsertRiskScore(ctx, score); err != nil {
		return models.RiskScore{}, nil, fmt.Errorf("persist risk score: %w", err)
	}

	alert, err := s.alerts.MaybeCreateAlert(ctx, score)
	if err != nil {
		return models.RiskScore{}, nil, err
	}
	if alert == nil {
		s.logger.Debugf("User %s scored %.0f (%s), no alert", score.UserID, score.Score, score.Level)
		return score, nil, nil
	}

	s.logger.Infof("Alert %s created for user %s (%s, score %.0f)", alert.ID, alert.UserID, alert.RiskLevel, score.Score)
	s.broadcastAlert(*alert)

	if alert.RiskLevel == models.RiskLevelHigh && s.notifier != nil {
		if err := s.notifier.EscalateHighAlert(ctx, *alert); err != nil {
			// Escalation failure must not undo the stored alert.
			s.logger.Errorf("Telegram escalation for alert %s failed: %v", alert.ID, err)
		}
	}

	return score, alert, nil
}

func (s *Service) broadcastAlert(alert models.Alert) {
	payload, err := json.Marshal(alert)
	if err != nil {
		s.logger.Errorf("Marshal alert %s for broadcast failed: %v", alert.ID, err)
		return
	}
	s.wsManager.Broadcast(payload)
}

// AddWebSocketConnection registers a dashboard subscriber.
func (s *Service) AddWebSocketConnection(conn *websocket.Conn) {
	s.wsManager.AddConnection(conn)
}

// RemoveWebSocketConnection drops a dashboard subscriber.
func (s *Service) RemoveWebSocketConnection(conn *websocket.Conn) {
	s.wsManager.RemoveConnection(conn)
}

// AddConnection adds a WebSocket connection.
func (m *WebSocketManager) AddConnection(conn *websocket.Conn) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.connections[conn] = true
	m.logger.Infof("Added WebSocket subscriber (total: %d)", len(m.connections))
}

// RemoveConnection removes a WebSocket connection.
func (m *WebSocketManager) RemoveConnection(conn *websocket.Conn) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.connections, conn)
	m.logger.Infof("Removed WebSocket subscriber (remaining: %d)", len(m.connections))
}

// Broadcast sends a message to every subscriber, dropping dead connections.
func (m *WebSocketManager) Broadcast(message []byte) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for conn := range m.connections {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			m.logger.Errorf("WebSocket write failed, dropping subscriber: %v", err)
			delete(m.connections, conn)
		}
	}
}
