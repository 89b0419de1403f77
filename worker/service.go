package worker

import (
	"context"

	"github.com/mihmosh/whisper-flash/component"
	"github.com/mihmosh/whisper-flash/logger"
	"github.com/mihmosh/whisper-flash/observability"
	"github.com/mihmosh/whisper-flash/transcription"
)

// Service wires the queue, result store, processor, and engine into a
// lifecycle-managed component. The HTTP server starts serving immediately;
// the engine loads in the background and /health reports "loading" until
// it is ready.
type Service struct {
	cfg       Config
	engine    transcription.Engine
	queue     *Queue
	store     *Store
	processor *Processor
	log       *logger.Logger
	metrics   *observability.Metrics

	loadCancel context.CancelFunc
}

var _ component.Component = (*Service)(nil)

// NewService creates the worker service. metrics may be nil.
func NewService(cfg Config, engine transcription.Engine, log *logger.Logger, metrics *observability.Metrics) *Service {
	queue := NewQueue(cfg.QueueCapacity)
	store := NewStore(cfg.ResultTTL, cfg.SweepInterval)
	return &Service{
		cfg:       cfg,
		engine:    engine,
		queue:     queue,
		store:     store,
		processor: NewProcessor(queue, store, engine, log, metrics),
		log:       log.WithComponent("worker"),
		metrics:   metrics,
	}
}

// Name implements component.Component.
func (s *Service) Name() string { return "worker" }

// Start launches the janitor, the processor loop, and the engine load in
// the background. It does not wait for the model: requests arriving before
// the engine is ready queue up and the processor handles them once loading
// finishes.
func (s *Service) Start(ctx context.Context) error {
	s.store.StartJanitor(ctx)
	s.processor.Start(ctx)

	loadCtx, cancel := context.WithCancel(context.Background())
	s.loadCancel = cancel
	go func() {
		if err := s.engine.Load(loadCtx); err != nil {
			s.log.Error("Engine load failed", map[string]interface{}{
				"engine": s.engine.Name(),
				"error":  err.Error(),
			})
		}
	}()

	s.log.Info("Worker started", map[string]interface{}{
		"queue_capacity": s.queue.Cap(),
		"engine":         s.engine.Name(),
	})
	return nil
}

// Stop shuts down the processor and the background load.
func (s *Service) Stop(ctx context.Context) error {
	if s.loadCancel != nil {
		s.loadCancel()
	}
	s.processor.Stop()
	s.store.Close()
	return nil
}

// Health implements component.Component.
func (s *Service) Health(ctx context.Context) component.Health {
	if !s.engine.Ready() {
		return component.Health{
			Name:    s.Name(),
			Status:  component.StatusLoading,
			Message: "model loading",
		}
	}
	return component.Health{Name: s.Name(), Status: component.StatusHealthy}
}

// QueueSize returns the number of tasks in Queued state, including the one
// currently being transcribed.
func (s *Service) QueueSize() int {
	return s.store.QueuedCount()
}

// Enqueue tracks and queues a new task for the uploaded chunk.
func (s *Service) Enqueue(ctx context.Context, fileName string, data []byte) (*Task, error) {
	task := NewTask(fileName, data)
	// Track before enqueue so the processor can never finish a task the
	// store has not seen. Rejected tasks are forgotten immediately.
	s.store.Track(task.ID)
	if err := s.queue.Enqueue(task); err != nil {
		s.store.Forget(task.ID)
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordEnqueue(ctx)
	}
	return task, nil
}

// Result returns the stored result for a task ID.
func (s *Service) Result(id string) (*Result, bool) {
	return s.store.Get(id)
}
