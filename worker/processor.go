package worker

import (
	"context"
	"sync"
	"time"

	"github.com/mihmosh/whisper-flash/logger"
	"github.com/mihmosh/whisper-flash/observability"
	"github.com/mihmosh/whisper-flash/transcription"
)

// Processor drains the queue one task at a time and writes outcomes to the
// store. A single consumer keeps GPU memory usage predictable; concurrency
// across an instance fleet comes from running more workers, not more
// goroutines per model.
type Processor struct {
	queue   *Queue
	store   *Store
	engine  transcription.Engine
	log     *logger.Logger
	metrics *observability.Metrics

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewProcessor creates a processor. metrics may be nil.
func NewProcessor(queue *Queue, store *Store, engine transcription.Engine, log *logger.Logger, metrics *observability.Metrics) *Processor {
	return &Processor{
		queue:   queue,
		store:   store,
		engine:  engine,
		log:     log.WithComponent("processor"),
		metrics: metrics,
		done:    make(chan struct{}),
	}
}

// Start launches the consumer loop.
func (p *Processor) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	go p.run(ctx)
}

// Stop cancels the loop and waits for the in-flight task to finish.
func (p *Processor) Stop() {
	p.once.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
		<-p.done
	})
}

func (p *Processor) run(ctx context.Context) {
	defer close(p.done)
	for {
		task, err := p.queue.Dequeue(ctx)
		if err != nil {
			return
		}
		p.process(ctx, task)
	}
}

// process transcribes one task. Failures are recorded on the task and never
// stop the loop, so one bad chunk cannot poison the queue.
func (p *Processor) process(ctx context.Context, task *Task) {
	start := time.Now()
	fields := map[string]interface{}{
		"task_id": task.ID,
		"file":    task.FileName,
		"bytes":   len(task.Data),
	}
	p.log.Info("Transcribing chunk", fields)

	resp, err := p.engine.Transcribe(ctx, transcription.Request{
		FileName: task.FileName,
		Data:     task.Data,
	})
	duration := time.Since(start)

	if err != nil {
		p.store.Fail(task.ID, err.Error())
		fields["error"] = err.Error()
		fields["duration"] = duration.String()
		p.log.Error("Transcription failed", fields)
		if p.metrics != nil {
			p.metrics.RecordTask(ctx, string(StatusError), duration)
			p.metrics.RecordError(ctx, "transcription", "worker")
		}
		return
	}

	p.store.Complete(task.ID, resp.Text)
	fields["duration"] = duration.String()
	fields["chars"] = len(resp.Text)
	p.log.Info("Chunk transcribed", fields)
	if p.metrics != nil {
		p.metrics.RecordTask(ctx, string(StatusCompleted), duration)
	}
}
