package worker

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a transcription task.
type TaskStatus string

const (
	// StatusQueued means the task is waiting or being transcribed.
	StatusQueued TaskStatus = "queued"
	// StatusCompleted means the transcript is available.
	StatusCompleted TaskStatus = "completed"
	// StatusError means transcription failed permanently.
	StatusError TaskStatus = "error"
)

// Task is a single audio chunk moving through the worker.
type Task struct {
	// ID uniquely identifies the task; returned to the client as chunk_id.
	ID string
	// FileName is the original upload name.
	FileName string
	// Data is the raw audio content.
	Data []byte
	// EnqueuedAt is when the task entered the queue.
	EnqueuedAt time.Time
}

// NewTask creates a task with a fresh UUID.
func NewTask(fileName string, data []byte) *Task {
	return &Task{
		ID:         uuid.New().String(),
		FileName:   fileName,
		Data:       data,
		EnqueuedAt: time.Now(),
	}
}

// Result is the terminal outcome of a task, kept in the store for polling.
type Result struct {
	Status     TaskStatus
	Text       string
	Message    string
	FinishedAt time.Time
}
