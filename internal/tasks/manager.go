// Package tasks runs deferred units of work under a concurrency cap with
// per-task timeouts, cancellation and a sticky terminal lifecycle.
package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
	"github.com/ternarybob/peto/internal/models"
)

const taskManagerName = "task_manager"

// Deferred is one unit of managed work. It must honour ctx cancellation at
// its cooperative points.
type Deferred func(ctx context.Context) (any, error)

// Handler consumes a named task. Registered per type on the manager.
type Handler func(ctx context.Context, task models.Task) (any, error)

// Manager bounds concurrent task execution and tracks lifecycles.
type Manager struct {
	tracker interfaces.ActivityLogger
	events  interfaces.EventService
	logger  arbor.ILogger

	maxConcurrent int
	taskTimeout   time.Duration
	checkInterval time.Duration

	mu       sync.Mutex
	tasks    map[string]*models.Task
	running  int
	work     map[string]Deferred
	cancels  map[string]context.CancelFunc
	handlers map[string]Handler
}

// NewManager builds a manager from configuration. events may be nil.
func NewManager(config *common.TasksConfig, tracker interfaces.ActivityLogger, events interfaces.EventService, logger arbor.ILogger) *Manager {
	maxConcurrent := config.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = common.DefaultMaxConcurrentTasks
	}
	return &Manager{
		tracker:       tracker,
		events:        events,
		logger:        logger,
		maxConcurrent: maxConcurrent,
		taskTimeout:   config.TaskTimeout(),
		checkInterval: config.QueueCheckInterval(),
		tasks:         make(map[string]*models.Task),
		work:          make(map[string]Deferred),
		cancels:       make(map[string]context.CancelFunc),
		handlers:      make(map[string]Handler),
	}
}

// RegisterHandler binds a named task type to its consumer.
func (m *Manager) RegisterHandler(taskType string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[taskType] = handler
}

// Create registers a pending task around the deferred unit.
func (m *Manager) Create(taskType string, deferred Deferred) models.Task {
	task := &models.Task{
		ID:        common.NewTaskID(),
		Type:      taskType,
		CreatedAt: time.Now(),
		Status:    models.TaskStatusPending,
	}

	m.mu.Lock()
	m.tasks[task.ID] = task
	m.work[task.ID] = deferred
	m.mu.Unlock()

	m.logTransition(task, "created")
	return task.Snapshot()
}

// Enqueue dispatches a named task to its registered handler. Recognised but
// unbound types, and unknown types, are logged and dropped without raising.
func (m *Manager) Enqueue(ctx context.Context, taskType string, payload models.Task) (*models.Task, error) {
	m.mu.Lock()
	handler, ok := m.handlers[taskType]
	m.mu.Unlock()

	if !ok {
		m.tracker.LogActivity("task", fmt.Sprintf("Dropping task of unhandled type %q", taskType), models.ActivityStatusInfo, taskManagerName, "")
		m.logger.Warn().Str("task_type", taskType).Msg("No handler registered, task dropped")
		return nil, nil
	}

	task := m.Create(taskType, func(ctx context.Context) (any, error) {
		return handler(ctx, payload)
	})
	result, err := m.Run(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	final, _ := m.Get(task.ID)
	final.Result = result
	return final, nil
}

// Run executes the task's deferred unit, blocking until a slot frees up.
// The run is bounded by the task timeout and observable through Cancel.
func (m *Manager) Run(ctx context.Context, taskID string) (any, error) {
	m.mu.Lock()
	task, ok := m.tasks[taskID]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("unknown task %s", taskID)
	}
	deferred := m.work[taskID]
	m.mu.Unlock()

	if err := m.acquireSlot(ctx, task); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, m.taskTimeout)
	defer cancel()

	m.mu.Lock()
	if task.Status.IsTerminal() {
		// Cancelled while waiting for a slot.
		m.running--
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: task %s", common.ErrTaskCancelled, taskID)
	}
	now := time.Now()
	task.Status = models.TaskStatusRunning
	task.StartedAt = &now
	m.cancels[taskID] = cancel
	m.mu.Unlock()

	m.logTransition(task, "running")

	result, err := deferred(runCtx)

	m.mu.Lock()
	m.running--
	delete(m.cancels, taskID)
	delete(m.work, taskID)

	if task.Status.IsTerminal() {
		// Cancel won the race; the terminal state is sticky.
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: task %s", common.ErrTaskCancelled, taskID)
	}

	completed := time.Now()
	task.CompletedAt = &completed
	switch {
	case err == nil:
		task.Status = models.TaskStatusCompleted
		task.Result = result
	case runCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil:
		task.Status = models.TaskStatusTimeout
		task.Error = fmt.Sprintf("exceeded %s", m.taskTimeout)
		err = fmt.Errorf("%w: task %s exceeded %s", common.ErrTaskTimeout, taskID, m.taskTimeout)
	case ctx.Err() != nil:
		task.Status = models.TaskStatusCancelled
		task.Error = ctx.Err().Error()
		err = fmt.Errorf("%w: task %s", common.ErrTaskCancelled, taskID)
	default:
		task.Status = models.TaskStatusFailed
		task.Error = err.Error()
	}
	m.mu.Unlock()

	m.logTransition(task, string(task.Status))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// acquireSlot waits cooperatively until the running count drops below the
// cap, polling at the queue check interval.
func (m *Manager) acquireSlot(ctx context.Context, task *models.Task) error {
	for {
		m.mu.Lock()
		if task.Status.IsTerminal() {
			m.mu.Unlock()
			return fmt.Errorf("%w: task %s", common.ErrTaskCancelled, task.ID)
		}
		if m.running < m.maxConcurrent {
			m.running++
			m.mu.Unlock()
			return nil
		}
		m.mu.Unlock()

		if err := common.SleepContext(ctx, m.checkInterval); err != nil {
			return err
		}
	}
}

// Cancel stops a running task. Pending tasks may also be cancelled before
// they start; terminal tasks are left untouched.
func (m *Manager) Cancel(taskID string) bool {
	m.mu.Lock()
	task, ok := m.tasks[taskID]
	if !ok || task.Status.IsTerminal() {
		m.mu.Unlock()
		return false
	}
	if task.Status != models.TaskStatusRunning && task.Status != models.TaskStatusPending {
		m.mu.Unlock()
		return false
	}

	now := time.Now()
	task.Status = models.TaskStatusCancelled
	task.CompletedAt = &now
	task.Error = "cancelled"
	if cancel, ok := m.cancels[taskID]; ok {
		cancel()
		delete(m.cancels, taskID)
	}
	delete(m.work, taskID)
	m.mu.Unlock()

	m.logTransition(task, "cancelled")
	return true
}

// Active returns snapshots of all running tasks.
func (m *Manager) Active() []models.Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	var active []models.Task
	for _, task := range m.tasks {
		if task.Status == models.TaskStatusRunning {
			active = append(active, task.Snapshot())
		}
	}
	return active
}

// Get returns a snapshot of the task, if known.
func (m *Manager) Get(taskID string) (*models.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[taskID]
	if !ok {
		return nil, false
	}
	snapshot := task.Snapshot()
	return &snapshot, true
}

// RunningCount reports the current number of running tasks.
func (m *Manager) RunningCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) logTransition(task *models.Task, transition string) {
	status := models.ActivityStatusInfo
	switch task.Status {
	case models.TaskStatusCompleted:
		status = models.ActivityStatusSuccess
	case models.TaskStatusFailed:
		status = models.ActivityStatusFailed
	case models.TaskStatusTimeout:
		status = models.ActivityStatusTimeout
	case models.TaskStatusCancelled:
		status = models.ActivityStatusCancelled
	}
	m.tracker.LogActivity("task", fmt.Sprintf("Task %s (%s) %s", task.ID, task.Type, transition), status, taskManagerName, "")

	if m.events != nil {
		m.events.Publish(context.Background(), interfaces.Event{
			Type:      interfaces.EventTaskTransition,
			Timestamp: time.Now(),
			Payload: map[string]any{
				"task_id":    task.ID,
				"task_type":  task.Type,
				"transition": transition,
				"status":     string(task.Status),
			},
		})
	}
}
