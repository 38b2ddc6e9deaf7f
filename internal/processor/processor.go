package taskprocessor

import (
	"context"
	"log"
	"time"

	"gitlab.ozon.dev/qwestard/berryshop/internal/kafka"
	"gitlab.ozon.dev/qwestard/berryshop/internal/repository"
)

// TaskProcessor перекладывает события аудита из outbox-таблицы в Kafka
// с ограниченным числом повторов.
type TaskProcessor struct {
	repo         repository.AuditTaskRepository
	producer     kafka.Producer
	topic        string
	pollInterval time.Duration
	limit        int
	maxAttempts  int
	retryDelay   time.Duration
}

func NewTaskProcessor(repo repository.AuditTaskRepository, producer kafka.Producer, topic string, pollInterval time.Duration, limit int) *TaskProcessor {
	return &TaskProcessor{
		repo:         repo,
		producer:     producer,
		topic:        topic,
		pollInterval: pollInterval,
		limit:        limit,
		maxAttempts:  3,
		retryDelay:   2 * time.Second,
	}
}

func (p *TaskProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processPendingTasks(ctx)
		}
	}
}

func (p *TaskProcessor) processPendingTasks(ctx context.Context) {
	tasks, err := p.repo.GetPendingTasks(ctx, p.limit, p.maxAttempts)
	if err != nil {
		log.Printf("Error fetching pending tasks: %v", err)
		return
	}
	for _, task := range tasks {
		err = p.repo.MarkTaskProcessing(ctx, task.ID)
		if err != nil {
			log.Printf("Error marking task %d as PROCESSING: %v", task.ID, err)
			continue
		}

		err = p.producer.Publish(p.topic, task.EventData)
		if err != nil {
			p.update(ctx, task, err)
			continue
		}
		err = p.repo.DeleteTask(ctx, task.ID)
		if err != nil {
			log.Printf("Error deleting task %d after successful publish: %v", task.ID, err)
		}
	}
}

func (p *TaskProcessor) update(ctx context.Context, task *repository.AuditTask, err error) {
	newAttempt := task.AttemptCount + 1
	var newStatus repository.AuditTaskStatus
	if newAttempt >= p.maxAttempts {
		newStatus = repository.AuditTaskStatusNoAttemptsLeft
	} else {
		newStatus = repository.AuditTaskStatusFailed
	}
	nextAttempt := time.Now().Add(p.retryDelay)
	errUpd := p.repo.UpdateTaskFailure(ctx, task.ID, newAttempt, newStatus, nextAttempt)
	if errUpd != nil {
		log.Printf("Error updating task %d on failure: %v", task.ID, errUpd)
	}
	log.Printf("Failed to publish task %d: %v", task.ID, err)
}
