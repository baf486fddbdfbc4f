// 文件路径: internal/async/subscription_log_queue.go
// 模块说明: 订阅拉取日志的内存缓冲，后台定时批量落库，避免阻塞订阅请求。
package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/creamcroissant/xboard-sub/internal/repository"
)

const (
	subscriptionLogWriteTimeout  = 3 * time.Second
	defaultSubscriptionLogFlush  = 5 * time.Second
	defaultSubscriptionLogBuffer = 10000
)

// SubscriptionLogQueue buffers subscription logs before background ingestion.
type SubscriptionLogQueue struct {
	mu       sync.Mutex
	logs     []*repository.SubscriptionLog
	repo     repository.SubscriptionLogRepository
	logger   *slog.Logger
	interval time.Duration
	capacity int
	dropped  int64
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSubscriptionLogQueue 构建缓冲队列并启动后台写入。interval <= 0 时使用 5s。
func NewSubscriptionLogQueue(repo repository.SubscriptionLogRepository, interval time.Duration, logger *slog.Logger) *SubscriptionLogQueue {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = defaultSubscriptionLogFlush
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &SubscriptionLogQueue{
		logs:     make([]*repository.SubscriptionLog, 0),
		repo:     repo,
		logger:   logger,
		interval: interval,
		capacity: defaultSubscriptionLogBuffer,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go q.worker()
	return q
}

// Enqueue appends a subscription log for asynchronous processing. 缓冲已满时丢弃。
func (q *SubscriptionLogQueue) Enqueue(log *repository.SubscriptionLog) {
	if q == nil || log == nil {
		return
	}
	if log.CreatedAt == 0 {
		log.CreatedAt = time.Now().Unix()
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.logs) >= q.capacity {
		q.dropped++
		return
	}
	q.logs = append(q.logs, log)
}

// Pending 返回尚未写入的日志条数。
func (q *SubscriptionLogQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.logs)
}

// worker periodically flushes logs to the database.
func (q *SubscriptionLogQueue) worker() {
	defer close(q.done)
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			q.Flush(context.Background())
			return
		case <-ticker.C:
			q.Flush(q.ctx)
		}
	}
}

// Flush writes all pending logs to the repository and returns how many were persisted.
func (q *SubscriptionLogQueue) Flush(ctx context.Context) int {
	q.mu.Lock()
	if len(q.logs) == 0 {
		q.mu.Unlock()
		return 0
	}
	pending := q.logs
	q.logs = make([]*repository.SubscriptionLog, 0, len(pending))
	dropped := q.dropped
	q.dropped = 0
	q.mu.Unlock()

	if dropped > 0 {
		q.logger.Warn("subscription log buffer full, entries dropped", "dropped", dropped)
	}

	written := 0
	for _, log := range pending {
		logCtx, cancel := context.WithTimeout(ctx, subscriptionLogWriteTimeout)
		err := q.repo.Log(logCtx, log)
		cancel()
		if err != nil {
			q.logger.Error("failed to persist subscription log", "error", err, "user_id", log.UserID)
			continue
		}
		written++
	}
	return written
}

// Stop 停止后台写入，返回前把剩余日志写完。
func (q *SubscriptionLogQueue) Stop() {
	if q == nil {
		return
	}
	q.cancel()
	<-q.done
}
