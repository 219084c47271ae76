// Package workerpool реализует ограниченный пул фоновых задач.
//
// Пул принимает задачи без блокировки: при заполненной очереди Submit
// возвращает false, и вызывающая сторона сама решает, что делать с отказом.
// Это замена неуправляемым goroutine: отказ наблюдаем, перегрузка ограничена.
package workerpool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Task - единица фоновой работы.
type Task func()

// Pool - пул воркеров с ограниченной очередью.
type Pool struct {
	log   *slog.Logger
	tasks chan Task
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New запускает пул с указанным числом воркеров и размером очереди.
func New(log *slog.Logger, workers, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	p := &Pool{
		log:   log,
		tasks: make(chan Task, queueSize),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(id, task)
	}
}

func (p *Pool) run(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("panic in background task",
				slog.Int("worker", id),
				slog.String("panic", fmt.Sprint(r)))
		}
	}()
	task()
}

// Submit ставит задачу в очередь. Возвращает false, если очередь заполнена
// или пул остановлен; задача в этом случае не принимается.
func (p *Pool) Submit(task Task) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.tasks <- task:
		return true
	default:
		return false
	}
}

// Shutdown прекращает прием задач и ждет завершения уже принятых,
// пока не истечет контекст.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
