// Package ratelimit реализует ворота допуска со скользящим окном
// для webhook-эндпоинта.
//
// Лимитер процессно-локальный и сбрасывается при рестарте - это осознанный
// компромисс для данного эндпоинта. При необходимости межпроцессной точности
// за тем же интерфейсом Admit можно разместить внешний счетчик.
package ratelimit

import (
	"sync"
	"time"
)

// SlidingWindow хранит отметки времени допусков по каждому клиенту
// и отклоняет запросы сверх потолка в пределах окна. Все вызовы
// синхронные, без блокирующих ожиданий.
type SlidingWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   map[string][]time.Time
	now    func() time.Time
}

// NewSlidingWindow создает лимитер: не более limit допусков на клиента
// в пределах window.
func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:  limit,
		window: window,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Admit регистрирует попытку клиента. Возвращает true и записывает отметку,
// если потолок в текущем окне не достигнут.
func (l *SlidingWindow) Admit(clientID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	recent := l.hits[clientID][:0]
	for _, ts := range l.hits[clientID] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= l.limit {
		l.hits[clientID] = recent
		return false
	}

	l.hits[clientID] = append(recent, now)
	return true
}

// RetryAfter возвращает подсказку для заголовка Retry-After.
func (l *SlidingWindow) RetryAfter() time.Duration {
	return l.window
}

// Reset очищает состояние всех клиентов.
func (l *SlidingWindow) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hits = make(map[string][]time.Time)
}
