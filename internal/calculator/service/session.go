package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"refloor/internal/calculator/metrics"
	"refloor/internal/calculator/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInvalidSession = errors.New("invalid session id")

// StorageProvider выдаёт хранилище, ограниченное одной сессией.
type StorageProvider interface {
	ForSession(sessionID string) store.Storage
	Ping(ctx context.Context) error
}

// ============================================================
// Session Manager
// ============================================================

type sessionEntry struct {
	calc     *Calculator
	lastUsed time.Time
}

type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry // sessionID -> calculator
	provider StorageProvider
	log      *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewSessionManager(provider StorageProvider, log *zap.Logger, m *metrics.Metrics) *SessionManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionManager{
		sessions: make(map[string]*sessionEntry),
		provider: provider,
		log:      log,
		metrics:  m,
		now:      time.Now,
	}
}

// Issue открывает новую сессию с состоянием по умолчанию.
func (m *SessionManager) Issue(ctx context.Context) (string, *Calculator) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	calc := m.open(ctx, id)
	return id, calc
}

// Resolve возвращает калькулятор сессии. Если сессии нет в памяти
// (после перезапуска или вытеснения), состояние поднимается из хранилища.
func (m *SessionManager) Resolve(ctx context.Context, sessionID string) (*Calculator, error) {
	parsed, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSession, sessionID)
	}
	id := parsed.String()

	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.sessions[id]; ok {
		entry.lastUsed = m.now()
		return entry.calc, nil
	}
	return m.open(ctx, id), nil
}

func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Ready проверяет доступность хранилища.
func (m *SessionManager) Ready(ctx context.Context) error {
	return m.provider.Ping(ctx)
}

// Evict выгружает из памяти сессии, к которым не обращались дольше idle.
// Состояние уже сохранено каждой командой, поэтому следующий Resolve
// поднимет его из хранилища.
func (m *SessionManager) Evict(idle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-idle)
	evicted := 0
	for id, entry := range m.sessions {
		if entry.lastUsed.After(cutoff) {
			continue
		}
		delete(m.sessions, id)
		m.metrics.SessionClosed()
		evicted++
	}
	if evicted > 0 {
		m.log.Debug("idle sessions evicted", zap.Int("count", evicted), zap.Int("remaining", len(m.sessions)))
	}
	return evicted
}

// RunEviction периодически вызывает Evict, пока не отменён ctx.
func (m *SessionManager) RunEviction(ctx context.Context, every, idle time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Evict(idle)
		}
	}
}

func (m *SessionManager) open(ctx context.Context, id string) *Calculator {
	logger := m.log.With(zap.String("session", id))
	st := store.New(m.provider.ForSession(id), logger, store.OnCorrupt(func() {
		m.metrics.Reset("corrupt")
	}))
	calc := NewCalculator(ctx, st, logger, m.metrics)
	m.sessions[id] = &sessionEntry{calc: calc, lastUsed: m.now()}
	m.metrics.SessionOpened()
	return calc
}
