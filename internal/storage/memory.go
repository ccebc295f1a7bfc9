package storage

import (
	"context"
	"sync"
	"time"

	"financeflow/internal/core"
	"financeflow/internal/session"
)

type alertKey struct {
	userID   string
	category core.Category
	month    core.MonthKey
}

type exportKey struct {
	userID string
	month  core.MonthKey
}

// MemoryRepository keeps everything in process memory. Nothing survives a
// restart; used for tests and ephemeral runs.
type MemoryRepository struct {
	mu        sync.Mutex
	token     string
	snapshots map[string]core.Snapshot
	alerts    map[alertKey]time.Time
	exports   map[exportKey]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		snapshots: make(map[string]core.Snapshot),
		alerts:    make(map[alertKey]time.Time),
		exports:   make(map[exportKey]string),
	}
}

func (m *MemoryRepository) LoadToken(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", session.ErrNoToken
	}
	return m.token, nil
}

func (m *MemoryRepository) SaveToken(_ context.Context, token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *MemoryRepository) ClearToken(context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	return nil
}

func (m *MemoryRepository) SaveSnapshot(_ context.Context, userID string, snap core.Snapshot) error {
	m.mu.Lock()
	m.snapshots[userID] = snap.Clone()
	m.mu.Unlock()
	return nil
}

func (m *MemoryRepository) LoadSnapshot(_ context.Context, userID string) (core.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snapshots[userID]
	if !ok {
		return core.Snapshot{}, ErrNoSnapshot
	}
	return snap.Clone(), nil
}

func (m *MemoryRepository) AlertSent(_ context.Context, userID string, category core.Category, month core.MonthKey) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, sent := m.alerts[alertKey{userID: userID, category: category, month: month}]
	return sent, nil
}

func (m *MemoryRepository) MarkAlertSent(_ context.Context, userID string, category core.Category, month core.MonthKey, at time.Time) (bool, error) {
	key := alertKey{userID: userID, category: category, month: month}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, sent := m.alerts[key]; sent {
		return false, nil
	}
	m.alerts[key] = at
	return true, nil
}

func (m *MemoryRepository) LastExportFingerprint(_ context.Context, userID string, month core.MonthKey) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exports[exportKey{userID: userID, month: month}], nil
}

func (m *MemoryRepository) RecordExport(_ context.Context, userID string, month core.MonthKey, fingerprint string, _ time.Time) error {
	m.mu.Lock()
	m.exports[exportKey{userID: userID, month: month}] = fingerprint
	m.mu.Unlock()
	return nil
}

func (m *MemoryRepository) Close() error { return nil }
