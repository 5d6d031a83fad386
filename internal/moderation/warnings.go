package moderation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/vidyalinkco/studybot/internal/store"
)

type Record struct {
	UserID        int64
	ChatID        int64
	Username      string
	WarningCount  int
	LastReason    string
	LastWarningAt time.Time
	Banned        bool
}

// WarningStore persists one violation counter per (user, chat) pair.
// Increments for the same key are serialized by a per-key mutex; different
// keys proceed in parallel.
type WarningStore struct {
	db        *sql.DB
	threshold int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewWarningStore(s *store.Store, threshold int) *WarningStore {
	return &WarningStore{
		db:        s.DB(),
		threshold: threshold,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (w *WarningStore) Threshold() int {
	return w.threshold
}

func (w *WarningStore) keyLock(userID, chatID int64) *sync.Mutex {
	key := fmt.Sprintf("%d:%d", userID, chatID)
	w.mu.Lock()
	defer w.mu.Unlock()
	l, ok := w.locks[key]
	if !ok {
		l = &sync.Mutex{}
		w.locks[key] = l
	}
	return l
}

// GetCount returns the warning count for a (user, chat) pair. An unreadable
// record counts as 0: escalation never happens on uncertain data.
func (w *WarningStore) GetCount(ctx context.Context, userID, chatID int64) int {
	var count int
	err := w.db.QueryRowContext(ctx, `
		SELECT warning_count FROM warnings WHERE user_id = ? AND chat_id = ?
	`, userID, chatID).Scan(&count)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("[warnings] read failed for user=%d chat=%d, treating as 0: %v", userID, chatID, err)
		}
		return 0
	}
	return count
}

// RecordViolation increments the counter and persists the updated record.
// The returned record always reflects the incremented count; a non-nil
// error means persistence failed and the caller must log it so messaging
// stays consistent with stored state.
func (w *WarningStore) RecordViolation(ctx context.Context, userID, chatID int64, username, reason string) (Record, error) {
	l := w.keyLock(userID, chatID)
	l.Lock()
	defer l.Unlock()

	newCount := w.GetCount(ctx, userID, chatID) + 1
	rec := Record{
		UserID:        userID,
		ChatID:        chatID,
		Username:      username,
		WarningCount:  newCount,
		LastReason:    reason,
		LastWarningAt: time.Now().UTC(),
		Banned:        newCount >= w.threshold,
	}

	_, err := w.db.ExecContext(ctx, `
		INSERT INTO warnings (user_id, chat_id, username, warning_count, last_reason, last_warning_at, banned)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, chat_id) DO UPDATE SET
			username = excluded.username,
			warning_count = excluded.warning_count,
			last_reason = excluded.last_reason,
			last_warning_at = excluded.last_warning_at,
			banned = MAX(warnings.banned, excluded.banned)
	`, userID, chatID, username, rec.WarningCount, reason,
		rec.LastWarningAt.Format(time.RFC3339), boolToInt(rec.Banned))
	if err != nil {
		return rec, fmt.Errorf("persist warning: %w", err)
	}
	return rec, nil
}

// IsBanned reports the persisted ban flag. Read errors fail to false.
func (w *WarningStore) IsBanned(ctx context.Context, userID, chatID int64) bool {
	var banned int
	err := w.db.QueryRowContext(ctx, `
		SELECT banned FROM warnings WHERE user_id = ? AND chat_id = ?
	`, userID, chatID).Scan(&banned)
	if err != nil {
		return false
	}
	return banned == 1
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
