// Package profile manages persistent user profiles: lazily created on
// first contact, updated by the profile tool, and promoted one class per
// academic year.
package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/vidyalinkco/studybot/internal/store"
)

type Profile struct {
	UserID           int64
	Username         string
	CurrentClass     int // 0 = unset
	PreferredSubject string
	CreatedAt        time.Time
	LastUpdated      time.Time
	ProgressionYear  int
}

const (
	// Students progress one class on June 1 each year, capped at class 12.
	progressionMonth = time.June
	progressionDay   = 1
	finalClass       = 12
)

type Service struct {
	db  *sql.DB
	now func() time.Time
}

func NewService(s *store.Store) *Service {
	return &Service{db: s.DB(), now: time.Now}
}

// Get returns the profile for userID, creating it on first contact and
// applying the yearly class progression before handing it out.
func (s *Service) Get(ctx context.Context, userID int64, username string) (*Profile, error) {
	p, err := s.find(ctx, userID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find profile: %w", err)
		}
		return s.create(ctx, userID, username)
	}

	if promoted := s.checkProgression(p); promoted {
		if err := s.persistProgression(ctx, p); err != nil {
			// Keep serving the promoted view; the write retries on the
			// next read since the stored year is still behind.
			log.Printf("[profile] progression persist failed for user=%d: %v", userID, err)
		}
	}
	return p, nil
}

// Update applies class and/or subject changes. Zero values leave the field
// untouched. The write is all-or-nothing.
func (s *Service) Update(ctx context.Context, userID int64, class int, subject string) error {
	if class == 0 && subject == "" {
		return nil
	}

	now := s.now().UTC().Format(time.RFC3339)
	var res sql.Result
	var err error
	switch {
	case class != 0 && subject != "":
		res, err = s.db.ExecContext(ctx, `
			UPDATE user_profiles
			SET current_class = ?, preferred_subject = ?, class_progression_year = ?, last_updated = ?
			WHERE user_id = ?
		`, class, subject, s.now().Year(), now, userID)
	case class != 0:
		res, err = s.db.ExecContext(ctx, `
			UPDATE user_profiles
			SET current_class = ?, class_progression_year = ?, last_updated = ?
			WHERE user_id = ?
		`, class, s.now().Year(), now, userID)
	default:
		res, err = s.db.ExecContext(ctx, `
			UPDATE user_profiles SET preferred_subject = ?, last_updated = ? WHERE user_id = ?
		`, subject, now, userID)
	}
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update profile: user %d not found", userID)
	}
	return nil
}

func (s *Service) find(ctx context.Context, userID int64) (*Profile, error) {
	var p Profile
	var class sql.NullInt64
	var subject sql.NullString
	var createdAt, lastUpdated string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, username, current_class, preferred_subject,
		       created_at, last_updated, class_progression_year
		FROM user_profiles WHERE user_id = ?
	`, userID).Scan(&p.UserID, &p.Username, &class, &subject, &createdAt, &lastUpdated, &p.ProgressionYear)
	if err != nil {
		return nil, err
	}
	if class.Valid {
		p.CurrentClass = int(class.Int64)
	}
	if subject.Valid {
		p.PreferredSubject = subject.String
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.LastUpdated, _ = time.Parse(time.RFC3339, lastUpdated)
	return &p, nil
}

func (s *Service) create(ctx context.Context, userID int64, username string) (*Profile, error) {
	now := s.now().UTC()
	p := &Profile{
		UserID:          userID,
		Username:        username,
		CreatedAt:       now,
		LastUpdated:     now,
		ProgressionYear: now.Year(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, username, created_at, last_updated, class_progression_year)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO NOTHING
	`, userID, username, now.Format(time.RFC3339), now.Format(time.RFC3339), p.ProgressionYear)
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	log.Printf("[profile] created profile for user=%d", userID)
	return p, nil
}

// checkProgression promotes in place and reports whether it did.
func (s *Service) checkProgression(p *Profile) bool {
	if p.CurrentClass == 0 || p.CurrentClass >= finalClass {
		return false
	}

	now := s.now()
	cutoff := time.Date(now.Year(), progressionMonth, progressionDay, 0, 0, 0, 0, now.Location())
	if now.Before(cutoff) || p.ProgressionYear >= now.Year() {
		return false
	}

	p.CurrentClass++
	p.ProgressionYear = now.Year()
	log.Printf("[profile] promoted user=%d to class %d", p.UserID, p.CurrentClass)
	return true
}

func (s *Service) persistProgression(ctx context.Context, p *Profile) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE user_profiles
		SET current_class = ?, class_progression_year = ?, last_updated = ?
		WHERE user_id = ?
	`, p.CurrentClass, p.ProgressionYear, s.now().UTC().Format(time.RFC3339), p.UserID)
	return err
}
