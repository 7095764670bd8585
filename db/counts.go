package db

import (
	"database/sql"

	"github.com/sx120609/Nishikigi/model"
)

// GetCount retrieves a user's submission counts for the given date.
// 没有记录时返回零值, 不落库.
func (s *Store) GetCount(userID int64, date string) (*model.SubmissionCount, error) {
	var c model.SubmissionCount
	err := s.db.QueryRow(
		"SELECT user_id, date, normal_count, anonymous_count FROM submission_counts WHERE user_id = ? AND date = ?",
		userID, date,
	).Scan(&c.UserID, &c.Date, &c.Normal, &c.Anonymous)
	if err != nil {
		if err == sql.ErrNoRows {
			return &model.SubmissionCount{UserID: userID, Date: date}, nil
		}
		return nil, err
	}
	return &c, nil
}

// IncrementNormalCount increments the normal_count for a user, creating
// the row if absent.
func (s *Store) IncrementNormalCount(userID int64, date string) error {
	_, err := s.db.Exec(
		"INSERT INTO submission_counts (user_id, date, normal_count) VALUES (?, ?, 1) ON CONFLICT(user_id, date) DO UPDATE SET normal_count = normal_count + 1",
		userID, date,
	)
	return err
}

// IncrementAnonymousCount increments the anonymous_count for a user,
// creating the row if absent.
func (s *Store) IncrementAnonymousCount(userID int64, date string) error {
	_, err := s.db.Exec(
		"INSERT INTO submission_counts (user_id, date, anonymous_count) VALUES (?, ?, 1) ON CONFLICT(user_id, date) DO UPDATE SET anonymous_count = anonymous_count + 1",
		userID, date,
	)
	return err
}

// ResetCount clears both counters for a user on the given date.
func (s *Store) ResetCount(userID int64, date string) error {
	_, err := s.db.Exec("DELETE FROM submission_counts WHERE user_id = ? AND date = ?", userID, date)
	return err
}
