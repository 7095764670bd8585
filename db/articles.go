package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sx120609/Nishikigi/model"
)

// rowScanner is an interface that can be satisfied by *sql.Row or *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanArticle scans a row into an Article struct.
func scanArticle(scanner rowScanner) (*model.Article, error) {
	var (
		a         model.Article
		createdAt int64
		approvers string
	)
	err := scanner.Scan(
		&a.ID, &a.SenderID, &a.SenderName, &a.Anonymous, &a.Single,
		&createdAt, &a.Status, &a.ExternalRef, &approvers, &a.ReviewerID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Return nil, nil if no article is found
		}
		return nil, err
	}
	a.CreatedAt = time.Unix(createdAt, 0)
	a.Approvers = model.DecodeApproverSet(approvers)
	return &a, nil
}

const articleColumns = `id, sender_id, COALESCE(sender_name, '') as sender_name,
	anonymous, single, created_at, status, COALESCE(external_ref, '') as external_ref, approvers, reviewer_id`

// CreateArticle inserts a new article in CREATED state and returns its
// sequential id. 匿名投稿的 senderName 传空串.
func (s *Store) CreateArticle(senderID int64, senderName string, anonymous, single bool, createdAt time.Time) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() // Rollback on error

	id, err := nextArticleID(tx)
	if err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(`INSERT INTO articles(
		id, sender_id, sender_name, anonymous, single, created_at, status, approvers
	) VALUES(?, ?, ?, ?, ?, ?, ?, '')`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	_, err = stmt.Exec(id, senderID, senderName, anonymous, single, createdAt.Unix(), model.StatusCreated)
	if err != nil {
		return 0, err
	}

	return id, tx.Commit()
}

// GetArticle retrieves an article by its ID. Returns nil, nil when absent.
func (s *Store) GetArticle(id int64) (*model.Article, error) {
	row := s.db.QueryRow("SELECT "+articleColumns+" FROM articles WHERE id = ?", id)
	return scanArticle(row)
}

// UpdateStatus advances the article's status. 状态只能沿生命周期
// 单向前进, 非法迁移直接报错.
func (s *Store) UpdateStatus(id int64, next model.Status) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var cur model.Status
	if err := tx.QueryRow("SELECT status FROM articles WHERE id = ?", id).Scan(&cur); err != nil {
		return err
	}
	if !cur.CanTransition(next) {
		return fmt.Errorf("投稿 #%d 不能从%s变为%s", id, cur.Display(), next.Display())
	}

	if _, err := tx.Exec("UPDATE articles SET status = ? WHERE id = ?", next, id); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateApprovers persists the approver set.
func (s *Store) UpdateApprovers(id int64, approvers model.ApproverSet) error {
	_, err := s.db.Exec("UPDATE articles SET approvers = ? WHERE id = ?", approvers.Encode(), id)
	return err
}

// UpdateReviewer records the moderator that decided the article.
func (s *Store) UpdateReviewer(id, moderatorID int64) error {
	_, err := s.db.Exec("UPDATE articles SET reviewer_id = ? WHERE id = ?", moderatorID, id)
	return err
}

// UpdateExternalRef sets the external reference for an article.
func (s *Store) UpdateExternalRef(id int64, ref string) error {
	_, err := s.db.Exec("UPDATE articles SET external_ref = ? WHERE id = ?", ref, id)
	return err
}

// DeleteArticle removes an article record entirely.
func (s *Store) DeleteArticle(id int64) error {
	_, err := s.db.Exec("DELETE FROM articles WHERE id = ?", id)
	return err
}

// ListByStatus retrieves articles with the given status in FIFO order
// (ascending id), up to limit. limit <= 0 表示不限制.
func (s *Store) ListByStatus(status model.Status, limit int) ([]*model.Article, error) {
	query := "SELECT " + articleColumns + " FROM articles WHERE status = ? ORDER BY id ASC"
	args := []interface{}{status}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []*model.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		if article != nil {
			articles = append(articles, article)
		}
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return articles, nil
}

// CountByStatus returns the number of articles in the given status.
func (s *Store) CountByStatus(status model.Status) (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM articles WHERE status = ?", status).Scan(&n)
	return n, err
}
