package db

import "fmt"

// migrate 如果数据库中不存在必要的表, 则创建它们
func (s *Store) migrate() error {
	// 用于创建 'articles' 表的 SQL 语句
	createArticlesTableSQL := `
	CREATE TABLE IF NOT EXISTS articles (
		id INTEGER PRIMARY KEY,
		sender_id INTEGER NOT NULL,
		sender_name TEXT,
		anonymous INTEGER NOT NULL DEFAULT 0,
		single INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'created',
		external_ref TEXT,
		approvers TEXT NOT NULL DEFAULT '',
		reviewer_id INTEGER NOT NULL DEFAULT 0
	);`

	if _, err := s.db.Exec(createArticlesTableSQL); err != nil {
		return fmt.Errorf("创建 articles 表失败: %w", err)
	}

	// 用于创建 'submission_counts' 表的 SQL 语句
	createCountsTableSQL := `
	CREATE TABLE IF NOT EXISTS submission_counts (
		user_id INTEGER NOT NULL,
		date TEXT NOT NULL,
		normal_count INTEGER NOT NULL DEFAULT 0,
		anonymous_count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, date)
	);`

	if _, err := s.db.Exec(createCountsTableSQL); err != nil {
		return fmt.Errorf("创建 submission_counts 表失败: %w", err)
	}

	// 用于顺序 ID 生成的 'id_counter' 表的 SQL 语句
	createIDCounterTableSQL := `
	CREATE TABLE IF NOT EXISTS id_counter (
		counter_name TEXT PRIMARY KEY,
		current_value INTEGER NOT NULL DEFAULT 0
	);`

	if _, err := s.db.Exec(createIDCounterTableSQL); err != nil {
		return fmt.Errorf("创建 id_counter 表失败: %w", err)
	}

	if _, err := s.db.Exec(
		"INSERT OR IGNORE INTO id_counter(counter_name, current_value) VALUES('article_id', 0)",
	); err != nil {
		return fmt.Errorf("初始化 id_counter 失败: %w", err)
	}

	return nil
}
