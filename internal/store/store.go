package store

import (
	"database/sql"
	"fmt"

	"github.com/avoronkov/quizbot/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		chat_id INTEGER,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'draft',
		show_answers INTEGER NOT NULL DEFAULT 1,
		creator_id INTEGER NOT NULL,
		FOREIGN KEY (creator_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		test_id INTEGER NOT NULL,
		text TEXT NOT NULL,
		FOREIGN KEY (test_id) REFERENCES tests(id)
	);

	CREATE TABLE IF NOT EXISTS answer_options (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question_id INTEGER NOT NULL,
		text TEXT NOT NULL,
		option_number INTEGER NOT NULL,
		is_correct INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (question_id) REFERENCES questions(id)
	);

	CREATE TABLE IF NOT EXISTS test_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		test_id INTEGER NOT NULL,
		score INTEGER NOT NULL,
		max_score INTEGER NOT NULL,
		completed_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id),
		FOREIGN KEY (test_id) REFERENCES tests(id)
	);

	CREATE TABLE IF NOT EXISTS detailed_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		result_id INTEGER NOT NULL,
		question_id INTEGER NOT NULL,
		question_index INTEGER NOT NULL,
		user_answer INTEGER NOT NULL,
		correct_answer INTEGER NOT NULL,
		points INTEGER NOT NULL,
		FOREIGN KEY (result_id) REFERENCES test_results(id),
		FOREIGN KEY (question_id) REFERENCES questions(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateTestWithQuestions persists a test together with its questions and
// options in a single transaction. Nothing is written on error.
func (s *Store) CreateTestWithQuestions(creatorID int64, t model.Test, questions []model.Question) (int64, error) {
	if err := model.ValidateTitle(t.Title); err != nil {
		return 0, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	status := t.Status
	if status == "" {
		status = model.StatusDraft
	}
	res, err := tx.Exec(
		`INSERT INTO tests (title, description, status, show_answers, creator_id) VALUES (?, ?, ?, ?, ?)`,
		t.Title, t.Description, status, t.ShowAnswers, creatorID,
	)
	if err != nil {
		return 0, err
	}
	testID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, q := range questions {
		qres, err := tx.Exec(`INSERT INTO questions (test_id, text) VALUES (?, ?)`, testID, q.Text)
		if err != nil {
			return 0, err
		}
		questionID, err := qres.LastInsertId()
		if err != nil {
			return 0, err
		}
		for _, o := range q.Options {
			_, err := tx.Exec(
				`INSERT INTO answer_options (question_id, text, option_number, is_correct) VALUES (?, ?, ?, ?)`,
				questionID, o.Text, o.OptionNumber, o.IsCorrect,
			)
			if err != nil {
				return 0, err
			}
		}
	}

	return testID, tx.Commit()
}

// GetTest returns a test by ID, or nil if it does not exist.
func (s *Store) GetTest(id int64) (*model.Test, error) {
	var t model.Test
	err := s.db.QueryRow(
		`SELECT id, title, description, status, show_answers, creator_id FROM tests WHERE id = ?`, id,
	).Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.ShowAnswers, &t.CreatorID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// RenameTest updates a test's title.
func (s *Store) RenameTest(testID int64, title string) error {
	if err := model.ValidateTitle(title); err != nil {
		return err
	}
	_, err := s.db.Exec(`UPDATE tests SET title = ? WHERE id = ?`, title, testID)
	return err
}

// ToggleShowAnswers flips the answer-visibility flag of a test.
func (s *Store) ToggleShowAnswers(testID int64) error {
	_, err := s.db.Exec(`UPDATE tests SET show_answers = NOT show_answers WHERE id = ?`, testID)
	return err
}

// DeleteTest removes a test with its questions, options and attempts.
func (s *Store) DeleteTest(testID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM detailed_results WHERE result_id IN (SELECT id FROM test_results WHERE test_id = ?)`,
		`DELETE FROM test_results WHERE test_id = ?`,
		`DELETE FROM answer_options WHERE question_id IN (SELECT id FROM questions WHERE test_id = ?)`,
		`DELETE FROM questions WHERE test_id = ?`,
		`DELETE FROM tests WHERE id = ?`,
	} {
		if _, err := tx.Exec(q, testID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListTests returns all tests, oldest first.
func (s *Store) ListTests() ([]model.Test, error) {
	return s.listTests(`SELECT id, title, description, status, show_answers, creator_id FROM tests ORDER BY id`)
}

// ListTestsByCreator returns the tests owned by one user, oldest first.
func (s *Store) ListTestsByCreator(creatorID int64) ([]model.Test, error) {
	return s.listTests(
		`SELECT id, title, description, status, show_answers, creator_id FROM tests WHERE creator_id = ? ORDER BY id`,
		creatorID,
	)
}

// FindTestByTitleAndCreator returns a creator's test by case-insensitive
// title, or nil if absent.
func (s *Store) FindTestByTitleAndCreator(title string, creatorID int64) (*model.Test, error) {
	var t model.Test
	err := s.db.QueryRow(
		`SELECT id, title, description, status, show_answers, creator_id
		 FROM tests WHERE creator_id = ? AND title = ? COLLATE NOCASE`, creatorID, title,
	).Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.ShowAnswers, &t.CreatorID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) listTests(query string, args ...any) ([]model.Test, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tests []model.Test
	for rows.Next() {
		var t model.Test
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.ShowAnswers, &t.CreatorID); err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}
