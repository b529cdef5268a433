package store

import (
	"database/sql"

	"github.com/avoronkov/quizbot/internal/model"
)

// AddQuestion appends a question with no options to a test.
func (s *Store) AddQuestion(testID int64, text string) (int64, error) {
	res, err := s.db.Exec(`INSERT INTO questions (test_id, text) VALUES (?, ?)`, testID, text)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateQuestionText replaces a question's text.
func (s *Store) UpdateQuestionText(questionID int64, text string) error {
	_, err := s.db.Exec(`UPDATE questions SET text = ? WHERE id = ?`, text, questionID)
	return err
}

// DeleteQuestion removes a question together with its options and any
// detailed results that reference it.
func (s *Store) DeleteQuestion(questionID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM answer_options WHERE question_id = ?`,
		`DELETE FROM detailed_results WHERE question_id = ?`,
		`DELETE FROM questions WHERE id = ?`,
	} {
		if _, err := tx.Exec(q, questionID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// QuestionsForTest returns a test's questions with their options in
// option-number order.
func (s *Store) QuestionsForTest(testID int64) ([]model.Question, error) {
	rows, err := s.db.Query(`SELECT id, test_id, text FROM questions WHERE test_id = ? ORDER BY id`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.TestID, &q.Text); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range questions {
		opts, err := s.OptionsForQuestion(questions[i].ID)
		if err != nil {
			return nil, err
		}
		questions[i].Options = opts
	}
	return questions, nil
}

// GetQuestion returns one question with its options, or nil if absent.
func (s *Store) GetQuestion(questionID int64) (*model.Question, error) {
	var q model.Question
	err := s.db.QueryRow(`SELECT id, test_id, text FROM questions WHERE id = ?`, questionID).
		Scan(&q.ID, &q.TestID, &q.Text)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	opts, err := s.OptionsForQuestion(q.ID)
	if err != nil {
		return nil, err
	}
	q.Options = opts
	return &q, nil
}

// QuestionCount returns the number of questions attached to a test.
func (s *Store) QuestionCount(testID int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions WHERE test_id = ?`, testID).Scan(&count)
	return count, err
}

// OptionsForQuestion returns a question's options ordered by option number.
func (s *Store) OptionsForQuestion(questionID int64) ([]model.AnswerOption, error) {
	rows, err := s.db.Query(
		`SELECT id, question_id, text, option_number, is_correct
		 FROM answer_options WHERE question_id = ? ORDER BY option_number`, questionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var opts []model.AnswerOption
	for rows.Next() {
		var o model.AnswerOption
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Text, &o.OptionNumber, &o.IsCorrect); err != nil {
			return nil, err
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

// AddOption appends an option to a question with the next dense number.
// A correct option demotes any previously correct one.
func (s *Store) AddOption(questionID int64, text string, correct bool) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRow(
		`SELECT COALESCE(MAX(option_number), 0) + 1 FROM answer_options WHERE question_id = ?`, questionID,
	).Scan(&next); err != nil {
		return 0, err
	}
	if correct {
		if _, err := tx.Exec(`UPDATE answer_options SET is_correct = 0 WHERE question_id = ?`, questionID); err != nil {
			return 0, err
		}
	}
	res, err := tx.Exec(
		`INSERT INTO answer_options (question_id, text, option_number, is_correct) VALUES (?, ?, ?, ?)`,
		questionID, text, next, correct,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// DeleteOption removes an option by its 1-based number and renumbers the
// remaining options back to a dense 1..K sequence.
func (s *Store) DeleteOption(questionID int64, optionNumber int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`DELETE FROM answer_options WHERE question_id = ? AND option_number = ?`, questionID, optionNumber,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return sql.ErrNoRows
	}
	_, err = tx.Exec(
		`UPDATE answer_options SET option_number = option_number - 1
		 WHERE question_id = ? AND option_number > ?`, questionID, optionNumber,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// SetCorrectOption marks exactly the given option number correct.
func (s *Store) SetCorrectOption(questionID int64, optionNumber int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(
		`SELECT COUNT(*) FROM answer_options WHERE question_id = ? AND option_number = ?`,
		questionID, optionNumber,
	).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return sql.ErrNoRows
	}
	_, err = tx.Exec(
		`UPDATE answer_options SET is_correct = (option_number = ?) WHERE question_id = ?`,
		optionNumber, questionID,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}
