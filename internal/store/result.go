package store

import (
	"sort"
	"time"

	"github.com/avoronkov/quizbot/internal/model"
)

// RecordAttempt persists one finished attempt: the TestResult row plus one
// DetailedResult per question, all in a single transaction. Questions are
// given in the order they were presented; answers[i] is the 1-based option
// number chosen for questions[i].
func (s *Store) RecordAttempt(userID, testID int64, questions []model.Question, answers []int) (*model.TestResult, error) {
	score := 0
	for i, q := range questions {
		if answers[i] == q.CorrectOption() {
			score++
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now()
	res, err := tx.Exec(
		`INSERT INTO test_results (user_id, test_id, score, max_score, completed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		userID, testID, score, len(questions), now,
	)
	if err != nil {
		return nil, err
	}
	resultID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	for i, q := range questions {
		correct := q.CorrectOption()
		points := 0
		if answers[i] == correct {
			points = 1
		}
		_, err := tx.Exec(
			`INSERT INTO detailed_results (result_id, question_id, question_index, user_answer, correct_answer, points)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			resultID, q.ID, i+1, answers[i], correct, points,
		)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &model.TestResult{
		ID:          resultID,
		UserID:      userID,
		TestID:      testID,
		Score:       score,
		MaxScore:    len(questions),
		CompletedAt: now,
	}, nil
}

// ListAttemptsByTest returns all attempts at a test, earliest first.
func (s *Store) ListAttemptsByTest(testID int64) ([]model.TestResult, error) {
	return s.listAttempts(
		`SELECT id, user_id, test_id, score, max_score, completed_at
		 FROM test_results WHERE test_id = ? ORDER BY completed_at, id`, testID,
	)
}

// ListAttemptsByTestAndUser returns one user's attempts at a test,
// earliest first.
func (s *Store) ListAttemptsByTestAndUser(testID, userID int64) ([]model.TestResult, error) {
	return s.listAttempts(
		`SELECT id, user_id, test_id, score, max_score, completed_at
		 FROM test_results WHERE test_id = ? AND user_id = ? ORDER BY completed_at, id`, testID, userID,
	)
}

// ListAttemptsByUser returns all of a user's attempts, earliest first.
func (s *Store) ListAttemptsByUser(userID int64) ([]model.TestResult, error) {
	return s.listAttempts(
		`SELECT id, user_id, test_id, score, max_score, completed_at
		 FROM test_results WHERE user_id = ? ORDER BY completed_at, id`, userID,
	)
}

func (s *Store) listAttempts(query string, args ...any) ([]model.TestResult, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.TestResult
	for rows.Next() {
		var r model.TestResult
		if err := rows.Scan(&r.ID, &r.UserID, &r.TestID, &r.Score, &r.MaxScore, &r.CompletedAt); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// DetailedResultsForAttempt returns an attempt's per-question rows in
// presentation order, joined with the question text for display.
func (s *Store) DetailedResultsForAttempt(resultID int64) ([]model.DetailedResult, error) {
	rows, err := s.db.Query(
		`SELECT d.id, d.result_id, d.question_id, d.question_index, q.text, d.user_answer, d.correct_answer, d.points
		 FROM detailed_results d
		 JOIN questions q ON q.id = d.question_id
		 WHERE d.result_id = ? ORDER BY d.question_index`, resultID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var details []model.DetailedResult
	for rows.Next() {
		var d model.DetailedResult
		if err := rows.Scan(&d.ID, &d.ResultID, &d.QuestionID, &d.QuestionIndex,
			&d.QuestionText, &d.UserAnswer, &d.CorrectAnswer, &d.Points); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// Leaderboard returns each user's single best attempt at a test, best
// percentage first. Equal scores keep the earliest completed attempt.
func (s *Store) Leaderboard(testID int64) ([]model.LeaderboardEntry, error) {
	test, err := s.GetTest(testID)
	if err != nil {
		return nil, err
	}
	if test == nil {
		return nil, nil
	}

	attempts, err := s.ListAttemptsByTest(testID)
	if err != nil {
		return nil, err
	}

	best := make(map[int64]model.TestResult)
	var order []int64
	for _, a := range attempts {
		prev, seen := best[a.UserID]
		if !seen {
			order = append(order, a.UserID)
		}
		// Attempts arrive earliest-first, so a strict improvement is
		// required to replace the incumbent; ties keep the first seen.
		if !seen || a.Score > prev.Score {
			best[a.UserID] = a
		}
	}

	var entries []model.LeaderboardEntry
	for _, uid := range order {
		a := best[uid]
		u, err := s.GetUserByID(uid)
		if err != nil {
			return nil, err
		}
		name := "?"
		if u != nil {
			name = u.DisplayName()
		}
		entries = append(entries, model.LeaderboardEntry{
			UserID:      uid,
			DisplayName: name,
			Score:       a.Score,
			MaxScore:    a.MaxScore,
			Percentage:  a.Percentage(),
			IsCreator:   uid == test.CreatorID,
		})
	}

	// Highest percentage first, earliest user kept ahead on ties.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Percentage > entries[j].Percentage
	})
	return entries, nil
}
