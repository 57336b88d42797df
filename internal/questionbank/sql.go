package questionbank

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// LoadSQL reads every question of bankID from the questions table, ordered by id,
// and builds a validated Corpus.
func LoadSQL(ctx context.Context, db *sql.DB, bankID string) (*Corpus, error) {
	rows, err := db.QueryContext(ctx, `
SELECT id, category, difficulty, question, options_json, correct_answer, explanation, section, topic
FROM questions WHERE bank_id = $1 ORDER BY id`, bankID)
	if err != nil {
		return nil, fmt.Errorf("query bank %s: %w", bankID, err)
	}
	defer rows.Close()

	var qs []Question
	for rows.Next() {
		var q Question
		var diff, opts string
		if err := rows.Scan(&q.ID, &q.Category, &diff, &q.Question, &opts,
			&q.CorrectAnswer, &q.Explanation, &q.Section, &q.Topic); err != nil {
			return nil, err
		}
		q.Difficulty = Difficulty(diff)
		if err := json.Unmarshal([]byte(opts), &q.Options); err != nil {
			return nil, fmt.Errorf("question %d options: %w", q.ID, err)
		}
		qs = append(qs, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := Validate(qs); err != nil {
		return nil, fmt.Errorf("bank %s: %w", bankID, err)
	}
	return NewCorpus(qs), nil
}

// SaveSQL upserts questions into bankID. Used to seed a database from a JSON bank.
func SaveSQL(ctx context.Context, db *sql.DB, bankID string, questions []Question) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range questions {
		opts, err := json.Marshal(q.Options)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO questions (bank_id, id, category, difficulty, question, options_json, correct_answer, explanation, section, topic)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (bank_id, id) DO UPDATE SET
  category = excluded.category,
  difficulty = excluded.difficulty,
  question = excluded.question,
  options_json = excluded.options_json,
  correct_answer = excluded.correct_answer,
  explanation = excluded.explanation,
  section = excluded.section,
  topic = excluded.topic`,
			bankID, q.ID, q.Category, string(q.Difficulty), q.Question, string(opts),
			q.CorrectAnswer, q.Explanation, q.Section, q.Topic); err != nil {
			return fmt.Errorf("save question %d: %w", q.ID, err)
		}
	}
	return tx.Commit()
}
