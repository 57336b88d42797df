package exam

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"psp.com/mock-exam/backend/internal/questionbank"
)

var ErrNoBank = errors.New("exam has neither bank_path nor bank_id")

// Load reads the bank of every config and builds the registry. Exams with a
// bank_id are read from conn; the rest from their bank_path JSON file.
func Load(ctx context.Context, cfgs []Config, conn *sql.DB, log *zap.Logger) (*Registry, error) {
	exams := make([]*Exam, 0, len(cfgs))
	for _, cfg := range cfgs {
		corpus, meta, err := loadBank(ctx, cfg, conn)
		if err != nil {
			return nil, fmt.Errorf("exam %s: %w", cfg.ID, err)
		}
		e := New(cfg, corpus, meta)
		log.Info("exam loaded",
			zap.String("exam_id", cfg.ID),
			zap.Int("questions", corpus.Len()),
			zap.Strings("categories", e.Config.Categories),
		)
		for _, cat := range e.Config.Categories {
			if len(corpus.ByCategory(cat)) == 0 {
				log.Warn("category has no questions",
					zap.String("exam_id", cfg.ID),
					zap.String("category", cat),
				)
			}
		}
		exams = append(exams, e)
	}
	return NewRegistry(exams...)
}

func loadBank(ctx context.Context, cfg Config, conn *sql.DB) (*questionbank.Corpus, map[string]interface{}, error) {
	switch {
	case cfg.BankID != "" && conn != nil:
		c, err := questionbank.LoadSQL(ctx, conn, cfg.BankID)
		return c, nil, err
	case cfg.BankPath != "":
		return questionbank.LoadFile(cfg.BankPath)
	case cfg.BankID != "":
		return nil, nil, fmt.Errorf("bank_id %q set but no database configured", cfg.BankID)
	default:
		return nil, nil, ErrNoBank
	}
}
