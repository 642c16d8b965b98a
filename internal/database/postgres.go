package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/rt0111/onayformukontrol/internal/authority"
	"github.com/rt0111/onayformukontrol/internal/models"
	"github.com/rt0111/onayformukontrol/internal/processor"
	"github.com/rt0111/onayformukontrol/internal/rules"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrNoRuleset is returned by LoadRuleset when nothing has been seeded
var ErrNoRuleset = errors.New("no ruleset stored")

// Term kinds stored in rule_terms
const (
	termHeading     = "heading"
	termStopHeading = "stop_heading"
	termNegation    = "negation"
)

// DB represents the database connection
type DB struct {
	Pool *pgxpool.Pool
}

// NewDB creates a new database connection
func NewDB(ctx context.Context, connStr string, maxConns int32) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Initialize sets up the rule tables
func (db *DB) Initialize(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS rule_categories (
			category TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			recommendations TEXT[] NOT NULL DEFAULT '{}'
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create rule_categories table: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS risk_phrases (
			id SERIAL PRIMARY KEY,
			category TEXT NOT NULL REFERENCES rule_categories (category) ON DELETE CASCADE,
			level TEXT NOT NULL,
			phrase TEXT NOT NULL,
			position INTEGER NOT NULL,
			UNIQUE (category, phrase)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create risk_phrases table: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS approval_thresholds (
			position INTEGER PRIMARY KEY,
			lower_bound NUMERIC NOT NULL,
			upper_bound NUMERIC,
			authority TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create approval_thresholds table: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS rule_terms (
			kind TEXT NOT NULL,
			term TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (kind, position)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create rule_terms table: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS approval_policy (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			policy JSONB NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create approval_policy table: %w", err)
	}

	// Create indices for better query performance
	_, err = db.Pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS risk_phrases_category_idx ON risk_phrases (category, position)
	`)
	if err != nil {
		return fmt.Errorf("failed to create additional indices: %w", err)
	}

	return nil
}

// SeedRuleset replaces the stored ruleset with rs in one transaction
func (db *DB) SeedRuleset(ctx context.Context, rs *rules.Ruleset) error {
	if err := rs.Validate(); err != nil {
		return fmt.Errorf("refusing to store invalid ruleset: %w", err)
	}

	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		for _, table := range []string{"risk_phrases", "rule_categories", "approval_thresholds", "rule_terms", "approval_policy"} {
			if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		for i, cat := range rs.Categories {
			recs := cat.Recommendations
			if recs == nil {
				recs = []string{}
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO rule_categories (category, position, reason, recommendations)
				VALUES ($1, $2, $3, $4)
			`, string(cat.Category), i, cat.Reason, recs)
			if err != nil {
				return fmt.Errorf("failed to store category %s: %w", cat.Category, err)
			}

			pos := 0
			for _, level := range models.Levels {
				for _, phrase := range cat.Phrases.ByLevel(level) {
					_, err := tx.Exec(ctx, `
						INSERT INTO risk_phrases (category, level, phrase, position)
						VALUES ($1, $2, $3, $4)
					`, string(cat.Category), string(level), phrase, pos)
					if err != nil {
						return fmt.Errorf("failed to store phrase %q: %w", phrase, err)
					}
					pos++
				}
			}
		}

		for i, rule := range rs.Thresholds {
			var upper *string
			if rule.Upper != nil {
				s := rule.Upper.String()
				upper = &s
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO approval_thresholds (position, lower_bound, upper_bound, authority)
				VALUES ($1, $2::numeric, $3::numeric, $4)
			`, i, rule.Lower.String(), upper, rule.Authority)
			if err != nil {
				return fmt.Errorf("failed to store threshold %d: %w", i+1, err)
			}
		}

		terms := map[string][]string{
			termHeading:     rs.Section.Headings,
			termStopHeading: rs.Section.StopHeadings,
			termNegation:    rs.NegationCues,
		}
		for kind, list := range terms {
			for i, term := range list {
				_, err := tx.Exec(ctx, `
					INSERT INTO rule_terms (kind, term, position) VALUES ($1, $2, $3)
				`, kind, term, i)
				if err != nil {
					return fmt.Errorf("failed to store %s term %q: %w", kind, term, err)
				}
			}
		}

		if _, err := tx.Exec(ctx, `INSERT INTO approval_policy (id, policy) VALUES (1, $1)`, rs.Approval); err != nil {
			return fmt.Errorf("failed to store approval policy: %w", err)
		}

		return nil
	})
}

// LoadRuleset reads and validates the stored ruleset
func (db *DB) LoadRuleset(ctx context.Context) (*rules.Ruleset, error) {
	rs := &rules.Ruleset{}

	categories, err := db.loadCategories(ctx)
	if err != nil {
		return nil, err
	}
	rs.Categories = categories

	thresholds, err := db.loadThresholds(ctx)
	if err != nil {
		return nil, err
	}
	if len(thresholds) == 0 {
		return nil, ErrNoRuleset
	}
	rs.Thresholds = thresholds

	terms, err := db.loadTerms(ctx)
	if err != nil {
		return nil, err
	}
	rs.Section = processor.SectionConfig{
		Headings:     terms[termHeading],
		StopHeadings: terms[termStopHeading],
	}
	rs.NegationCues = terms[termNegation]

	var policy authority.Policy
	err = db.Pool.QueryRow(ctx, `SELECT policy FROM approval_policy WHERE id = 1`).Scan(&policy)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to query approval policy: %w", err)
	}
	rs.Approval = policy

	if err := rs.Validate(); err != nil {
		return nil, fmt.Errorf("stored ruleset: %w", err)
	}

	return rs, nil
}

func (db *DB) loadCategories(ctx context.Context) ([]rules.CategoryRules, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT category, reason, recommendations FROM rule_categories ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rule categories: %w", err)
	}
	defer rows.Close()

	var categories []rules.CategoryRules
	index := make(map[models.Category]int)
	for rows.Next() {
		var name, reason string
		var recs []string
		if err := rows.Scan(&name, &reason, &recs); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		cat, err := models.ParseCategory(name)
		if err != nil {
			return nil, err
		}
		index[cat] = len(categories)
		categories = append(categories, rules.CategoryRules{Category: cat, Reason: reason, Recommendations: recs})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	phrases, err := db.Pool.Query(ctx, `
		SELECT category, level, phrase FROM risk_phrases ORDER BY category, position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query risk phrases: %w", err)
	}
	defer phrases.Close()

	for phrases.Next() {
		var category, level, phrase string
		if err := phrases.Scan(&category, &level, &phrase); err != nil {
			return nil, fmt.Errorf("failed to scan phrase: %w", err)
		}
		i, ok := index[models.Category(category)]
		if !ok {
			return nil, fmt.Errorf("phrase %q references unknown category %q", phrase, category)
		}
		categories[i].Phrases.Add(models.Level(level), phrase)
	}
	if err := phrases.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return categories, nil
}

func (db *DB) loadThresholds(ctx context.Context) ([]models.ApprovalThresholdRule, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT lower_bound::text, upper_bound::text, authority
		FROM approval_thresholds
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query approval thresholds: %w", err)
	}
	defer rows.Close()

	var thresholds []models.ApprovalThresholdRule
	for rows.Next() {
		var lower string
		var upper *string
		var rule models.ApprovalThresholdRule
		if err := rows.Scan(&lower, &upper, &rule.Authority); err != nil {
			return nil, fmt.Errorf("failed to scan threshold: %w", err)
		}

		rule.Lower, err = decimal.NewFromString(lower)
		if err != nil {
			return nil, fmt.Errorf("invalid lower bound %q: %w", lower, err)
		}
		if upper != nil {
			u, err := decimal.NewFromString(*upper)
			if err != nil {
				return nil, fmt.Errorf("invalid upper bound %q: %w", *upper, err)
			}
			rule.Upper = &u
		}

		thresholds = append(thresholds, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return thresholds, nil
}

func (db *DB) loadTerms(ctx context.Context) (map[string][]string, error) {
	rows, err := db.Pool.Query(ctx, `SELECT kind, term FROM rule_terms ORDER BY kind, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rule terms: %w", err)
	}
	defer rows.Close()

	terms := make(map[string][]string)
	for rows.Next() {
		var kind, term string
		if err := rows.Scan(&kind, &term); err != nil {
			return nil, fmt.Errorf("failed to scan term: %w", err)
		}
		terms[kind] = append(terms[kind], term)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return terms, nil
}

// Ping checks the connection; it serves the health endpoint
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Close closes the database connection
func (db *DB) Close() {
	db.Pool.Close()
}
