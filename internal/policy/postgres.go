package policy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSource reads a corpus from the "PolicyCorpus" and "PolicySection"
// tables written by scripts/seed_policy_corpus.go.
type PostgresSource struct {
	Pool *pgxpool.Pool
	Year int
}

func (s PostgresSource) Load(ctx context.Context) (Corpus, error) {
	if s.Pool == nil {
		return Corpus{}, fmt.Errorf("database pool is nil")
	}

	var corpus Corpus
	err := s.Pool.QueryRow(
		ctx,
		`SELECT year, title, "lastUpdated", "totalBudget"
		 FROM "PolicyCorpus"
		 WHERE year = $1`,
		s.Year,
	).Scan(&corpus.Year, &corpus.Title, &corpus.LastUpdated, &corpus.TotalBudget)
	if errors.Is(err, pgx.ErrNoRows) {
		return Corpus{}, fmt.Errorf("policy corpus for year %d not found", s.Year)
	}
	if err != nil {
		return Corpus{}, fmt.Errorf("load policy corpus: %w", err)
	}

	rows, err := s.Pool.Query(
		ctx,
		`SELECT id, category, title, content, summary, "targetDemographics", "impactLevel",
		        "implementationTimeline", "keyBenefits", "eligibilityCriteria", "budgetAllocation"
		 FROM "PolicySection"
		 WHERE "corpusYear" = $1
		 ORDER BY position ASC, id ASC`,
		s.Year,
	)
	if err != nil {
		return Corpus{}, fmt.Errorf("load policy sections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			section Section
			impact  string
		)
		if err := rows.Scan(
			&section.ID,
			&section.Category,
			&section.Title,
			&section.Content,
			&section.Summary,
			&section.TargetDemographics,
			&impact,
			&section.ImplementationTimeline,
			&section.KeyBenefits,
			&section.EligibilityCriteria,
			&section.BudgetAllocation,
		); err != nil {
			return Corpus{}, fmt.Errorf("scan policy section: %w", err)
		}
		section.ImpactLevel = ImpactLevel(strings.ToLower(strings.TrimSpace(impact)))
		corpus.Sections = append(corpus.Sections, section)
	}
	if err := rows.Err(); err != nil {
		return Corpus{}, fmt.Errorf("iterate policy sections: %w", err)
	}
	if err := corpus.Validate(); err != nil {
		return Corpus{}, fmt.Errorf("invalid policy corpus: %w", err)
	}
	return corpus, nil
}

// ValidateSchema checks the columns PostgresSource reads, so a missing
// migration fails at startup instead of on the first request.
func ValidateSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("database pool is nil")
	}

	requiredColumns := []struct {
		table  string
		column string
	}{
		{table: "PolicyCorpus", column: "year"},
		{table: "PolicyCorpus", column: "totalBudget"},
		{table: "PolicySection", column: "corpusYear"},
		{table: "PolicySection", column: "position"},
		{table: "PolicySection", column: "targetDemographics"},
		{table: "PolicySection", column: "eligibilityCriteria"},
		{table: "PolicySection", column: "budgetAllocation"},
	}

	for _, item := range requiredColumns {
		ok, err := columnExists(ctx, pool, item.table, item.column)
		if err != nil {
			return fmt.Errorf(
				"failed checking schema for %s.%s: %w",
				item.table,
				item.column,
				err,
			)
		}
		if !ok {
			return fmt.Errorf(
				"required column %s.%s is missing; run scripts/seed_policy_corpus.go -mode migrate",
				item.table,
				item.column,
			)
		}
	}

	return nil
}

func columnExists(ctx context.Context, pool *pgxpool.Pool, tableName, columnName string) (bool, error) {
	table := strings.TrimSpace(tableName)
	column := strings.TrimSpace(columnName)
	if table == "" || column == "" {
		return false, fmt.Errorf("table/column must not be empty")
	}
	var exists bool
	err := pool.QueryRow(
		ctx,
		`SELECT EXISTS (
		   SELECT 1
		   FROM information_schema.columns
		   WHERE table_schema = current_schema()
		     AND lower(table_name) = lower($1)
		     AND lower(column_name) = lower($2)
		 )`,
		table,
		column,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
