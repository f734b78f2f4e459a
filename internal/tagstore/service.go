// Package tagstore persists tag weights per collection in Postgres.
package tagstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/text/unicode/norm"

	"github.com/nuages/nuages/pkg/cloud"
)

var (
	// ErrCollectionNotFound is returned when a named collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrInvalidTags wraps every rejection of a batch's contents, as opposed
	// to a failure to store it.
	ErrInvalidTags = errors.New("invalid tags")
)

// Service provides collection and tag management backed by Postgres.
type Service struct {
	db *sql.DB
}

// Collection is a named set of weighted tags.
type Collection struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	TagCount    int       `json:"tag_count"`
	TotalWeight float64   `json:"total_weight"`
	CreatedAt   time.Time `json:"created_at"`
}

// TagWeight is one label and the weight to apply to it.
type TagWeight struct {
	Label  string  `json:"label"`
	Weight float64 `json:"weight"`
}

// NewService creates a new tagstore Service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// EnsureCollection gets or creates a collection by name.
func (s *Service) EnsureCollection(ctx context.Context, name string) (*Collection, error) {
	name = NormalizeLabel(name)
	if name == "" {
		return nil, fmt.Errorf("ensure collection: empty name")
	}

	c := &Collection{}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO collections (id, name)
		 VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id, name, created_at`,
		uuid.NewString(), name,
	).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("ensure collection %s: %w", name, err)
	}
	return c, nil
}

// ListCollections returns every collection with its tag count and total weight.
func (s *Service) ListCollections(ctx context.Context) ([]Collection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.name, c.created_at, COUNT(t.label), COALESCE(SUM(t.weight), 0)
		 FROM collections c LEFT JOIN tags t ON t.collection_id = c.id
		 GROUP BY c.id, c.name, c.created_at
		 ORDER BY c.name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var out []Collection
	for rows.Next() {
		var c Collection
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.TagCount, &c.TotalWeight); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AddWeights adds each weight to the stored weight of its label, creating
// the collection and labels as needed.
func (s *Service) AddWeights(ctx context.Context, collection string, tags []TagWeight) (int, error) {
	return s.upsert(ctx, collection, tags, true)
}

// SetWeights replaces the stored weight of each label.
func (s *Service) SetWeights(ctx context.Context, collection string, tags []TagWeight) (int, error) {
	return s.upsert(ctx, collection, tags, false)
}

func (s *Service) upsert(ctx context.Context, collection string, tags []TagWeight, add bool) (int, error) {
	merged, err := MergeTags(tags, add)
	if err != nil {
		return 0, err
	}
	if len(merged) == 0 {
		return 0, nil
	}

	c, err := s.EnsureCollection(ctx, collection)
	if err != nil {
		return 0, err
	}

	labels := make([]string, len(merged))
	weights := make([]float64, len(merged))
	for i, t := range merged {
		labels[i] = t.Label
		weights[i] = t.Weight
	}

	update := "EXCLUDED.weight"
	if add {
		update = "tags.weight + EXCLUDED.weight"
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tags (collection_id, label, weight, updated_at)
		 SELECT $1, l, w, now() FROM unnest($2::text[], $3::float8[]) AS u(l, w)
		 ON CONFLICT (collection_id, label) DO UPDATE
		   SET weight = `+update+`, updated_at = now()`,
		c.ID, pq.Array(labels), pq.Array(weights),
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "22003" { // numeric_value_out_of_range
		return 0, fmt.Errorf("upsert tags in %s: %w: weight out of range", c.Name, ErrInvalidTags)
	}
	if err != nil {
		return 0, fmt.Errorf("upsert tags in %s: %w", c.Name, err)
	}
	return len(merged), nil
}

// ListTags returns the tags of a collection ordered by label. Sizes are unset.
func (s *Service) ListTags(ctx context.Context, collection string) (cloud.Cloud, error) {
	name := NormalizeLabel(collection)

	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM collections WHERE name = $1`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("list tags %s: %w", name, ErrCollectionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("list tags %s: %w", name, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT label, weight FROM tags WHERE collection_id = $1 ORDER BY label`, id)
	if err != nil {
		return nil, fmt.Errorf("list tags %s: %w", name, err)
	}
	defer rows.Close()

	c := cloud.Cloud{}
	for rows.Next() {
		t := &cloud.Tag{}
		if err := rows.Scan(&t.Label, &t.Weight); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		c = append(c, t)
	}
	return c, rows.Err()
}

// DeleteCollection removes a collection and all of its tags.
func (s *Service) DeleteCollection(ctx context.Context, collection string) error {
	name := NormalizeLabel(collection)
	res, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete collection %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete collection %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("delete collection %s: %w", name, ErrCollectionNotFound)
	}
	return nil
}

// NormalizeLabel puts a label in NFC form, trims it and collapses inner whitespace.
func NormalizeLabel(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// MergeTags normalizes labels and folds duplicates within a batch. With add
// set, duplicate weights are summed; otherwise the last one wins. The result
// keeps first-seen order. Errors wrap ErrInvalidTags.
func MergeTags(tags []TagWeight, add bool) ([]TagWeight, error) {
	index := make(map[string]int, len(tags))
	out := make([]TagWeight, 0, len(tags))
	for i, t := range tags {
		label := NormalizeLabel(t.Label)
		if label == "" {
			return nil, fmt.Errorf("%w: tag %d: empty label", ErrInvalidTags, i)
		}
		if math.IsNaN(t.Weight) || math.IsInf(t.Weight, 0) {
			return nil, fmt.Errorf("%w: tag %q: weight must be finite", ErrInvalidTags, label)
		}
		j, seen := index[label]
		switch {
		case !seen:
			index[label] = len(out)
			out = append(out, TagWeight{Label: label, Weight: t.Weight})
		case add:
			sum, err := AddWeight(label, out[j].Weight, t.Weight)
			if err != nil {
				return nil, err
			}
			out[j].Weight = sum
		default:
			out[j].Weight = t.Weight
		}
	}
	return out, nil
}

// AddWeight adds delta to the weight of label, rejecting a sum that
// overflows to infinity.
func AddWeight(label string, weight, delta float64) (float64, error) {
	sum := weight + delta
	if math.IsInf(sum, 0) {
		return 0, fmt.Errorf("%w: tag %q: weight overflows", ErrInvalidTags, label)
	}
	return sum, nil
}

// Ping checks the database connection.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
