// Package keyword provides full-text search over topic titles and summaries.
package keyword

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/wadai/internal/models"
)

// SearchOptions are optional parameters for Search. Nil means defaults.
type SearchOptions struct {
	// TitleBoost multiplies the score from title matches. Values <= 1 search both fields at once.
	TitleBoost float64
	// Fuzziness enables typo tolerance with the given edit distance (1 or 2). 0 disables it.
	Fuzziness int
}

// Result is a single search hit.
type Result struct {
	ID    string
	Score float64
}

// TopicIndex indexes topic title and summary text with Bleve.
type TopicIndex struct {
	index bleve.Index
}

type topicDoc struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

func newMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	text := bleve.NewTextFieldMapping()
	// Standard analyzer: lowercase and tokenize without stemming.
	text.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("title", text)
	docMapping.AddFieldMappingsAt("summary", text)
	im.AddDocumentMapping("topic", docMapping)
	im.DefaultType = "topic"
	im.DefaultMapping = docMapping
	return im
}

// NewTopicIndex creates or opens a Bleve index at path. An existing index is
// reused; remove the directory after changing the mapping.
func NewTopicIndex(path string) (*TopicIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, err := bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", err)
		}
		return &TopicIndex{index: index}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &TopicIndex{index: index}, nil
}

// NewMemTopicIndex creates an index that lives only in memory.
func NewMemTopicIndex() (*TopicIndex, error) {
	index, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &TopicIndex{index: index}, nil
}

// Index adds or replaces a topic. Topics without title and summary are removed instead.
func (x *TopicIndex) Index(ctx context.Context, t *models.Topic) error {
	doc := topicDoc{Title: t.TitleOrEmpty(), Summary: t.SummaryOrEmpty()}
	if strings.TrimSpace(doc.Title) == "" && strings.TrimSpace(doc.Summary) == "" {
		return x.Delete(ctx, t.ID)
	}
	return x.index.Index(t.ID, doc)
}

// Rebuild indexes every topic in one batch.
func (x *TopicIndex) Rebuild(ctx context.Context, topics []*models.Topic) error {
	batch := x.index.NewBatch()
	for _, t := range topics {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc := topicDoc{Title: t.TitleOrEmpty(), Summary: t.SummaryOrEmpty()}
		if strings.TrimSpace(doc.Title) == "" && strings.TrimSpace(doc.Summary) == "" {
			batch.Delete(t.ID)
			continue
		}
		if err := batch.Index(t.ID, doc); err != nil {
			return fmt.Errorf("failed to index topic %s: %w", t.ID, err)
		}
	}
	return x.index.Batch(batch)
}

// Search returns up to limit topic IDs matching query, best first.
func (x *TopicIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error) {
	if limit <= 0 {
		limit = 10
	}
	titleBoost := 1.0
	fuzziness := 0
	if opts != nil {
		if opts.TitleBoost > 0 {
			titleBoost = opts.TitleBoost
		}
		fuzziness = opts.Fuzziness
	}

	if titleBoost <= 1.0 {
		hits, err := x.run(ctx, buildQuery(query, fuzziness, ""), limit)
		if err != nil {
			return nil, err
		}
		out := make([]*Result, 0, len(hits.scores))
		for id, score := range hits.scores {
			out = append(out, &Result{ID: id, Score: score})
		}
		sortResults(out, hits.order)
		return out, nil
	}
	return x.searchWithTitleBoost(ctx, query, limit, titleBoost, fuzziness)
}

// searchWithTitleBoost scores each topic as titleScore*boost + summaryScore.
func (x *TopicIndex) searchWithTitleBoost(ctx context.Context, query string, limit int, boost float64, fuzziness int) ([]*Result, error) {
	reqSize := max(limit*2, 50)
	titleHits, err := x.run(ctx, buildQuery(query, fuzziness, "title"), reqSize)
	if err != nil {
		return nil, err
	}
	summaryHits, err := x.run(ctx, buildQuery(query, fuzziness, "summary"), reqSize)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64, len(titleHits.scores)+len(summaryHits.scores))
	for id, s := range titleHits.scores {
		scores[id] += s * boost
	}
	for id, s := range summaryHits.scores {
		scores[id] += s
	}
	out := make([]*Result, 0, len(scores))
	for id, s := range scores {
		out = append(out, &Result{ID: id, Score: s})
	}
	sortResults(out, nil)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type hitSet struct {
	scores map[string]float64
	order  map[string]int
}

func (x *TopicIndex) run(ctx context.Context, q blevequery.Query, size int) (*hitSet, error) {
	req := bleve.NewSearchRequest(q)
	req.Size = size
	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	hs := &hitSet{scores: make(map[string]float64, len(res.Hits)), order: make(map[string]int, len(res.Hits))}
	for i, hit := range res.Hits {
		hs.scores[hit.ID] = hit.Score
		hs.order[hit.ID] = i
	}
	return hs, nil
}

// sortResults orders by score descending. Ties fall back to order when given, then ID.
func sortResults(rs []*Result, order map[string]int) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Score != rs[j].Score {
			return rs[i].Score > rs[j].Score
		}
		if order != nil {
			return order[rs[i].ID] < order[rs[j].ID]
		}
		return rs[i].ID < rs[j].ID
	})
}

// buildQuery returns a match query, or a disjunction of fuzzy term queries when
// fuzziness > 0. An empty field searches all fields.
func buildQuery(query string, fuzziness int, field string) blevequery.Query {
	terms := strings.Fields(strings.ToLower(query))
	if fuzziness <= 0 || len(terms) == 0 {
		mq := bleve.NewMatchQuery(query)
		if field != "" {
			mq.SetField(field)
		}
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		if field != "" {
			fq.SetField(field)
		}
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// Delete removes a topic from the index.
func (x *TopicIndex) Delete(ctx context.Context, id string) error {
	return x.index.Delete(id)
}

// DocCount returns the number of indexed topics.
func (x *TopicIndex) DocCount() (uint64, error) {
	return x.index.DocCount()
}

// Close closes the index.
func (x *TopicIndex) Close() error {
	return x.index.Close()
}
