package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dongjiahong/qa-system/internal/domain"
)

// recentSourceWindow sizes the rolling set of recently selected source IDs
// the diverse strategy excludes. Process-local, never persisted.
const recentSourceWindow = 32

// ContentSelector chooses a content fragment from a knowledge base
// according to a selection strategy.
type ContentSelector interface {
	Select(ctx context.Context, kbName string, strategy domain.SelectionStrategy, difficulty domain.Difficulty) (*domain.ContentFragment, error)
}

type contentSelector struct {
	fragments domain.FragmentRepository
	metadata  domain.MetadataIndex // nil when no enrichment index is wired
	recent    *lru.Cache[string, time.Time]
	logger    *slog.Logger
}

// NewContentSelector wires a selector over the fragment repository.
// metadata may be nil; the comprehensive strategy then degrades to diverse.
func NewContentSelector(fragments domain.FragmentRepository, metadata domain.MetadataIndex, logger *slog.Logger) (ContentSelector, error) {
	recent, err := lru.New[string, time.Time](recentSourceWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to create recent-source cache: %w", err)
	}
	return &contentSelector{
		fragments: fragments,
		metadata:  metadata,
		recent:    recent,
		logger:    logger,
	}, nil
}

func (s *contentSelector) Select(ctx context.Context, kbName string, strategy domain.SelectionStrategy, difficulty domain.Difficulty) (*domain.ContentFragment, error) {
	exists, err := s.fragments.KnowledgeBaseExists(ctx, kbName)
	if err != nil {
		return nil, fmt.Errorf("failed to check knowledge base: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrKnowledgeBaseNotFound, kbName)
	}

	candidates, err := s.fragments.ListFragments(ctx, kbName)
	if err != nil {
		return nil, fmt.Errorf("failed to list fragments: %w", err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyKnowledgeBase, kbName)
	}

	var selected domain.ContentFragment
	switch strategy {
	case domain.StrategyDiverse:
		selected = s.selectDiverse(candidates)
	case domain.StrategyRecent:
		selected = s.selectRecent(candidates)
	case domain.StrategyComprehensive:
		selected = s.selectComprehensive(ctx, kbName, candidates)
	case domain.StrategyRandom:
		selected = selectRandom(candidates)
	default:
		s.logger.Warn("unknown_strategy_fallback", slog.String("strategy", string(strategy)))
		selected = selectRandom(candidates)
	}

	s.recent.Add(recentSourceKey(selected), time.Now())

	s.logger.Debug("fragment_selected",
		slog.String("kb_name", kbName),
		slog.String("strategy", string(strategy)),
		slog.String("source_id", selected.SourceID),
		slog.Int("candidates", len(candidates)))

	return &selected, nil
}

func selectRandom(candidates []domain.ContentFragment) domain.ContentFragment {
	return candidates[rand.IntN(len(candidates))]
}

// recentSourceKey derives the LRU key from the fragment itself so insert and
// lookup can never disagree on the knowledge base component.
func recentSourceKey(f domain.ContentFragment) string {
	return f.KBName + "/" + f.SourceID
}

// selectDiverse excludes fragments whose source was recently selected,
// falling back to a uniform draw when every source is exhausted.
func (s *contentSelector) selectDiverse(candidates []domain.ContentFragment) domain.ContentFragment {
	fresh := make([]domain.ContentFragment, 0, len(candidates))
	for _, f := range candidates {
		if !s.recent.Contains(recentSourceKey(f)) {
			fresh = append(fresh, f)
		}
	}
	if len(fresh) == 0 {
		return selectRandom(candidates)
	}
	return selectRandom(fresh)
}

// selectRecent samples uniformly from the newest quartile by ingestion time.
func (s *contentSelector) selectRecent(candidates []domain.ContentFragment) domain.ContentFragment {
	ordered := make([]domain.ContentFragment, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
	})

	tier := len(ordered) / 4
	if tier < 1 {
		tier = 1
	}
	return selectRandom(ordered[:tier])
}

// selectComprehensive prefers fragments with many extracted key concepts
// that no prior question has referenced. Without annotations it behaves
// like diverse.
func (s *contentSelector) selectComprehensive(ctx context.Context, kbName string, candidates []domain.ContentFragment) domain.ContentFragment {
	if s.metadata == nil {
		return s.selectDiverse(candidates)
	}

	annotations, err := s.metadata.Annotations(ctx, kbName)
	if err != nil {
		s.logger.Warn("metadata_index_unavailable",
			slog.String("kb_name", kbName),
			slog.String("error", err.Error()))
		return s.selectDiverse(candidates)
	}
	if len(annotations) == 0 {
		return s.selectDiverse(candidates)
	}

	best := make([]domain.ContentFragment, 0, 1)
	bestScore := 0
	for _, f := range candidates {
		ann, ok := annotations[f.ID]
		if !ok {
			continue
		}
		score := len(ann.KeyConcepts) - 2*ann.QuestionCount
		if score <= 0 {
			continue
		}
		switch {
		case score > bestScore:
			bestScore = score
			best = append(best[:0], f)
		case score == bestScore:
			best = append(best, f)
		}
	}
	if len(best) == 0 {
		return s.selectDiverse(candidates)
	}
	return selectRandom(best)
}
