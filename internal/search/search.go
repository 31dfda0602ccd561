package search

import (
	"log/slog"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
	sahilm "github.com/sahilm/fuzzy"

	"github.com/reelbox/reelbox/internal/domain"
)

// Result is a ranked search hit.
type Result struct {
	Video domain.Video
	Score int // Lower is better
}

// Service ranks videos against a query by display name. Substring matches
// rank ahead of scattered fuzzy matches.
type Service struct {
	logger *slog.Logger
}

// NewService creates a new search service.
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// Search returns videos matching the query, best first. An empty query
// matches nothing.
func (s *Service) Search(query string, videos []domain.Video) []Result {
	if query == "" {
		return nil
	}

	names := make([]string, len(videos))
	for i, v := range videos {
		names[i] = v.Name
	}

	// Substring pass: rank by edit distance on normalized, case-folded
	// names.
	matched := make(map[string]struct{})
	var results []Result
	for _, rank := range fuzzy.RankFindNormalizedFold(query, names) {
		v := videos[rank.OriginalIndex]
		matched[v.ID] = struct{}{}
		results = append(results, Result{Video: v, Score: rank.Distance})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score < results[j].Score
	})

	// Fuzzy pass for names the substring pass missed.
	var restNames []string
	var restVideos []domain.Video
	for i, v := range videos {
		if _, ok := matched[v.ID]; !ok {
			restNames = append(restNames, names[i])
			restVideos = append(restVideos, v)
		}
	}
	for _, m := range sahilm.Find(query, restNames) {
		// sahilm scores higher-is-better; negate to keep lower-is-better
		// ordering after the substring block.
		results = append(results, Result{Video: restVideos[m.Index], Score: -m.Score})
	}

	s.logger.Debug("search", "query", query, "results", len(results))
	return results
}
