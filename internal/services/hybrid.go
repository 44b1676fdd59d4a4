package services

import (
	"github.com/temcen/moviegraph/pkg/models"
)

type HybridWeights struct {
	Collaborative float64
	Content       float64
}

var DefaultHybridWeights = HybridWeights{Collaborative: 0.6, Content: 0.4}

func (w HybridWeights) orDefault() HybridWeights {
	if w.Collaborative < 0 || w.Content < 0 || w.Collaborative+w.Content == 0 {
		return DefaultHybridWeights
	}
	return w
}

// CombineHybrid merges collaborative and content results into one ranking.
// A movie's score is the weighted sum of the scores it received from each
// source; movies found by only one source keep that single contribution.
func CombineHybrid(collaborative, content []models.ScoredMovie, weights HybridWeights, limit int) []models.ScoredMovie {
	combined := make(map[string]*models.ScoredMovie)
	order := make([]string, 0, len(collaborative)+len(content))

	add := func(items []models.ScoredMovie, weight float64, source string) {
		for _, item := range items {
			entry, ok := combined[item.ID]
			if !ok {
				entry = &models.ScoredMovie{Movie: item.Movie, Sources: []string{}}
				combined[item.ID] = entry
				order = append(order, item.ID)
			}
			if hasSource(entry.Sources, source) {
				continue
			}
			entry.RecommendationScore += weight * item.RecommendationScore
			entry.Sources = append(entry.Sources, source)
			if item.VoteCount > 0 {
				entry.VoteCount = item.VoteCount
			}
			if item.GenreMatchCount > 0 {
				entry.GenreMatchCount = item.GenreMatchCount
			}
		}
	}
	add(collaborative, weights.Collaborative, models.SourceCollaborative)
	add(content, weights.Content, models.SourceContent)

	results := make([]models.ScoredMovie, 0, len(order))
	for _, id := range order {
		results = append(results, *combined[id])
	}
	rankScored(results)
	return truncate(results, limit)
}

func hasSource(sources []string, source string) bool {
	for _, s := range sources {
		if s == source {
			return true
		}
	}
	return false
}
