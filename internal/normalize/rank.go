package normalize

import (
	"sort"

	"github.com/helixir/scholar-search-service/internal/domain"
)

// priorityWeight multiplies provider priority in the relevance score, so a
// higher-priority provider wins unless the other paper leads by at least
// 1000 citations per priority step.
const priorityWeight = 1000

var providerPriority = map[domain.ProviderName]int{
	domain.ProviderOpenAlex:        10,
	domain.ProviderSemanticScholar: 9,
	domain.ProviderCrossref:        8,
	domain.ProviderArXiv:           7,
}

// ProviderPriority returns the ranking priority of a provider. Unknown
// providers rank at zero.
func ProviderPriority(p domain.ProviderName) int {
	return providerPriority[p]
}

// RelevanceScore is priority*1000 + citedByCount.
func RelevanceScore(p domain.PaperResult) int {
	return ProviderPriority(p.Provider)*priorityWeight + p.CitedByCount
}

// RankPapers sorts papers in place and returns them.
//
// SortRecent orders by year descending with a missing year treated as 0.
// Any other mode orders by RelevanceScore descending. The sort is stable, so
// ties keep their merge order.
func RankPapers(papers []domain.PaperResult, mode domain.SortMode) []domain.PaperResult {
	if mode == domain.SortRecent {
		sort.SliceStable(papers, func(i, j int) bool {
			return papers[i].Year > papers[j].Year
		})
		return papers
	}

	sort.SliceStable(papers, func(i, j int) bool {
		return RelevanceScore(papers[i]) > RelevanceScore(papers[j])
	})
	return papers
}
