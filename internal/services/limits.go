package services

// limitRange is the accepted window for a result limit. Anything outside it
// falls back to the default rather than being pinned to the nearest bound.
type limitRange struct {
	min, max, def int
}

func (r limitRange) effective(n int) int {
	if n < r.min || n > r.max {
		return r.def
	}
	return n
}

var (
	collaborativeLimits = limitRange{min: 1, max: 50, def: 10}
	contentLimits       = limitRange{min: 1, max: 50, def: 10}
	hybridLimits        = limitRange{min: 1, max: 50, def: 15}
	popularLimits       = limitRange{min: 1, max: 100, def: 20}
	similarLimits       = limitRange{min: 1, max: 50, def: 10}

	userRatingsLimits  = limitRange{min: 1, max: 100, def: 20}
	movieRatingsLimits = limitRange{min: 1, max: 50, def: 10}
	catalogLimits      = limitRange{min: 1, max: 100, def: 20}
	yearsBackRange     = limitRange{min: 1, max: 20, def: 5}
)

func effectivePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}
