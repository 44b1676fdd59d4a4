package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/temcen/moviegraph/internal/graph"
)

// fakeGraph is an in-memory graph.Store. It recognizes the statements the
// services issue and evaluates them over maps, so the Go-side thresholds and
// ranking run against realistic rows.
type fakeGraph struct {
	mu      sync.Mutex
	users   map[string]string
	movies  map[string]*fakeMovie
	ratings map[ratingKey]*fakeRating
	errs    map[string]error
	calls   []string
	clock   time.Time
}

type fakeMovie struct {
	id          string
	title       string
	year        int
	plot        string
	avg         float64
	count       int
	genres      []string
	directors   []string
	actors      []string
	certificate string
	runtime     int
	imdb        float64
}

type ratingKey struct {
	user  string
	movie string
}

type fakeRating struct {
	rating float64
	review string
	ts     time.Time
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		users:   make(map[string]string),
		movies:  make(map[string]*fakeMovie),
		ratings: make(map[ratingKey]*fakeRating),
		errs:    make(map[string]error),
		clock:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func (g *fakeGraph) addUser(id string) {
	g.users[id] = "user-" + id
}

func (g *fakeGraph) addMovie(m fakeMovie) {
	if m.title == "" {
		m.title = "Movie " + m.id
	}
	g.movies[m.id] = &m
}

// rate adds a RATED edge without touching the movie aggregates.
func (g *fakeGraph) rate(user, movie string, rating float64) {
	if _, ok := g.users[user]; !ok {
		g.addUser(user)
	}
	g.ratings[ratingKey{user, movie}] = &fakeRating{rating: rating, ts: g.tick()}
}

func (g *fakeGraph) failOn(stmt string, err error) {
	g.errs[stmt] = err
}

func (g *fakeGraph) tick() time.Time {
	g.clock = g.clock.Add(time.Minute)
	return g.clock
}

func (g *fakeGraph) called(stmt string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c == stmt {
			n++
		}
	}
	return n
}

func (g *fakeGraph) Query(ctx context.Context, stmt string, params map[string]any) ([]graph.Record, error) {
	return g.run(ctx, stmt, params)
}

func (g *fakeGraph) WriteQuery(ctx context.Context, stmt string, params map[string]any) ([]graph.Record, error) {
	return g.run(ctx, stmt, params)
}

func (g *fakeGraph) run(ctx context.Context, stmt string, params map[string]any) ([]graph.Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, stmt)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := g.errs[stmt]; ok {
		return nil, err
	}

	p := fakeParams(params)
	switch stmt {
	case userRatingProfileQuery:
		return g.profile(p.str("userId")), nil
	case coRatersQuery:
		return g.coRaters(p.str("userId")), nil
	case peerFavoritesQuery:
		return g.peerFavorites(p.str("userId"), p.strs("peerIds"), p.float("minRating")), nil
	case genreCandidatesQuery:
		return g.genreCandidates(p.str("userId"), p.strs("genres"), p.float("minAvgRating")), nil
	case popularMoviesQuery:
		return g.listMovies(func(m *fakeMovie) bool { return m.avg >= p.float("minRating") }, byRating, 0, p.int("limit")), nil
	case popularMoviesByGenreQuery, moviesByGenreQuery:
		genre, floor, minCount := p.str("genre"), p.float("minRating"), p.int("minRatingCount")
		return g.listMovies(func(m *fakeMovie) bool {
			return contains(m.genres, genre) && m.avg >= floor && m.count >= minCount
		}, byRating, 0, p.int("limit")), nil
	case newReleasesQuery:
		return g.listMovies(func(m *fakeMovie) bool {
			return m.year >= p.int("minYear") && m.avg >= p.float("minRating")
		}, byYear, 0, p.int("limit")), nil
	case browseMoviesByRatingQuery, browseMoviesByYearQuery, browseMoviesByTitleQuery:
		genre := p.str("genre")
		order := map[string]movieOrder{
			browseMoviesByRatingQuery: byRating,
			browseMoviesByYearQuery:   byYear,
			browseMoviesByTitleQuery:  byTitle,
		}[stmt]
		return g.listMovies(func(m *fakeMovie) bool {
			return genre == "" || contains(m.genres, genre)
		}, order, p.int("skip"), p.int("limit")), nil
	case searchMoviesQuery:
		q := strings.ToLower(p.str("query"))
		return g.listMovies(func(m *fakeMovie) bool {
			return strings.Contains(strings.ToLower(m.title), q)
		}, byRating, 0, p.int("limit")), nil
	case similarMoviesQuery:
		return g.similar(p.str("movieId"), p.float("minAvgRating")), nil
	case movieWithGenresQuery:
		m, ok := g.movies[p.str("movieId")]
		if !ok {
			return nil, nil
		}
		rec := movieRecord(m)
		rec["genres"] = anyList(m.genres)
		return []graph.Record{rec}, nil
	case movieDetailsQuery:
		return g.details(p.str("movieId")), nil
	case movieRatersQuery:
		return g.raters(p.str("movieId"), p.float("minRating")), nil
	case genresQuery:
		return g.genres(), nil
	case upsertRatingQuery:
		return g.upsert(p.str("userId"), p.str("movieId"), p.float("rating"), p.str("review")), nil
	case deleteRatingQuery:
		key := ratingKey{p.str("userId"), p.str("movieId")}
		deleted := int64(0)
		if _, ok := g.ratings[key]; ok {
			delete(g.ratings, key)
			deleted = 1
		}
		return []graph.Record{{"deleted": deleted}}, nil
	case recomputeMovieStatsQuery:
		return g.recompute(p.str("movieId")), nil
	case recomputeAllMovieStatsQuery:
		for id := range g.movies {
			g.recompute(id)
		}
		return []graph.Record{{"movies": int64(len(g.movies))}}, nil
	case userRatingsPageQuery:
		return g.userRatings(p.str("userId"), p.int("skip"), p.int("limit")), nil
	case userRatingCountQuery:
		n := 0
		for key := range g.ratings {
			if key.user == p.str("userId") {
				n++
			}
		}
		return []graph.Record{{"total": int64(n)}}, nil
	case movieRatingsPageQuery:
		return g.movieRatings(p.str("movieId"), p.int("skip"), p.int("limit")), nil
	case userMovieRatingQuery:
		key := ratingKey{p.str("userId"), p.str("movieId")}
		r, ok := g.ratings[key]
		if !ok {
			return nil, nil
		}
		return []graph.Record{{
			"movie_title": g.movies[key.movie].title,
			"rating":      r.rating,
			"review":      nullable(r.review),
			"timestamp":   r.ts,
		}}, nil
	}
	return nil, fmt.Errorf("fakeGraph: unexpected statement: %s", stmt)
}

func (g *fakeGraph) profile(userID string) []graph.Record {
	var rows []graph.Record
	for _, key := range g.sortedRatingKeys() {
		if key.user != userID {
			continue
		}
		rows = append(rows, graph.Record{
			"movie_id": key.movie,
			"rating":   g.ratings[key].rating,
			"genres":   anyList(g.movies[key.movie].genres),
		})
	}
	return rows
}

func (g *fakeGraph) coRaters(userID string) []graph.Record {
	var rows []graph.Record
	keys := g.sortedRatingKeys()
	for _, mine := range keys {
		if mine.user != userID {
			continue
		}
		for _, theirs := range keys {
			if theirs.movie != mine.movie || theirs.user == userID {
				continue
			}
			rows = append(rows, graph.Record{
				"peer_id":  theirs.user,
				"username": g.users[theirs.user],
				"movie_id": theirs.movie,
				"rating":   g.ratings[theirs].rating,
			})
		}
	}
	return rows
}

func (g *fakeGraph) peerFavorites(userID string, peerIDs []string, minRating float64) []graph.Record {
	var rows []graph.Record
	for _, key := range g.sortedRatingKeys() {
		r := g.ratings[key]
		if !contains(peerIDs, key.user) || r.rating < minRating {
			continue
		}
		if _, seen := g.ratings[ratingKey{userID, key.movie}]; seen {
			continue
		}
		rec := movieRecord(g.movies[key.movie])
		rec["peer_id"] = key.user
		rec["rating"] = r.rating
		rows = append(rows, rec)
	}
	return rows
}

func (g *fakeGraph) genreCandidates(userID string, genres []string, minAvg float64) []graph.Record {
	var rows []graph.Record
	for _, m := range g.sortedMovies() {
		if m.avg < minAvg {
			continue
		}
		if _, seen := g.ratings[ratingKey{userID, m.id}]; seen {
			continue
		}
		var matched []string
		for _, genre := range m.genres {
			if contains(genres, genre) {
				matched = append(matched, genre)
			}
		}
		if len(matched) == 0 {
			continue
		}
		rec := movieRecord(m)
		rec["matched_genres"] = anyList(matched)
		rows = append(rows, rec)
	}
	return rows
}

func (g *fakeGraph) similar(movieID string, minAvg float64) []graph.Record {
	target, ok := g.movies[movieID]
	if !ok {
		return nil
	}
	var rows []graph.Record
	for _, m := range g.sortedMovies() {
		if m.id == movieID || m.avg < minAvg {
			continue
		}
		var shared []string
		for _, genre := range m.genres {
			if contains(target.genres, genre) {
				shared = append(shared, genre)
			}
		}
		if len(shared) == 0 {
			continue
		}
		rec := movieRecord(m)
		rec["shared_genres"] = anyList(shared)
		rows = append(rows, rec)
	}
	return rows
}

func (g *fakeGraph) details(movieID string) []graph.Record {
	m, ok := g.movies[movieID]
	if !ok {
		return nil
	}
	rec := movieRecord(m)
	rec["certificate"] = nullable(m.certificate)
	rec["runtime_minutes"] = nil
	if m.runtime > 0 {
		rec["runtime_minutes"] = int64(m.runtime)
	}
	rec["imdb_rating"] = nil
	if m.imdb > 0 {
		rec["imdb_rating"] = m.imdb
	}
	rec["genres"] = anyList(m.genres)
	rec["directors"] = anyList(m.directors)
	rec["actors"] = anyList(m.actors)
	return []graph.Record{rec}
}

func (g *fakeGraph) raters(movieID string, minRating float64) []graph.Record {
	var rows []graph.Record
	for _, key := range g.sortedRatingKeys() {
		r := g.ratings[key]
		if key.movie != movieID || r.rating < minRating {
			continue
		}
		rows = append(rows, graph.Record{
			"user_id":  key.user,
			"username": g.users[key.user],
			"rating":   r.rating,
		})
	}
	return rows
}

func (g *fakeGraph) genres() []graph.Record {
	counts := make(map[string]int64)
	for _, m := range g.movies {
		for _, genre := range m.genres {
			counts[genre]++
		}
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]graph.Record, 0, len(names))
	for _, name := range names {
		rows = append(rows, graph.Record{"name": name, "movie_count": counts[name]})
	}
	return rows
}

func (g *fakeGraph) upsert(userID, movieID string, rating float64, review string) []graph.Record {
	if _, ok := g.users[userID]; !ok {
		return nil
	}
	m, ok := g.movies[movieID]
	if !ok {
		return nil
	}
	key := ratingKey{userID, movieID}
	_, existed := g.ratings[key]
	r := &fakeRating{rating: rating, review: review, ts: g.tick()}
	g.ratings[key] = r
	return []graph.Record{{
		"existed":     existed,
		"movie_title": m.title,
		"rating":      r.rating,
		"review":      r.review,
		"timestamp":   r.ts,
	}}
}

func (g *fakeGraph) recompute(movieID string) []graph.Record {
	m, ok := g.movies[movieID]
	if !ok {
		return nil
	}
	var sum float64
	count := 0
	for key, r := range g.ratings {
		if key.movie == movieID {
			sum += r.rating
			count++
		}
	}
	m.count = count
	m.avg = 0
	if count > 0 {
		m.avg = sum / float64(count)
	}
	return []graph.Record{{
		"movie_id":     m.id,
		"avg_rating":   m.avg,
		"rating_count": int64(m.count),
	}}
}

func (g *fakeGraph) userRatings(userID string, skip, limit int) []graph.Record {
	var keys []ratingKey
	for key := range g.ratings {
		if key.user == userID {
			keys = append(keys, key)
		}
	}
	g.sortNewestFirst(keys, func(k ratingKey) string { return k.movie })

	var rows []graph.Record
	for _, key := range page(keys, skip, limit) {
		r := g.ratings[key]
		rows = append(rows, graph.Record{
			"movie_id":    key.movie,
			"movie_title": g.movies[key.movie].title,
			"rating":      r.rating,
			"review":      nullable(r.review),
			"timestamp":   r.ts,
		})
	}
	return rows
}

func (g *fakeGraph) movieRatings(movieID string, skip, limit int) []graph.Record {
	var keys []ratingKey
	for key := range g.ratings {
		if key.movie == movieID {
			keys = append(keys, key)
		}
	}
	g.sortNewestFirst(keys, func(k ratingKey) string { return k.user })

	var rows []graph.Record
	for _, key := range page(keys, skip, limit) {
		r := g.ratings[key]
		rows = append(rows, graph.Record{
			"user_id":   key.user,
			"username":  g.users[key.user],
			"rating":    r.rating,
			"review":    nullable(r.review),
			"timestamp": r.ts,
		})
	}
	return rows
}

type movieOrder func(a, b *fakeMovie) bool

func byRating(a, b *fakeMovie) bool {
	if a.avg != b.avg {
		return a.avg > b.avg
	}
	if a.count != b.count {
		return a.count > b.count
	}
	return a.title < b.title
}

func byYear(a, b *fakeMovie) bool {
	if a.year != b.year {
		return a.year > b.year
	}
	if a.avg != b.avg {
		return a.avg > b.avg
	}
	return a.title < b.title
}

func byTitle(a, b *fakeMovie) bool {
	if a.title != b.title {
		return a.title < b.title
	}
	return a.id < b.id
}

func (g *fakeGraph) listMovies(keep func(*fakeMovie) bool, less movieOrder, skip, limit int) []graph.Record {
	var movies []*fakeMovie
	for _, m := range g.sortedMovies() {
		if keep(m) {
			movies = append(movies, m)
		}
	}
	sort.SliceStable(movies, func(i, j int) bool { return less(movies[i], movies[j]) })

	var rows []graph.Record
	for _, m := range page(movies, skip, limit) {
		rows = append(rows, movieRecord(m))
	}
	return rows
}

func (g *fakeGraph) sortedMovies() []*fakeMovie {
	movies := make([]*fakeMovie, 0, len(g.movies))
	for _, m := range g.movies {
		movies = append(movies, m)
	}
	sort.Slice(movies, func(i, j int) bool { return movies[i].id < movies[j].id })
	return movies
}

func (g *fakeGraph) sortedRatingKeys() []ratingKey {
	keys := make([]ratingKey, 0, len(g.ratings))
	for key := range g.ratings {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].user != keys[j].user {
			return keys[i].user < keys[j].user
		}
		return keys[i].movie < keys[j].movie
	})
	return keys
}

func (g *fakeGraph) sortNewestFirst(keys []ratingKey, tieBreak func(ratingKey) string) {
	sort.Slice(keys, func(i, j int) bool {
		a, b := g.ratings[keys[i]].ts, g.ratings[keys[j]].ts
		if !a.Equal(b) {
			return a.After(b)
		}
		return tieBreak(keys[i]) < tieBreak(keys[j])
	})
}

func movieRecord(m *fakeMovie) graph.Record {
	rec := graph.Record{
		"id":           m.id,
		"title":        m.title,
		"year":         nil,
		"plot":         nullable(m.plot),
		"poster_url":   nil,
		"avg_rating":   m.avg,
		"rating_count": int64(m.count),
	}
	if m.year > 0 {
		rec["year"] = int64(m.year)
	}
	return rec
}

func page[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return nil
	}
	items = items[skip:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func anyList(items []string) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	return out
}

func contains(items []string, item string) bool {
	for _, i := range items {
		if i == item {
			return true
		}
	}
	return false
}

type fakeParams map[string]any

func (p fakeParams) str(key string) string {
	s, _ := p[key].(string)
	return s
}

func (p fakeParams) strs(key string) []string {
	s, _ := p[key].([]string)
	return s
}

func (p fakeParams) float(key string) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func (p fakeParams) int(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}
