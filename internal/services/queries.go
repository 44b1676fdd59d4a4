package services

// Cypher statements. Traversal happens in the database; thresholds, scoring
// and ranking are applied in Go over the returned rows.

const movieProjection = `m.id AS id, m.title AS title, m.year AS year, m.plot AS plot,
	m.poster_url AS poster_url, coalesce(m.avg_rating, 0.0) AS avg_rating,
	coalesce(m.rating_count, 0) AS rating_count`

// browseMoviesMatch accepts an empty $genre as "all genres".
const browseMoviesMatch = `
		MATCH (m:Movie)
		WHERE $genre = '' OR EXISTS { MATCH (m)-[:HAS_GENRE]->(:Genre {name: $genre}) }
		RETURN ` + movieProjection

const (
	userRatingProfileQuery = `
		MATCH (u:User {id: $userId})-[r:RATED]->(m:Movie)
		OPTIONAL MATCH (m)-[:HAS_GENRE]->(g:Genre)
		RETURN m.id AS movie_id, r.rating AS rating, collect(DISTINCT g.name) AS genres`

	coRatersQuery = `
		MATCH (u:User {id: $userId})-[:RATED]->(m:Movie)<-[r:RATED]-(peer:User)
		WHERE peer.id <> $userId
		RETURN peer.id AS peer_id, peer.username AS username, m.id AS movie_id, r.rating AS rating`

	peerFavoritesQuery = `
		MATCH (peer:User)-[r:RATED]->(m:Movie)
		WHERE peer.id IN $peerIds AND r.rating >= $minRating
			AND NOT EXISTS { MATCH (:User {id: $userId})-[:RATED]->(m) }
		RETURN peer.id AS peer_id, r.rating AS rating, ` + movieProjection

	genreCandidatesQuery = `
		MATCH (m:Movie)-[:HAS_GENRE]->(g:Genre)
		WHERE g.name IN $genres AND m.avg_rating >= $minAvgRating
			AND NOT EXISTS { MATCH (:User {id: $userId})-[:RATED]->(m) }
		RETURN ` + movieProjection + `, collect(DISTINCT g.name) AS matched_genres`

	popularMoviesQuery = `
		MATCH (m:Movie)
		WHERE m.avg_rating >= $minRating
		RETURN ` + movieProjection + `
		ORDER BY m.avg_rating DESC, m.rating_count DESC, m.title
		LIMIT $limit`

	popularMoviesByGenreQuery = `
		MATCH (m:Movie)-[:HAS_GENRE]->(:Genre {name: $genre})
		WHERE m.avg_rating >= $minRating
		RETURN ` + movieProjection + `
		ORDER BY m.avg_rating DESC, m.rating_count DESC, m.title
		LIMIT $limit`

	similarMoviesQuery = `
		MATCH (target:Movie {id: $movieId})-[:HAS_GENRE]->(g:Genre)<-[:HAS_GENRE]-(m:Movie)
		WHERE m.id <> $movieId AND m.avg_rating >= $minAvgRating
		RETURN ` + movieProjection + `, collect(DISTINCT g.name) AS shared_genres`

	movieWithGenresQuery = `
		MATCH (m:Movie {id: $movieId})
		OPTIONAL MATCH (m)-[:HAS_GENRE]->(g:Genre)
		RETURN ` + movieProjection + `, collect(DISTINCT g.name) AS genres`

	movieRatersQuery = `
		MATCH (peer:User)-[r:RATED]->(:Movie {id: $movieId})
		WHERE r.rating >= $minRating
		RETURN peer.id AS user_id, peer.username AS username, r.rating AS rating`
)

const (
	upsertRatingQuery = `
		MATCH (u:User {id: $userId}), (m:Movie {id: $movieId})
		OPTIONAL MATCH (u)-[existing:RATED]->(m)
		WITH u, m, existing IS NOT NULL AS existed
		MERGE (u)-[r:RATED]->(m)
		SET r.rating = $rating, r.review = $review, r.timestamp = datetime()
		RETURN existed, m.title AS movie_title, r.rating AS rating, r.review AS review, r.timestamp AS timestamp`

	deleteRatingQuery = `
		MATCH (:User {id: $userId})-[r:RATED]->(:Movie {id: $movieId})
		DELETE r
		RETURN count(*) AS deleted`

	recomputeMovieStatsQuery = `
		MATCH (m:Movie {id: $movieId})
		OPTIONAL MATCH (:User)-[r:RATED]->(m)
		WITH m, avg(r.rating) AS avg_rating, count(r) AS rating_count
		SET m.avg_rating = coalesce(avg_rating, 0.0), m.rating_count = rating_count
		RETURN m.id AS movie_id, m.avg_rating AS avg_rating, m.rating_count AS rating_count`

	recomputeAllMovieStatsQuery = `
		MATCH (m:Movie)
		OPTIONAL MATCH (:User)-[r:RATED]->(m)
		WITH m, avg(r.rating) AS avg_rating, count(r) AS rating_count
		SET m.avg_rating = coalesce(avg_rating, 0.0), m.rating_count = rating_count
		RETURN count(m) AS movies`

	userRatingsPageQuery = `
		MATCH (:User {id: $userId})-[r:RATED]->(m:Movie)
		RETURN m.id AS movie_id, m.title AS movie_title, r.rating AS rating,
			r.review AS review, r.timestamp AS timestamp
		ORDER BY r.timestamp DESC, m.id
		SKIP $skip LIMIT $limit`

	userRatingCountQuery = `
		MATCH (:User {id: $userId})-[r:RATED]->(:Movie)
		RETURN count(r) AS total`

	movieRatingsPageQuery = `
		MATCH (u:User)-[r:RATED]->(:Movie {id: $movieId})
		RETURN u.id AS user_id, u.username AS username, r.rating AS rating,
			r.review AS review, r.timestamp AS timestamp
		ORDER BY r.timestamp DESC, u.id
		SKIP $skip LIMIT $limit`

	userMovieRatingQuery = `
		MATCH (:User {id: $userId})-[r:RATED]->(m:Movie {id: $movieId})
		RETURN m.title AS movie_title, r.rating AS rating, r.review AS review, r.timestamp AS timestamp`
)

const (
	movieDetailsQuery = `
		MATCH (m:Movie {id: $movieId})
		OPTIONAL MATCH (m)-[:HAS_GENRE]->(g:Genre)
		OPTIONAL MATCH (m)-[:DIRECTED_BY]->(d:Director)
		OPTIONAL MATCH (m)-[:STARS]->(a:Actor)
		RETURN ` + movieProjection + `, m.certificate AS certificate,
			m.runtime_minutes AS runtime_minutes, m.imdb_rating AS imdb_rating,
			collect(DISTINCT g.name) AS genres, collect(DISTINCT d.name) AS directors,
			collect(DISTINCT a.name) AS actors`

	genresQuery = `
		MATCH (g:Genre)
		OPTIONAL MATCH (m:Movie)-[:HAS_GENRE]->(g)
		RETURN g.name AS name, count(m) AS movie_count
		ORDER BY name`

	moviesByGenreQuery = `
		MATCH (m:Movie)-[:HAS_GENRE]->(:Genre {name: $genre})
		WHERE m.avg_rating >= $minRating AND m.rating_count >= $minRatingCount
		RETURN ` + movieProjection + `
		ORDER BY m.avg_rating DESC, m.rating_count DESC, m.title
		LIMIT $limit`

	newReleasesQuery = `
		MATCH (m:Movie)
		WHERE m.year >= $minYear AND m.avg_rating >= $minRating
		RETURN ` + movieProjection + `
		ORDER BY m.year DESC, m.avg_rating DESC, m.title
		LIMIT $limit`

	browseMoviesByRatingQuery = browseMoviesMatch + `
		ORDER BY m.avg_rating DESC, m.rating_count DESC, m.title
		SKIP $skip LIMIT $limit`

	browseMoviesByYearQuery = browseMoviesMatch + `
		ORDER BY m.year DESC, m.avg_rating DESC, m.title
		SKIP $skip LIMIT $limit`

	browseMoviesByTitleQuery = browseMoviesMatch + `
		ORDER BY m.title, m.id
		SKIP $skip LIMIT $limit`

	searchMoviesQuery = `
		MATCH (m:Movie)
		WHERE toLower(m.title) CONTAINS toLower($query)
		RETURN ` + movieProjection + `
		ORDER BY m.avg_rating DESC, m.title
		LIMIT $limit`
)
