package graph

import (
	"context"
	"fmt"
)

// SchemaStatements are idempotent; EnsureSchema can run on every start.
var SchemaStatements = []string{
	"CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE",
	"CREATE CONSTRAINT user_email_unique IF NOT EXISTS FOR (u:User) REQUIRE u.email IS UNIQUE",
	"CREATE CONSTRAINT movie_id_unique IF NOT EXISTS FOR (m:Movie) REQUIRE m.id IS UNIQUE",
	"CREATE CONSTRAINT genre_name_unique IF NOT EXISTS FOR (g:Genre) REQUIRE g.name IS UNIQUE",
	"CREATE CONSTRAINT director_name_unique IF NOT EXISTS FOR (d:Director) REQUIRE d.name IS UNIQUE",
	"CREATE CONSTRAINT actor_name_unique IF NOT EXISTS FOR (a:Actor) REQUIRE a.name IS UNIQUE",
	"CREATE INDEX movie_title IF NOT EXISTS FOR (m:Movie) ON (m.title)",
	"CREATE INDEX movie_avg_rating IF NOT EXISTS FOR (m:Movie) ON (m.avg_rating)",
	"CREATE INDEX movie_year IF NOT EXISTS FOR (m:Movie) ON (m.year)",
}

func EnsureSchema(ctx context.Context, store Store) error {
	for _, stmt := range SchemaStatements {
		if _, err := store.WriteQuery(ctx, stmt, nil); err != nil {
			return fmt.Errorf("failed to apply schema statement %q: %w", stmt, err)
		}
	}
	return nil
}
