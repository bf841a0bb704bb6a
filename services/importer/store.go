package importer

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"linkedin-importer/lib/apperr"
	"linkedin-importer/services/importer/db"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ImportResult is the uniform outcome of one import run. Success and
// failure populate disjoint field sets: a successful result carries
// the user id and counts, a failed one carries only the error string.
type ImportResult struct {
	Success           bool
	UserID            int64
	ProjectsCount     int
	TechnologiesCount int
	Error             string
}

func failure(err error) ImportResult {
	return ImportResult{Error: err.Error()}
}

// attempts at inserting an entity before giving up on slug collisions
const slugInsertAttempts = 3

type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) *Store {
	return &Store{db: database}
}

// Connect opens the database and verifies it answers a trivial query,
// retrying with exponential backoff. After maxRetries failures it
// returns a non-recoverable database error carrying the last cause.
func Connect(ctx context.Context, dsn string, maxRetries int) (*Store, error) {
	ctx, span := tracer.Start(ctx, "store:Connect")
	defer span.End()

	driver := "sqlite"
	if strings.HasPrefix(dsn, "libsql://") || strings.HasPrefix(dsn, "wss://") ||
		strings.HasPrefix(dsn, "ws://") {
		driver = "libsql"
	}
	span.SetAttributes(attribute.String("driver", driver))

	schedule := backoff.NewExponentialBackOff()
	schedule.InitialInterval = time.Second
	schedule.Multiplier = 2
	schedule.RandomizationFactor = 0
	schedule.MaxElapsedTime = 0

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, apperr.Database("database connect cancelled").WithError(ctx.Err())
			case <-time.After(schedule.NextBackOff()):
			}
		}

		database, err := sql.Open(driver, dsn)
		if err != nil {
			lastErr = err
			continue
		}
		if err := database.QueryRowContext(ctx, "SELECT 1").Err(); err != nil {
			lastErr = err
			database.Close()
			continue
		}
		if driver == "sqlite" {
			// https://stackoverflow.com/questions/35804884
			database.SetMaxOpenConns(1)
			if _, err := database.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
				lastErr = err
				database.Close()
				continue
			}
		}
		return &Store{db: database}, nil
	}

	err := apperr.Database(fmt.Sprintf("failed to connect after %d retries", maxRetries)).
		WithError(lastErr)
	span.RecordError(err)
	span.SetStatus(codes.Error, "connect retries exhausted")
	return nil, err
}

// Init applies the embedded schema. Safe on an already-initialized
// database.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, db.Schema); err != nil {
		return apperr.Database("failed to apply schema").WithError(err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ExecuteImport writes the user and all entities in one transaction:
// user upsert by email, entity inserts with unique slugs, then the
// technology link rows. Any failure rolls the whole write back and
// comes back as a failed result, never as an error.
func (s *Store) ExecuteImport(ctx context.Context, user User, entities []Entity) ImportResult {
	ctx, span := tracer.Start(ctx, "store:ExecuteImport")
	defer span.End()
	span.SetAttributes(
		attribute.String("email", user.Email),
		attribute.Int("entities", len(entities)),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to begin transaction")
		return failure(err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()

	var userID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (email, name, bio, avatar_url, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			name = excluded.name,
			bio = excluded.bio,
			avatar_url = excluded.avatar_url,
			updated_at = excluded.updated_at
		RETURNING id`,
		user.Email, user.Name, user.Bio, user.AvatarURL, user.PasswordHash, now, now,
	).Scan(&userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user upsert failed")
		return failure(err)
	}

	linked := map[string]bool{}
	for _, entity := range entities {
		entityID, err := insertEntity(ctx, tx, userID, entity, now)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "entity insert failed")
			return failure(err)
		}
		for _, tech := range entity.Technologies {
			_, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO entity_technologies (entity_id, technology)
				VALUES (?, ?)`,
				entityID, tech)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "technology link failed")
				return failure(err)
			}
			linked[tech] = true
		}
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return failure(err)
	}

	return ImportResult{
		Success:           true,
		UserID:            userID,
		ProjectsCount:     len(entities),
		TechnologiesCount: len(linked),
	}
}

// insertEntity resolves a unique slug and inserts inside the caller's
// transaction. The existence probe and the insert share the
// transaction, so a concurrent import can still slip a duplicate in
// between them; the unique index catches that and the loop moves to
// the next suffix.
func insertEntity(ctx context.Context, tx *sql.Tx, userID int64, entity Entity, now int64) (int64, error) {
	base := entity.Slug
	if base == "" {
		base = "entry"
	}

	suffix := 0
	var lastErr error
	for attempt := 0; attempt < slugInsertAttempts; attempt++ {
		slug, next, err := resolveSlug(ctx, tx, base, suffix)
		if err != nil {
			return 0, err
		}
		suffix = next

		var entityID int64
		err = tx.QueryRowContext(ctx, `
			INSERT INTO entities (user_id, slug, title, description, long_description,
				image_url, live_url, github_url, featured, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			userID, slug, entity.Title, entity.Description, entity.LongDescription,
			entity.ImageURL, entity.LiveURL, entity.GithubURL, entity.Featured, now, now,
		).Scan(&entityID)
		if err == nil {
			return entityID, nil
		}
		if !isUniqueViolation(err) {
			return 0, err
		}
		lastErr = err
	}
	return 0, fmt.Errorf("could not find a free slug for %q: %w", base, lastErr)
}

// resolveSlug probes for the first free slug starting at base-suffix,
// returning the slug to try and the suffix to resume from if the
// insert still collides.
func resolveSlug(ctx context.Context, tx *sql.Tx, base string, suffix int) (string, int, error) {
	for {
		slug := base
		if suffix > 0 {
			slug = fmt.Sprintf("%s-%d", base, suffix)
		}
		var exists bool
		err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM entities WHERE slug = ?)", slug,
		).Scan(&exists)
		if err != nil {
			return "", 0, err
		}
		suffix++
		if !exists {
			return slug, suffix, nil
		}
	}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}
