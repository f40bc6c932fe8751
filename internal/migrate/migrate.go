package migrate

import (
	"context"
	"database/sql"
	"embed"
	"io"
	"io/fs"
	"sort"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

//go:embed sql/*.sql
var migrationsFS embed.FS

// ErrUnpaired reports a migration version missing its up or down file.
var ErrUnpaired = errors.New("migration without matching up/down pair")

// checkPairs verifies every version under dir ships both directions, so a
// broken set fails before the schema is touched.
func checkPairs(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return errors.Wrap(err, "read migrations")
	}
	seen := map[string]int{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			seen[strings.TrimSuffix(name, ".up.sql")] |= 1
		case strings.HasSuffix(name, ".down.sql"):
			seen[strings.TrimSuffix(name, ".down.sql")] |= 2
		}
	}
	var missing []string
	for v, bits := range seen {
		if bits != 3 {
			missing = append(missing, v)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.Wrap(ErrUnpaired, strings.Join(missing, ", "))
	}
	return nil
}

// Apply brings the storefront schema up to the latest embedded version.
func Apply(ctx context.Context, pool *pgxpool.Pool, logger logrus.FieldLogger) error {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	if err := checkPairs(migrationsFS, "sql"); err != nil {
		return err
	}
	srcDriver, err := iofs.New(migrationsFS, "sql")
	if err != nil {
		return errors.Wrap(err, "init migration source")
	}

	sqlDB, err := sql.Open("pgx", pool.Config().ConnString())
	if err != nil {
		return errors.Wrap(err, "open sql db")
	}
	defer sqlDB.Close()

	if err := sqlDB.PingContext(ctx); err != nil {
		return errors.Wrap(err, "ping sql db")
	}

	dbDriver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return errors.Wrap(err, "init db driver")
	}

	m, err := migrate.NewWithInstance("iofs", srcDriver, "pgx", dbDriver)
	if err != nil {
		return errors.Wrap(err, "init migrate")
	}
	defer m.Close()

	before, _, _ := m.Version()
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.WithField("version", before).Info("schema up to date")
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "migrate up")
	}

	after, dirty, err := m.Version()
	if err != nil {
		return errors.Wrap(err, "read schema version")
	}
	logger.WithFields(logrus.Fields{"from": before, "to": after, "dirty": dirty}).Info("schema migrated")
	return nil
}
