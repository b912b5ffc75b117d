package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/spf13/pflag"
)

const (
	storagePathFlag   = "storage-path"
	migrationPathFlag = "migrations-path"
	downFlag          = "down"

	storagePathEnvName = "PRODMNG_OVERLAY_SQL_DSN"
)

var (
	errUnsupportedScheme = errors.New("unsupported storage scheme")
	errInvalidDSN        = errors.New("invalid storage dsn")
)

type flags struct {
	storagePath    string
	migrationsPath string
	down           bool
}

func main() {
	f := getFlagsValues()
	validateFlags(f)
	makeMigrations(f)
}

type MigrationLogger struct {
	logger  *slog.Logger
	verbose bool
}

func NewMigrationLogger() *MigrationLogger {
	return &MigrationLogger{
		logger:  slog.Default(),
		verbose: true,
	}
}

func (ml *MigrationLogger) Printf(format string, v ...any) {
	ml.logger.Info(fmt.Sprintf(format, v...))
}

func (ml *MigrationLogger) Verbose() bool {
	return ml.verbose
}

func getFlagsValues() flags {
	storagePath := pflag.StringP(storagePathFlag, "s", os.Getenv(storagePathEnvName),
		"postgres DSN, defaults to $"+storagePathEnvName)
	migrationsPath := pflag.StringP(migrationPathFlag, "m", "migrations",
		"directory with migration files")
	down := pflag.Bool(downFlag, false, "roll back every migration")
	pflag.Parse()
	return flags{*storagePath, *migrationsPath, *down}
}

func validateFlags(f flags) {
	var errs []error

	if f.storagePath == "" {
		errs = append(errs, fmt.Errorf("--%s flag: required", storagePathFlag))
	}

	if f.migrationsPath == "" {
		errs = append(errs, fmt.Errorf("--%s flag: required", migrationPathFlag))
	}

	if len(errs) != 0 {
		slog.Error("too few args", "err", errors.Join(errs...))
		fallDown()
	}
}

// databaseURL rewrites a postgres DSN to the pgx/v5 driver scheme. A
// keyword/value DSN ("host=db user=app ...") is parsed by pgx and rebuilt
// as a URL.
func databaseURL(dsn string) (string, error) {
	if !strings.Contains(dsn, "://") {
		return keywordDSNToURL(dsn)
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "postgres", "postgresql", "pgx5":
		u.Scheme = "pgx5"
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedScheme, u.Scheme)
	}
	return u.String(), nil
}

func keywordDSNToURL(dsn string) (string, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errInvalidDSN, err)
	}

	u := url.URL{
		Scheme: "pgx5",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(int(cfg.Port))),
		Path:   "/" + cfg.Database,
	}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}
	if cfg.TLSConfig == nil {
		u.RawQuery = url.Values{"sslmode": {"disable"}}.Encode()
	}
	return u.String(), nil
}

func makeMigrations(f flags) {
	dbURL, err := databaseURL(f.storagePath)
	if err != nil {
		slog.Error("invalid storage path", "err", err)
		fallDown()
	}

	m, err := migrate.New(fmt.Sprintf("file://%s", f.migrationsPath), dbURL)
	if err != nil {
		slog.Error("failed to migrate", "err", err)
		fallDown()
	}
	defer m.Close()

	m.Log = NewMigrationLogger()

	apply := m.Up
	if f.down {
		apply = m.Down
	}

	if err := apply(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.Log.Printf("no migrations to apply")
			return
		}
		slog.Error("failed to migrate", "err", err)
		fallDown()
	}
	m.Log.Printf("migration applied\n")
}

func fallDown() {
	os.Exit(2)
}
