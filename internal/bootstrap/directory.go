package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/redis/go-redis/v9"

	"github.com/GoSim-25-26J-441/lms-access-backend/config"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/repository"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/logging"
)

// Directory is the configured user directory and the resources behind it.
type Directory struct {
	Users   repository.UserDirectory
	closers []func() error
}

func (d *Directory) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	return errors.Join(errs...)
}

// Ping probes the backing store; the profile cache is bypassed.
func (d *Directory) Ping(ctx context.Context) error {
	_, err := d.Users.IsEmpty(ctx)
	return err
}

// OpenDirectory selects the backend from cfg.Store and adds the Redis profile
// cache when REDIS_ADDR is set. An unreachable cache is logged and skipped.
func OpenDirectory(ctx context.Context, cfg *config.Config, app *firebase.App, log *slog.Logger) (*Directory, error) {
	d := &Directory{}

	switch cfg.Store.Backend {
	case "firestore":
		if app == nil {
			return nil, fmt.Errorf("firestore user store needs a Firebase app")
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("firestore client: %w", err)
		}
		d.Users = repository.NewFirestoreUserRepository(client)
		d.closers = append(d.closers, client.Close)

	case "postgres":
		db, err := repository.NewPostgresConnection(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		repo := repository.NewPostgresUserRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		d.Users = repo
		d.closers = append(d.closers, db.Close)

	case "memory":
		log.Warn("using in-memory user store; profiles are lost on restart")
		d.Users = repository.NewMemoryUserRepository()

	default:
		return nil, fmt.Errorf("unknown user store %q", cfg.Store.Backend)
	}

	if cfg.Redis.Addr == "" {
		return d, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		log.Warn("profile cache unavailable, continuing without it",
			slog.String("addr", cfg.Redis.Addr), logging.Err(err))
		rdb.Close()
		return d, nil
	}

	d.Users = repository.NewCachedUserRepository(d.Users, rdb, cfg.Redis.ProfileTTL, log)
	d.closers = append(d.closers, rdb.Close)
	return d, nil
}
