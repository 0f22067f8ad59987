// Package pg bootstraps PostgreSQL access on top of github.com/jackc/pgx/v5.
//
// Connect opens a *pgxpool.Pool from Config (PG_* environment variables) and
// retries until the database answers. Migrate applies embedded goose
// migrations through the same pool. Healthcheck returns a probe suitable for
// httpserver readiness checks, and the Is*Error helpers classify driver errors.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, db.Migrations, "migrations", cfg, log); err != nil {
//		return err
//	}
package pg
