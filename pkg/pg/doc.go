// Package pg bootstraps the PostgreSQL layer backing rules, preferences
// and the delivery ledger: a pgx/v5 connection pool with startup retries,
// goose schema migrations and a readiness probe.
//
// Typical startup sequence:
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
//	    return err
//	}
package pg
