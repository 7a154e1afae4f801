package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hirewire/notifykit/pkg/channel"
	"github.com/hirewire/notifykit/pkg/dispatch"
)

// contactDirectory resolves delivery destinations from the contacts table
// populated by the account sync job.
type contactDirectory struct {
	pool *pgxpool.Pool
}

func newContactDirectory(pool *pgxpool.Pool) *contactDirectory {
	return &contactDirectory{pool: pool}
}

func (d *contactDirectory) Destination(ctx context.Context, userID string, ch channel.Channel) (string, error) {
	var destination string
	err := d.pool.QueryRow(ctx, `
		SELECT destination FROM contacts
		WHERE user_id = $1 AND channel = $2`,
		userID, string(ch)).Scan(&destination)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%w: user %s, channel %s", dispatch.ErrNoDestination, userID, ch)
		}
		return "", err
	}
	return destination, nil
}
