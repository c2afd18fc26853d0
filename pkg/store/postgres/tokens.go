package postgres

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/drycc/controller/pkg/ctlerr"
	"github.com/drycc/controller/pkg/store"
)

// Tokens implements store.TokenStore against the tokens table.
type Tokens struct{ db *DB }

func (t *Tokens) Upsert(ctx context.Context, tok *store.Token) error {
	query, args, err := psql.Insert("tokens").
		Columns("key", "access_token", "expires_in", "token_type", "scope", "refresh_token").
		Values(tok.Key, tok.AccessToken, tok.ExpiresIn, tok.TokenType, tok.Scope, tok.RefreshToken).
		Suffix(`ON CONFLICT (key) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			expires_in = EXCLUDED.expires_in,
			token_type = EXCLUDED.token_type,
			scope = EXCLUDED.scope,
			refresh_token = EXCLUDED.refresh_token
			RETURNING created`).
		ToSql()
	if err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "build upsert", err)
	}
	if err := t.db.conn.QueryRowContext(ctx, query, args...).Scan(&tok.Created); err != nil {
		return ctlerr.Wrap(ctlerr.ServiceUnavailable, "upsert token", err)
	}
	return nil
}

func (t *Tokens) Get(ctx context.Context, key string) (*store.Token, error) {
	query, args, err := psql.Select("key", "access_token", "expires_in", "token_type", "scope",
		"refresh_token", "created").From("tokens").Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.ServiceUnavailable, "build select", err)
	}
	var row store.Token
	if err := t.db.conn.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		return nil, wrapNotFound(err, "token %q not found", key)
	}
	return &row, nil
}
