// Package sqlstore persists session snapshots in a SQL database, one
// row per account. It ships a Store for direct use and an Observer that
// plugs the store into a session as a core.PersistenceObserver.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-session/core"
)

type Store struct {
	db   *bun.DB
	repo repository.Repository[*sessionRecord]
}

// NewStore builds a store from a *bun.DB or anything exposing one, such
// as a go-persistence-bun client.
func NewStore(persistenceClient any) (*Store, error) {
	db, err := resolveBunDB(persistenceClient)
	if err != nil {
		return nil, err
	}
	return &Store{
		db:   db,
		repo: repository.NewRepository[*sessionRecord](db, sessionHandlers()),
	}, nil
}

// EnsureSchema creates the snapshot table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: store is not configured")
	}
	if _, err := s.db.NewCreateTable().
		Model((*sessionRecord)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("sqlstore: create table: %w", err)
	}
	return nil
}

// Save upserts the snapshot row for its account name.
func (s *Store) Save(ctx context.Context, snapshot core.Snapshot) error {
	if s == nil || s.repo == nil || s.db == nil {
		return fmt.Errorf("sqlstore: store is not configured")
	}
	account := strings.TrimSpace(snapshot.AccountName)
	if account == "" {
		return fmt.Errorf("sqlstore: account name is required")
	}
	if snapshot.Empty() {
		return fmt.Errorf("sqlstore: refusing to save an empty snapshot, use Delete")
	}
	snapshot.AccountName = account
	now := time.Now().UTC()

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing := &sessionRecord{}
		err := tx.NewSelect().
			Model(existing).
			Where("account_name = ?", account).
			Limit(1).
			Scan(ctx)
		if err != nil && err != sql.ErrNoRows {
			return err
		}

		if err == nil {
			existing.applySnapshot(snapshot, now)
			_, updateErr := tx.NewUpdate().
				Model(existing).
				WherePK().
				Exec(ctx)
			return updateErr
		}

		record := &sessionRecord{
			ID:          uuid.New().String(),
			AccountName: account,
			CreatedAt:   now,
		}
		record.applySnapshot(snapshot, now)
		_, createErr := s.repo.CreateTx(ctx, tx, record)
		return createErr
	})
}

// Load returns the stored snapshot for an account. A missing row loads
// as the empty snapshot.
func (s *Store) Load(ctx context.Context, accountName string) (core.Snapshot, error) {
	if s == nil || s.repo == nil {
		return core.Snapshot{}, fmt.Errorf("sqlstore: store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("account_name", "=", strings.TrimSpace(accountName)),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.Snapshot{}, err
	}
	if len(records) == 0 {
		return core.Snapshot{}, nil
	}
	return records[0].toSnapshot(), nil
}

// Delete removes the snapshot row for an account. Deleting an absent
// account is not an error.
func (s *Store) Delete(ctx context.Context, accountName string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: store is not configured")
	}
	_, err := s.db.NewDelete().
		Model((*sessionRecord)(nil)).
		Where("account_name = ?", strings.TrimSpace(accountName)).
		Exec(ctx)
	return err
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
