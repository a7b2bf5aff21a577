package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/ems/internal/dbx"
	"github.com/dmitrijs2005/ems/internal/server/models"
	"github.com/dmitrijs2005/ems/internal/server/repositories/repomanager"
)

// SQLSessionStore keeps sessions in the relational store. Activation locks
// the user row, so concurrent logins of one user serialise and the last
// one wins.
type SQLSessionStore struct {
	tx          dbx.Transactor
	repomanager repomanager.RepositoryManager
}

func NewSQLSessionStore(tx dbx.Transactor, m repomanager.RepositoryManager) *SQLSessionStore {
	return &SQLSessionStore{tx: tx, repomanager: m}
}

func (s *SQLSessionStore) Activate(ctx context.Context, session *models.Session) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).LockByID(ctx, session.UserID); err != nil {
			return fmt.Errorf("error locking user: %w", err)
		}

		repo := s.repomanager.Sessions(tx)
		if _, err := repo.DeactivateForUser(ctx, session.UserID, session.IssuedAt); err != nil {
			return fmt.Errorf("error ending sessions: %w", err)
		}
		if err := repo.Create(ctx, session); err != nil {
			return fmt.Errorf("error creating session: %w", err)
		}
		return nil
	})
}

func (s *SQLSessionStore) Get(ctx context.Context, id string) (*models.Session, error) {
	return s.repomanager.Sessions(s.tx.Conn()).Get(ctx, id)
}

func (s *SQLSessionStore) UpdateAccessHash(ctx context.Context, id string, accessTokenHash string) error {
	return s.repomanager.Sessions(s.tx.Conn()).UpdateAccessHash(ctx, id, accessTokenHash)
}

func (s *SQLSessionStore) DeactivateUser(ctx context.Context, userID string, at time.Time) error {
	_, err := s.repomanager.Sessions(s.tx.Conn()).DeactivateForUser(ctx, userID, at)
	return err
}
