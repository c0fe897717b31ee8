// Package gatewaytest builds gateway backends over a temporary SQLite
// database for tests.
package gatewaytest

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"dumptrack-api/internal/cache"
	"dumptrack-api/internal/gateway"
	"dumptrack-api/internal/repository"
	"dumptrack-api/internal/service"
)

// NewRepository opens a SQLite table repository in a temp dir.
func NewRepository(t testing.TB) *repository.SQLiteTableRepository {
	t.Helper()
	repo, err := repository.NewSQLiteTableRepository(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

// NewBackend returns a backend over repo, or a fresh SQLite repository when
// repo is nil.
func NewBackend(t testing.TB, repo repository.TableRepository) *gateway.Backend {
	t.Helper()
	if repo == nil {
		repo = NewRepository(t)
	}
	mem := cache.NewMemoryCache()
	t.Cleanup(func() { mem.Close() })
	tokens := service.NewTokenService(mem, time.Hour, zap.NewNop())
	return gateway.NewBackend(repo, tokens, bcrypt.MinCost, zap.NewNop())
}

// SignedInClient returns a client with a live session for email.
func SignedInClient(t testing.TB, b *gateway.Backend, email string) *gateway.Client {
	t.Helper()
	c := b.NewClient()
	_, err := c.SignUp(context.Background(), email, "secret123")
	require.NoError(t, err)
	return c
}

// FailingRepository wraps a TableRepository and fails selected operations.
type FailingRepository struct {
	repository.TableRepository

	mu    sync.Mutex
	fails map[string]error
}

// NewFailingRepository wraps repo with no failures armed.
func NewFailingRepository(repo repository.TableRepository) *FailingRepository {
	return &FailingRepository{TableRepository: repo, fails: map[string]error{}}
}

// Fail makes every op ("select", "insert", "update", "delete") on table
// return err until Reset.
func (r *FailingRepository) Fail(op, table string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fails[op+":"+table] = err
}

// Reset disarms every failure.
func (r *FailingRepository) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fails = map[string]error{}
}

func (r *FailingRepository) check(op, table string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fails[op+":"+table]
}

func (r *FailingRepository) Select(ctx context.Context, table string, q repository.Query) ([]repository.Row, error) {
	if err := r.check("select", table); err != nil {
		return nil, err
	}
	return r.TableRepository.Select(ctx, table, q)
}

func (r *FailingRepository) Insert(ctx context.Context, table string, rows ...repository.Row) ([]repository.Row, error) {
	if err := r.check("insert", table); err != nil {
		return nil, err
	}
	return r.TableRepository.Insert(ctx, table, rows...)
}

func (r *FailingRepository) Update(ctx context.Context, table string, patch repository.Row, filters ...repository.Filter) ([]repository.Row, error) {
	if err := r.check("update", table); err != nil {
		return nil, err
	}
	return r.TableRepository.Update(ctx, table, patch, filters...)
}

func (r *FailingRepository) Delete(ctx context.Context, table string, filters ...repository.Filter) (int64, error) {
	if err := r.check("delete", table); err != nil {
		return 0, err
	}
	return r.TableRepository.Delete(ctx, table, filters...)
}
