package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"dumptrack-api/internal/model"
	"dumptrack-api/internal/repository"
	"dumptrack-api/internal/service"
	"dumptrack-api/pkg/uid"
)

// Gateway is the remote data service consumed by the stores: password
// identity plus table CRUD.
type Gateway interface {
	SignUp(ctx context.Context, email, password string) (*model.Identity, error)
	SignInWithPassword(ctx context.Context, email, password string) (*model.Identity, error)
	SignOut(ctx context.Context) error
	// GetCurrentUser returns nil without error when no session is active.
	GetCurrentUser(ctx context.Context) (*model.Identity, error)

	Select(ctx context.Context, table string, q repository.Query) ([]repository.Row, error)
	Insert(ctx context.Context, table string, rows ...repository.Row) ([]repository.Row, error)
	Update(ctx context.Context, table string, patch repository.Row, filters ...repository.Filter) ([]repository.Row, error)
	Delete(ctx context.Context, table string, filters ...repository.Filter) error
}

// minPasswordLength is the shortest password accepted at sign-up.
const minPasswordLength = 6

// Backend is shared by every client: the table repository, the token
// service and the password hashing policy.
type Backend struct {
	repo       repository.TableRepository
	tokens     *service.TokenService
	bcryptCost int
	logger     *zap.Logger
}

// NewBackend creates a Backend.
func NewBackend(repo repository.TableRepository, tokens *service.TokenService, bcryptCost int, logger *zap.Logger) *Backend {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{repo: repo, tokens: tokens, bcryptCost: bcryptCost, logger: logger}
}

// NewClient returns a client with no session.
func (b *Backend) NewClient() *Client {
	return &Client{backend: b}
}

// ServiceClient returns a client allowed to access tables without a
// session, for maintenance commands.
func (b *Backend) ServiceClient() *Client {
	return &Client{backend: b, service: true}
}

// Repository exposes the underlying table repository.
func (b *Backend) Repository() repository.TableRepository {
	return b.repo
}

// Client is one session's view of the backend. It carries that session's
// access token.
type Client struct {
	backend *Backend
	service bool

	mu    sync.RWMutex
	token string
}

var _ Gateway = (*Client)(nil)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SignUp registers a new identity and starts a session for it.
func (c *Client) SignUp(ctx context.Context, email, password string) (*model.Identity, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, &AuthError{Message: MsgInvalidEmail}
	}
	if len(password) < minPasswordLength {
		return nil, &AuthError{Message: MsgWeakPassword}
	}

	existing, err := c.backend.repo.Select(ctx, repository.TableAuthUsers, repository.Query{
		Filters: []repository.Filter{repository.Eq("email", email)},
		Limit:   1,
	})
	if err != nil {
		return nil, remoteErr(repository.TableAuthUsers, "select", err)
	}
	if len(existing) > 0 {
		return nil, &AuthError{Message: MsgAlreadyRegistered}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.backend.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	cred := model.Credential{
		ID:           uid.New(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	row, err := repository.EncodeRow(cred)
	if err != nil {
		return nil, err
	}
	if _, err := c.backend.repo.Insert(ctx, repository.TableAuthUsers, row); err != nil {
		return nil, remoteErr(repository.TableAuthUsers, "insert", err)
	}

	identity := &model.Identity{ID: cred.ID, Email: cred.Email}
	if err := c.startSession(ctx, identity); err != nil {
		return nil, err
	}
	c.backend.logger.Info("identity registered", zap.String("user_id", identity.ID))
	return identity, nil
}

// SignInWithPassword authenticates and starts a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*model.Identity, error) {
	rows, err := c.backend.repo.Select(ctx, repository.TableAuthUsers, repository.Query{
		Filters: []repository.Filter{repository.Eq("email", normalizeEmail(email))},
		Limit:   1,
	})
	if err != nil {
		return nil, remoteErr(repository.TableAuthUsers, "select", err)
	}
	if len(rows) == 0 {
		return nil, &AuthError{Message: MsgInvalidCredentials}
	}

	var cred model.Credential
	if err := repository.DecodeRow(rows[0], &cred); err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		return nil, &AuthError{Message: MsgInvalidCredentials}
	}

	identity := &model.Identity{ID: cred.ID, Email: cred.Email}
	if err := c.startSession(ctx, identity); err != nil {
		return nil, err
	}
	return identity, nil
}

func (c *Client) startSession(ctx context.Context, identity *model.Identity) error {
	token, err := c.backend.tokens.GenerateToken(ctx, model.TokenData{UserID: identity.ID, Email: identity.Email})
	if err != nil {
		return err
	}
	if old := c.currentToken(); old != "" {
		_ = c.backend.tokens.RevokeToken(ctx, old)
	}
	c.setToken(token)
	return nil
}

// SignOut ends the session. The local token is dropped even when revoking
// it fails.
func (c *Client) SignOut(ctx context.Context) error {
	token := c.currentToken()
	c.setToken("")
	if token == "" {
		return nil
	}
	return c.backend.tokens.RevokeToken(ctx, token)
}

// GetCurrentUser returns the identity of the live session, if any.
func (c *Client) GetCurrentUser(ctx context.Context) (*model.Identity, error) {
	token := c.currentToken()
	if token == "" {
		return nil, nil
	}

	data, err := c.backend.tokens.ValidateToken(ctx, token)
	switch {
	case err == nil:
		return &model.Identity{ID: data.UserID, Email: data.Email}, nil
	case errors.Is(err, service.ErrTokenExpired), errors.Is(err, service.ErrTokenFormat), errors.Is(err, service.ErrTokenEmpty):
		c.setToken("")
		return nil, nil
	default:
		return nil, err
	}
}

// authorize checks table access for this client.
func (c *Client) authorize(ctx context.Context, table string) error {
	if table == repository.TableAuthUsers {
		return fmt.Errorf("%w: %s", repository.ErrUnknownTable, table)
	}
	if c.service {
		return nil
	}
	identity, err := c.GetCurrentUser(ctx)
	if err != nil {
		return err
	}
	if identity == nil {
		return ErrNotAuthenticated
	}
	return nil
}

// Select returns the rows of table matching q.
func (c *Client) Select(ctx context.Context, table string, q repository.Query) ([]repository.Row, error) {
	if err := c.authorize(ctx, table); err != nil {
		return nil, remoteErr(table, "select", err)
	}
	rows, err := c.backend.repo.Select(ctx, table, q)
	return rows, remoteErr(table, "select", err)
}

// Insert writes rows and returns them as stored.
func (c *Client) Insert(ctx context.Context, table string, rows ...repository.Row) ([]repository.Row, error) {
	if err := c.authorize(ctx, table); err != nil {
		return nil, remoteErr(table, "insert", err)
	}
	stored, err := c.backend.repo.Insert(ctx, table, rows...)
	return stored, remoteErr(table, "insert", err)
}

// Update patches the matching rows and returns them as stored.
func (c *Client) Update(ctx context.Context, table string, patch repository.Row, filters ...repository.Filter) ([]repository.Row, error) {
	if err := c.authorize(ctx, table); err != nil {
		return nil, remoteErr(table, "update", err)
	}
	rows, err := c.backend.repo.Update(ctx, table, patch, filters...)
	return rows, remoteErr(table, "update", err)
}

// Delete removes the matching rows.
func (c *Client) Delete(ctx context.Context, table string, filters ...repository.Filter) error {
	if err := c.authorize(ctx, table); err != nil {
		return remoteErr(table, "delete", err)
	}
	_, err := c.backend.repo.Delete(ctx, table, filters...)
	return remoteErr(table, "delete", err)
}
