package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"debt_flow_app_go/services/backend"

	"go.uber.org/zap"
)

// ErrNoServiceAccount is returned when background jobs have no credentials
var ErrNoServiceAccount = errors.New("jobs: service account not configured")

// ServiceAccount holds the backend login used by background jobs. The
// token is obtained lazily and renewed once when the backend answers 401.
type ServiceAccount struct {
	client   *backend.Client
	email    string
	password string
	log      *zap.Logger

	mu    sync.Mutex
	token string
}

func NewServiceAccount(client *backend.Client, email, password string) *ServiceAccount {
	return &ServiceAccount{
		client:   client,
		email:    email,
		password: password,
		log:      zap.L().Named("service_account"),
	}
}

// Configured reports whether credentials are set
func (s *ServiceAccount) Configured() bool {
	return s != nil && s.email != "" && s.password != ""
}

func (s *ServiceAccount) api(ctx context.Context) (*backend.API, error) {
	if !s.Configured() {
		return nil, ErrNoServiceAccount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		res, err := backend.NewAPI(s.client).Auth.Login(ctx, s.email, s.password)
		if err != nil {
			return nil, fmt.Errorf("service account login: %w", err)
		}
		s.token = res.Token
		s.log.Info("service account logged in", zap.String("user_id", res.User.ID))
	}
	return backend.NewAPI(s.client.WithToken(s.token)), nil
}

func (s *ServiceAccount) invalidate() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

// Do runs fn with an authenticated API, logging in again once if the
// token was rejected.
func (s *ServiceAccount) Do(ctx context.Context, fn func(api *backend.API) error) error {
	api, err := s.api(ctx)
	if err != nil {
		return err
	}
	err = fn(api)
	if !errors.Is(err, backend.ErrUnauthorized) {
		return err
	}

	s.invalidate()
	if api, err = s.api(ctx); err != nil {
		return err
	}
	return fn(api)
}
