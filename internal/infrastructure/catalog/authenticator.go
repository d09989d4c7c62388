package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type tokenIssuer interface {
	Issue(subject string, ttl time.Duration) (string, time.Time, error)
}

// ServiceAuthenticator выпускает сервисный токен для запросов в каталог и
// перевыпускает его, когда срок подходит к концу.
type ServiceAuthenticator struct {
	issuer  tokenIssuer
	subject string
	ttl     time.Duration

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// refreshMargin is how long before expiry a token stops being handed out.
const refreshMargin = 10 * time.Second

func NewServiceAuthenticator(issuer tokenIssuer, subject string, ttl time.Duration) *ServiceAuthenticator {
	return &ServiceAuthenticator{
		issuer:  issuer,
		subject: subject,
		ttl:     ttl,
	}
}

func (a *ServiceAuthenticator) Authenticate(context.Context) error {
	token, expiresAt, err := a.issuer.Issue(a.subject, a.ttl)
	if err != nil {
		return fmt.Errorf("issuer.Issue: %w", err)
	}

	a.mu.Lock()
	a.token, a.expiresAt = token, expiresAt
	a.mu.Unlock()

	return nil
}

// BearerToken возвращает пустую строку, если токена нет или он вот-вот
// истечёт; AuthBearerRoundTripper в этом случае вызовет Authenticate.
func (a *ServiceAuthenticator) BearerToken() string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if time.Until(a.expiresAt) < refreshMargin {
		return ""
	}

	return a.token
}
