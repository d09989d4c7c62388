package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"trade_market/internal/domain"
	"trade_market/pkg/contextx"
	"trade_market/pkg/errcodes"
	"trade_market/pkg/httpx/reply"
	"trade_market/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const bearerPrefix = "Bearer "

// Middleware кладёт id вызывающего в контекст; без валидного токена
// запрос дальше не проходит.
func Middleware(tokens *Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, bearerPrefix) {
				reply.Error(ctx, w, domain.Unauthorized(errcodes.Unauthorized, "missing bearer token"))
				return
			}

			userID, err := tokens.Verify(strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)))
			if err != nil {
				reply.Error(ctx, w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(ctx, userID)))
		})
	}
}

// WithCaller сохраняет id пользователя и дополняет логгер запроса.
func WithCaller(ctx context.Context, userID uuid.UUID) context.Context {
	ctx = contextx.WithUserID(ctx, contextx.UserID(userID.String()))

	return contextx.WithLogger(ctx, logger(ctx).With(logx.Stringer(logx.FieldUserID, userID)))
}

func CallerFromContext(ctx context.Context) (uuid.UUID, error) {
	userID, err := contextx.UserIDFromContext(ctx)
	if err != nil {
		return uuid.Nil, domain.WrapError(err, domain.KindUnauthorized, errcodes.Unauthorized, "caller is not authenticated")
	}

	id, err := uuid.Parse(userID.String())
	if err != nil {
		return uuid.Nil, domain.WrapError(fmt.Errorf("uuid.Parse: %w", err), domain.KindUnauthorized, errcodes.InvalidUserID, "caller id is malformed")
	}

	return id, nil
}
