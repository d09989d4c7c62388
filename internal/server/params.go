package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"git.appkode.ru/pub/go/failure"
	"github.com/google/uuid"

	"trade_market/internal/domain/value"
	"trade_market/pkg/errcodes"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	maxIdempotencyKeyLen = 128
)

func parseUUID(raw string, code failure.ErrorCode, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, failure.NewInvalidArgumentErrorFromError(
			fmt.Errorf("uuid.Parse(%s): %w", name, err),
			failure.WithCode(code),
			failure.WithDescription(fmt.Sprintf("%s must be a uuid", name)),
		)
	}

	return id, nil
}

func pathUUID(r *http.Request, name string, code failure.ErrorCode) (uuid.UUID, error) {
	return parseUUID(r.PathValue(name), code, name)
}

// idempotencyKey возвращает пустую строку, если заголовок не передан.
func idempotencyKey(r *http.Request) (string, error) {
	key := strings.TrimSpace(r.Header.Get(headerIdempotencyKey))
	if len(key) > maxIdempotencyKeyLen {
		return "", failure.NewInvalidArgumentError(
			"idempotency key is too long",
			failure.WithCode(errcodes.ValidationError),
			failure.WithDescription(fmt.Sprintf("%s must be at most %d characters", headerIdempotencyKey, maxIdempotencyKeyLen)),
		)
	}

	return key, nil
}

func queryPage(r *http.Request) (value.Page, error) {
	var page value.Page

	query := r.URL.Query()

	for name, dest := range map[string]*int{"limit": &page.Limit, "offset": &page.Offset} {
		raw := query.Get(name)
		if raw == "" {
			continue
		}

		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return value.Page{}, failure.NewInvalidArgumentError(
				fmt.Sprintf("invalid %s %q", name, raw),
				failure.WithCode(errcodes.ValidationError),
				failure.WithDescription(fmt.Sprintf("%s must be a non-negative integer", name)),
			)
		}

		*dest = n
	}

	return page, nil
}

func queryBool(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, failure.NewInvalidArgumentError(
			fmt.Sprintf("invalid %s %q", name, raw),
			failure.WithCode(errcodes.ValidationError),
			failure.WithDescription(fmt.Sprintf("%s must be a boolean", name)),
		)
	}

	return v, nil
}
