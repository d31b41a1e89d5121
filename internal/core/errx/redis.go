package errx

import (
	"errors"

	"github.com/redis/go-redis/v9"
)

// WrapRedis maps Redis errors to the persistence kinds. A failed Redis write
// or read is always a persistence_error: conversation turns must never be
// dropped silently.
func WrapRedis(err error) *Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, redis.Nil) {
		return New(err, KindPersistence, PersistenceNotFoundMessage)
	}

	return New(err, KindPersistence, PersistenceErrorMessage)
}
