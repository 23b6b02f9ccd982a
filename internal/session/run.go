package session

import (
	"context"
)

// Run starts s, calls fn and closes s on every exit path, including a
// panic in fn, which is re-raised once the backend is released.
func Run(ctx context.Context, s *Session, fn func(ctx context.Context, s *Session) error) (err error) {
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := s.Start(ctx); err != nil {
		return err
	}
	return fn(ctx, s)
}
