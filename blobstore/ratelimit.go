package blobstore

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// ThrottledStore wraps a BlobStore and limits the byte throughput of Put
// and Open traffic with a shared token bucket. Useful when mirroring over
// a link that backup traffic must not saturate.
type ThrottledStore struct {
	inner   BlobStore
	limiter *rate.Limiter
}

// NewThrottledStore wraps inner with a limit of bytesPerSec and the given
// burst size. Burst also caps the largest single read or write the
// limiter will wait for, so it should be at least a typical buffer size.
func NewThrottledStore(inner BlobStore, bytesPerSec float64, burst int) *ThrottledStore {
	return &ThrottledStore{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), burst),
	}
}

// Put writes a blob through the rate limiter.
func (s *ThrottledStore) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	return s.inner.Put(ctx, name, &throttledReader{ctx: ctx, r: r, limiter: s.limiter}, size)
}

// Open opens a blob; reads from the returned reader are rate limited.
func (s *ThrottledStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	rc, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &throttledReadCloser{
		throttledReader: throttledReader{ctx: ctx, r: rc, limiter: s.limiter},
		closer:          rc,
	}, nil
}

// Delete removes a blob. Deletes are not throttled.
func (s *ThrottledStore) Delete(ctx context.Context, name string) error {
	return s.inner.Delete(ctx, name)
}

// List returns all blob names with the given prefix. Lists are not
// throttled.
func (s *ThrottledStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

type throttledReader struct {
	ctx     context.Context
	r       io.Reader
	limiter *rate.Limiter
}

func (tr *throttledReader) Read(p []byte) (int, error) {
	// A single WaitN must not exceed the burst size.
	if burst := tr.limiter.Burst(); len(p) > burst {
		p = p[:burst]
	}

	n, err := tr.r.Read(p)
	if n > 0 {
		if waitErr := tr.limiter.WaitN(tr.ctx, n); waitErr != nil {
			return n, waitErr
		}
	}
	return n, err
}

type throttledReadCloser struct {
	throttledReader
	closer io.Closer
}

func (tr *throttledReadCloser) Close() error {
	return tr.closer.Close()
}
