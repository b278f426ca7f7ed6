package transport

import (
	"context"

	"golang.org/x/time/rate"
)

// WaitN can never take more than the burst, so large writes are paced in
// burst-sized slices.
const limiterBurstSize = 4 * 128 << 10

type limitedTransport struct {
	Transport
	limiter *rate.Limiter
}

// NewLimitedTransport caps outbound throughput at kbps KiB/s. A non-positive
// limit returns t unchanged.
func NewLimitedTransport(t Transport, kbps int) Transport {
	if kbps <= 0 {
		return t
	}
	return &limitedTransport{
		Transport: t,
		limiter:   rate.NewLimiter(1024*rate.Limit(kbps), limiterBurstSize),
	}
}

func (l *limitedTransport) Write(p []byte) (int, error) {
	take(l.limiter, len(p))
	return l.Transport.Write(p)
}

func take(l *rate.Limiter, tokens int) {
	for tokens > limiterBurstSize {
		_ = l.WaitN(context.TODO(), limiterBurstSize)
		tokens -= limiterBurstSize
	}
	if tokens > 0 {
		_ = l.WaitN(context.TODO(), tokens)
	}
}
