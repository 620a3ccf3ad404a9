package credential

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aldermoor/governor/internal/ratelimit"
	"github.com/aldermoor/governor/internal/werrors"
)

// Invoker is the minimal shape a provider call needs to support rotation:
// given a credential secret, perform one call attempt.
type Invoker func(ctx context.Context, secret string) (string, error)

const (
	defaultBaseBackoff = 1 * time.Second
	defaultMaxBackoff  = 60 * time.Second
	defaultMaxRetries  = 5
)

// Outcome is the result of a successful rotator Invoke call, carrying the
// rotation bookkeeping a caller needs to audit which credential answered.
type Outcome struct {
	Result           string
	CredentialUsed   string
	RotationOccurred bool
	Attempts         int
}

// Rotator drives retry/backoff/rotation across a Set of credentials,
// backed by a RotationStore for cross-process exhaustion tracking and a
// ratelimit.RateLimiter (semaphore + token bucket) for inter-call pacing,
// reused directly from the teacher's concurrency-control package.
type Rotator struct {
	Set     *Set
	Store   *RotationStore
	Limiter *ratelimit.RateLimiter

	// baseBackoff, maxBackoff and maxRetries are the rotator's tunables:
	// MAX_RETRIES_PER_CREDENTIAL, BACKOFF_BASE_SECONDS and
	// BACKOFF_MAX_SECONDS, configured at construction time.
	baseBackoff time.Duration
	maxBackoff  time.Duration
	maxRetries  int

	cursor int
}

// NewRotator builds a Rotator pacing calls at callsPerMinute, with at most
// one in-flight call at a time. baseBackoff and maxBackoff bound the
// exponential backoff applied on capacity errors; maxRetries caps the
// number of attempts against a single credential (MAX_RETRIES_PER_CREDENTIAL)
// before moving on. Non-positive values fall back to sane defaults.
func NewRotator(set *Set, store *RotationStore, callsPerMinute int, baseBackoff, maxBackoff time.Duration, maxRetries int) *Rotator {
	limiter := ratelimit.NewRateLimiter(1, callsPerMinute)
	if baseBackoff <= 0 {
		baseBackoff = defaultBaseBackoff
	}
	if maxBackoff <= 0 {
		maxBackoff = defaultMaxBackoff
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Rotator{
		Set:         set,
		Store:       store,
		Limiter:     limiter,
		baseBackoff: baseBackoff,
		maxBackoff:  maxBackoff,
		maxRetries:  maxRetries,
	}
}

// next returns the first non-exhausted credential at or after the cursor,
// advancing the cursor past it, or false once the end of the pool is reached
// without finding one.
func (r *Rotator) next(now time.Time) (Credential, bool) {
	for idx := r.cursor; idx < len(r.Set.Credentials); idx++ {
		cred := r.Set.Credentials[idx]
		if !r.Store.IsExhausted(cred.Name, now) {
			r.cursor = idx + 1
			return cred, true
		}
	}
	r.cursor = len(r.Set.Credentials)
	return Credential{}, false
}

// Invoke runs call against the rotation pool. On CAPACITY_EXHAUSTED it sleeps
// and retries the SAME credential, up to maxRetries attempts, with backoff
// min(baseBackoff*2^attempt, maxBackoff). On QUOTA_EXHAUSTED it records the
// credential's reset time and moves to the next credential. On AUTH_ERROR or
// UNKNOWN it records the error and also moves to the next credential.
// KindParse and KindModelMismatch are not recoverable by rotation and fail
// immediately. Every call walks the pool in order from its first credential,
// and each credential is visited at most once per call.
func (r *Rotator) Invoke(ctx context.Context, call Invoker) (*Outcome, error) {
	n := len(r.Set.Credentials)
	if n == 0 {
		return nil, werrors.New(werrors.KindQuota, "credential: no credentials configured")
	}

	var errs []string
	firstName := ""
	attempts := 0
	r.cursor = 0

credLoop:
	for visited := 0; visited < n; visited++ {
		cred, ok := r.next(time.Now())
		if !ok {
			break
		}
		if firstName == "" {
			firstName = cred.Name
		}

		for retry := 0; retry < r.maxRetries; retry++ {
			if err := r.Limiter.Acquire(ctx, "default"); err != nil {
				return nil, werrors.Wrap(werrors.KindCancelled, "credential: waiting for rate limiter", err)
			}
			attempts++
			result, err := call(ctx, cred.Secret)
			r.Limiter.Release()

			if err == nil {
				return &Outcome{
					Result:           result,
					CredentialUsed:   cred.Name,
					RotationOccurred: cred.Name != firstName,
					Attempts:         attempts,
				}, nil
			}
			errs = append(errs, fmt.Sprintf("%s: %v", cred.Name, err))

			kind, reset := werrors.ClassifyErr(err)
			switch kind {
			case werrors.KindCapacity:
				wait := min(r.baseBackoff*time.Duration(1<<uint(retry+1)), r.maxBackoff)
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				continue // retry the same credential
			case werrors.KindQuota:
				if markErr := r.Store.MarkExhausted(cred.Name, time.Now().Add(reset)); markErr != nil {
					return nil, fmt.Errorf("credential: marking %s exhausted: %w", cred.Name, markErr)
				}
				continue credLoop
			case werrors.KindAuth, werrors.KindUnknown:
				continue credLoop
			default: // KindParse, KindModelMismatch, KindTimeout, KindCancelled
				return nil, err
			}
		}
		// Retries against this credential exhausted without a rotation
		// signal (repeated capacity failures); move on to the next one.
		continue credLoop
	}

	return nil, werrors.New(werrors.KindUnknown,
		fmt.Sprintf("credential: all credentials exhausted after %d attempts (%s)", attempts, strings.Join(errs, "; ")))
}
