package runner

import "time"

// BackoffPolicy yields the pause before retrying after the given attempt
// number (1-based). Policies are plain values so tests can inject a
// zero-duration policy.
type BackoffPolicy func(attempt int) time.Duration

// ConstantBackoff pauses the same fixed interval between every attempt
func ConstantBackoff(interval time.Duration) BackoffPolicy {
	return func(int) time.Duration {
		return interval
	}
}

// LinearBackoff pauses attempt × interval
func LinearBackoff(interval time.Duration) BackoffPolicy {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * interval
	}
}

// ExponentialBackoff doubles the pause after each attempt, capped at max
func ExponentialBackoff(initial, max time.Duration) BackoffPolicy {
	return func(attempt int) time.Duration {
		d := initial
		for i := 1; i < attempt; i++ {
			d *= 2
			if d >= max {
				return max
			}
		}
		if d > max {
			return max
		}
		return d
	}
}
