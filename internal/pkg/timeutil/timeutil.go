package timeutil

import "time"

func NowUnix() int64 {
	return time.Now().Unix()
}

// Clock returns fn, or time.Now when fn is nil.
func Clock(fn func() time.Time) func() time.Time {
	if fn == nil {
		return time.Now
	}
	return fn
}
