package sdk

import (
	"encoding/json"
	"fmt"
)

// Interval is an SDK version range. The zero value is [Any].
type Interval struct {
	min     uint64
	max     uint64
	bounded bool
}

// AtLeast returns the interval [min, ∞).
func AtLeast(min uint64) Interval {
	return Interval{min: min}
}

// Between returns the interval [min, max].
func Between(min, max uint64) Interval {
	return Interval{min: min, max: max, bounded: true}
}

// Any returns the unconstrained interval [0, ∞), the identity of [Intersect].
func Any() Interval {
	return Interval{}
}

// Min returns the minimum compatible version.
func (i Interval) Min() uint64 { return i.min }

// Max returns the maximum compatible version and whether one is set.
func (i Interval) Max() (uint64, bool) { return i.max, i.bounded }

// Empty reports whether no version satisfies the interval.
func (i Interval) Empty() bool { return i.bounded && i.max < i.min }

// String formats the interval as ">=min" or "min..max".
func (i Interval) String() string {
	if !i.bounded {
		return fmt.Sprintf(">=%d", i.min)
	}
	return fmt.Sprintf("%d..%d", i.min, i.max)
}

// Intersect returns the interval satisfying both a and b.
// A present maximum always wins over an absent one.
func Intersect(a, b Interval) Interval {
	out := Interval{min: max(a.min, b.min)}
	switch {
	case a.bounded && b.bounded:
		out.max, out.bounded = min(a.max, b.max), true
	case a.bounded:
		out.max, out.bounded = a.max, true
	case b.bounded:
		out.max, out.bounded = b.max, true
	}
	return out
}

// Union returns the looser of two mutually exclusive intervals. The result
// is bounded above only when both inputs are.
func Union(a, b Interval) Interval {
	out := Interval{min: min(a.min, b.min)}
	if a.bounded && b.bounded {
		out.max, out.bounded = max(a.max, b.max), true
	}
	return out
}

// IntersectAll folds [Intersect] over ivs, starting from [Any].
func IntersectAll(ivs ...Interval) Interval {
	out := Any()
	for _, iv := range ivs {
		out = Intersect(out, iv)
	}
	return out
}

type intervalJSON struct {
	MinSdkVersion uint64  `json:"min_sdk_version"`
	MaxSdkVersion *uint64 `json:"max_sdk_version,omitempty"`
}

// MarshalJSON encodes the interval in lock-file form.
func (i Interval) MarshalJSON() ([]byte, error) {
	out := intervalJSON{MinSdkVersion: i.min}
	if i.bounded {
		m := i.max
		out.MaxSdkVersion = &m
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the lock-file form written by MarshalJSON.
func (i *Interval) UnmarshalJSON(data []byte) error {
	var in intervalJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.MaxSdkVersion != nil {
		*i = Between(in.MinSdkVersion, *in.MaxSdkVersion)
	} else {
		*i = AtLeast(in.MinSdkVersion)
	}
	return nil
}
