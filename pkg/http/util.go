package http

import (
	"time"

	xutil "CANProbe/pkg/util"
)

// Thin re-exports so handlers can parse query params without importing
// pkg/util directly.

func ParseIntDefault(s string, def int) int { return xutil.ParseIntDefault(s, def) }

// ParseTime tries RFC3339, RFC3339Nano and unix seconds.
func ParseTime(s string) (time.Time, bool) { return xutil.ParseTime(s) }

func ParseTimeDefault(s string, def time.Time) time.Time { return xutil.ParseTimeDefault(s, def) }
