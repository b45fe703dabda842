package types

import (
	"fmt"
	"strconv"
)

// Bytes is a uint64 wrapper representing a size in bytes.
type Bytes uint64

// KiB converts a kilobyte count as printed by /proc (1024 base) to Bytes.
func KiB(n uint64) Bytes { return Bytes(n << 10) }

// Humanized returns a human-readable string with automatic unit (B, KB, MB, GB, TB).
func (b Bytes) Humanized() string {
	v := float64(b)
	switch {
	case b >= 1<<40:
		return fmt.Sprintf("%.2f TB", v/(1<<40))
	case b >= 1<<30:
		return fmt.Sprintf("%.2f GB", v/(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.2f MB", v/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.2f KB", v/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// Compact is the narrow column form used by the process table: whole
// kilobytes below 100 MiB, one-decimal megabytes or gigabytes above.
func (b Bytes) Compact() string {
	switch {
	case b >= 100<<30:
		return strconv.FormatFloat(b.GB(), 'f', 0, 64) + "G"
	case b >= 10<<30:
		return strconv.FormatFloat(b.GB(), 'f', 1, 64) + "G"
	case b >= 100<<20:
		return strconv.FormatFloat(b.MB(), 'f', 0, 64) + "M"
	default:
		return strconv.FormatUint(uint64(b)>>10, 10) + "K"
	}
}

// KB returns the number of kilobytes (1024 base).
func (b Bytes) KB() float64 { return float64(b) / 1024 }

// MB returns the number of megabytes (1024 base).
func (b Bytes) MB() float64 { return float64(b) / (1024 * 1024) }

// GB returns the number of gigabytes (1024 base).
func (b Bytes) GB() float64 { return float64(b) / (1024 * 1024 * 1024) }

// ToUint64 returns the raw byte count.
func (b Bytes) ToUint64() uint64 { return uint64(b) }
