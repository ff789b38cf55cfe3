// Package units formats byte counts for display.
package units

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

//nolint:gochecknoglobals
var (
	base10UnitPrefixes = []string{"", "K", "M", "G", "T"}
	base2UnitPrefixes  = []string{"", "Ki", "Mi", "Gi", "Ti"}
)

// BytesStringBase2Envar selects base-2 suffixes for BytesString when set to a true value.
const BytesStringBase2Envar = "SHELLFS_BYTES_STRING_BASE_2"

func niceNumber(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.1f", f), "0"), ".")
}

func toDecimalUnitString(f, thousand float64, prefixes []string, suffix string) string {
	for i := range prefixes {
		if f < 0.9*thousand {
			return fmt.Sprintf("%v %v%v", niceNumber(f), prefixes[i], suffix)
		}

		f /= thousand
	}

	return fmt.Sprintf("%v %v%v", niceNumber(f), prefixes[len(prefixes)-1], suffix)
}

// BytesStringBase10 formats the given value as bytes with base-10 suffixes (KB, MB, GB, ...).
func BytesStringBase10(b int64) string {
	//nolint:mnd
	return toDecimalUnitString(float64(b), 1000, base10UnitPrefixes, "B")
}

// BytesStringBase2 formats the given value as bytes with base-2 suffixes (KiB, MiB, GiB, ...).
func BytesStringBase2(b int64) string {
	//nolint:mnd
	return toDecimalUnitString(float64(b), 1024.0, base2UnitPrefixes, "B")
}

// BytesString formats the given value as bytes, base-2 when BytesStringBase2Envar is set.
func BytesString(b int64) string {
	if v, _ := strconv.ParseBool(os.Getenv(BytesStringBase2Envar)); v {
		return BytesStringBase2(b)
	}

	return BytesStringBase10(b)
}

// BytesPerSecondsString formats transfer speed with base-10 suffixes (KB/s, MB/s, ...).
func BytesPerSecondsString(bps float64) string {
	//nolint:mnd
	return toDecimalUnitString(bps, 1000, base10UnitPrefixes, "B/s")
}
