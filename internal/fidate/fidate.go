// Package fidate converts calendar dates to and from the forms Fidelity's
// endpoints exchange. All dates are interpreted at midnight in the fixed
// reference timezone America/New_York; the epoch encoding is DST-aware, not a
// fixed UTC offset.
package fidate

import (
	"fmt"
	"time"
	// Compile the IANA zone database in so America/New_York resolves
	// regardless of the host's tzdata installation.
	_ "time/tzdata"

	"cloud.google.com/go/civil"

	"github.com/rumor-ml/commons.systems/fidelity/internal/domain"
)

// ZoneName is the fixed reference timezone. Not configurable.
const ZoneName = "America/New_York"

// historyDateLayout is the short date format used in transaction history
// responses, e.g. "Nov-28-2025".
const historyDateLayout = "Jan-2-2006"

var zone = mustLoadZone()

func mustLoadZone() *time.Location {
	loc, err := time.LoadLocation(ZoneName)
	if err != nil {
		// Unreachable with time/tzdata compiled in.
		panic(fmt.Sprintf("load %s: %v", ZoneName, err))
	}
	return loc
}

// Zone returns the reference timezone location.
func Zone() *time.Location { return zone }

// EpochSeconds returns Unix epoch seconds for d interpreted as midnight in
// the reference timezone. Total over all representable dates.
func EpochSeconds(d civil.Date) int64 {
	return d.In(zone).Unix()
}

// ParseHistoryDate parses the short history date format ("Nov-28-2025").
// A string that does not match yields a format error.
func ParseHistoryDate(s string) (civil.Date, error) {
	t, err := time.ParseInLocation(historyDateLayout, s, zone)
	if err != nil {
		return civil.Date{}, domain.FormatError(fmt.Sprintf("unexpected history date %q", s), err)
	}
	return civil.DateOf(t), nil
}
