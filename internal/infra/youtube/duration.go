package youtube

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// parseISODuration converts an ISO 8601 duration such as "PT3M25S"
// into whole seconds. Day components appear on long livestream
// archives and are honored.
func parseISODuration(s string) (int, error) {
	if s == "" {
		return 0, errors.New("empty duration")
	}

	rest, ok := strings.CutPrefix(s, "P")
	if !ok {
		return 0, errors.Newf("malformed duration %q", s)
	}

	var total int
	inTime := false
	num := ""
	for _, r := range rest {
		switch {
		case r >= '0' && r <= '9':
			num += string(r)
		case r == 'T':
			inTime = true
		default:
			if num == "" {
				return 0, errors.Newf("malformed duration %q", s)
			}
			n, err := strconv.Atoi(num)
			if err != nil {
				return 0, errors.Wrapf(err, "malformed duration %q", s)
			}
			num = ""
			switch {
			case r == 'D' && !inTime:
				total += n * 86400
			case r == 'H' && inTime:
				total += n * 3600
			case r == 'M' && inTime:
				total += n * 60
			case r == 'S' && inTime:
				total += n
			default:
				return 0, errors.Newf("unsupported duration unit %q in %q", r, s)
			}
		}
	}
	if num != "" {
		return 0, errors.Newf("malformed duration %q", s)
	}

	return total, nil
}
