package clock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrBadTimezone is returned for strings that are neither a POSIX TZ
// value nor a name known to the system zoneinfo database.
var ErrBadTimezone = errors.New("invalid timezone")

// LoadLocation compiles tz into a *time.Location. POSIX strings such as
// "ICT-7" or "CET-1CEST,M3.5.0,M10.5.0/3" are preferred; IANA names like
// "Asia/Ho_Chi_Minh" are accepted as a fallback.
func LoadLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return nil, fmt.Errorf("%q: %w", tz, ErrBadTimezone)
	}

	std, off, perr := parsePOSIX(tz)
	if perr == nil {
		loc, err := time.LoadLocationFromTZData(tz, tzif(tz, std, off))
		if err != nil {
			return nil, fmt.Errorf("%q: %w", tz, errors.Join(ErrBadTimezone, err))
		}
		return loc, nil
	}

	if loc, err := time.LoadLocation(tz); err == nil {
		return loc, nil
	}
	return nil, fmt.Errorf("%q: %w", tz, errors.Join(ErrBadTimezone, perr))
}

// tzif builds a TZif v2 blob with a single zone type and no transitions.
// Every instant then resolves through the footer, which the runtime
// evaluates as a POSIX TZ rule.
func tzif(tz, abbr string, utoff int) []byte {
	var buf bytes.Buffer

	block := func() {
		buf.WriteString("TZif")
		buf.WriteByte('2')
		buf.Write(make([]byte, 15))
		// isutcnt, isstdcnt, leapcnt, timecnt, typecnt, charcnt
		for _, n := range []uint32{0, 0, 0, 0, 1, uint32(len(abbr) + 1)} {
			_ = binary.Write(&buf, binary.BigEndian, n)
		}
		_ = binary.Write(&buf, binary.BigEndian, int32(utoff))
		buf.WriteByte(0) // isdst
		buf.WriteByte(0) // abbrind
		buf.WriteString(abbr)
		buf.WriteByte(0)
	}

	block() // v1 data
	block() // v2 data, identical without transitions
	buf.WriteString("\n" + tz + "\n")
	return buf.Bytes()
}

// parsePOSIX validates a POSIX TZ string and returns the standard zone
// abbreviation and its offset in seconds east of UTC.
func parsePOSIX(s string) (string, int, error) {
	std, rest, err := tzName(s)
	if err != nil {
		return "", 0, err
	}
	off, rest, err := tzOffset(rest, 24)
	if err != nil {
		return "", 0, fmt.Errorf("std offset: %w", err)
	}
	if rest == "" {
		return std, -off, nil
	}

	_, rest, err = tzName(rest)
	if err != nil {
		return "", 0, fmt.Errorf("dst name: %w", err)
	}
	if rest != "" && rest[0] != ',' {
		if _, rest, err = tzOffset(rest, 24); err != nil {
			return "", 0, fmt.Errorf("dst offset: %w", err)
		}
	}
	if rest == "" {
		return std, -off, nil
	}

	rules := strings.Split(rest[1:], ",")
	if rest[0] != ',' || len(rules) != 2 {
		return "", 0, errors.New("expected two transition rules")
	}
	for _, r := range rules {
		if err := tzRule(r); err != nil {
			return "", 0, err
		}
	}
	return std, -off, nil
}

func tzName(s string) (string, string, error) {
	if strings.HasPrefix(s, "<") {
		end := strings.IndexByte(s, '>')
		if end < 2 {
			return "", "", errors.New("unterminated quoted zone name")
		}
		name := s[1:end]
		for _, r := range name {
			if !isAlpha(r) && !isDigit(r) && r != '+' && r != '-' {
				return "", "", fmt.Errorf("bad character %q in zone name", r)
			}
		}
		return name, s[end+1:], nil
	}

	i := 0
	for i < len(s) && isAlpha(rune(s[i])) {
		i++
	}
	if i < 3 {
		return "", "", errors.New("zone name needs at least three letters")
	}
	return s[:i], s[i:], nil
}

// tzOffset parses [+-]hh[:mm[:ss]] and returns seconds.
func tzOffset(s string, maxHours int) (int, string, error) {
	sign := 1
	if s != "" && (s[0] == '+' || s[0] == '-') {
		if s[0] == '-' {
			sign = -1
		}
		s = s[1:]
	}

	h, s, ok := digits(s, 3)
	if !ok {
		return 0, "", errors.New("missing hours")
	}
	if h > maxHours {
		return 0, "", fmt.Errorf("hour %d out of range", h)
	}
	total := h * 3600

	for _, unit := range []int{60, 1} {
		if s == "" || s[0] != ':' {
			break
		}
		n, rest, ok := digits(s[1:], 2)
		if !ok || n > 59 {
			return 0, "", errors.New("bad minutes or seconds")
		}
		total += n * unit
		s = rest
	}
	return sign * total, s, nil
}

// tzRule validates Jn, n or Mm.w.d, with an optional /time.
func tzRule(r string) error {
	date, tm, hasTime := strings.Cut(r, "/")
	if hasTime {
		if _, rest, err := tzOffset(tm, 167); err != nil || rest != "" {
			return fmt.Errorf("bad rule time %q", tm)
		}
	}

	switch {
	case strings.HasPrefix(date, "M"):
		f := strings.Split(date[1:], ".")
		if len(f) != 3 {
			return fmt.Errorf("bad rule %q", r)
		}
		limits := []int{12, 5, 6}
		for i, v := range f {
			n, rest, ok := digits(v, 2)
			if !ok || rest != "" || n > limits[i] || (i < 2 && n == 0) {
				return fmt.Errorf("bad rule %q", r)
			}
		}
	case strings.HasPrefix(date, "J"):
		n, rest, ok := digits(date[1:], 3)
		if !ok || rest != "" || n < 1 || n > 365 {
			return fmt.Errorf("bad rule %q", r)
		}
	default:
		n, rest, ok := digits(date, 3)
		if !ok || rest != "" || n > 365 {
			return fmt.Errorf("bad rule %q", r)
		}
	}
	return nil
}

func digits(s string, max int) (int, string, bool) {
	n, i := 0, 0
	for i < len(s) && i < max && isDigit(rune(s[i])) {
		n = n*10 + int(s[i]-'0')
		i++
	}
	return n, s[i:], i > 0
}

func isAlpha(r rune) bool { return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }
func isDigit(r rune) bool { return r >= '0' && r <= '9' }
