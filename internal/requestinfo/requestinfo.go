//
//  internal/requestinfo/requestinfo.go
//
//  Lightweight types and helpers that collect per-request metadata
//  (user-agent fingerprint, client IP, optional geolocation, and
//  timestamp).  These structs are inert.  They contain no pointers to
//  handles or large buffers, so they are safe to log.
//
//  Dependencies
//  • github.com/avct/uasurfer         (UA parsing)
//  • github.com/oschwald/geoip2-golang (MaxMind lookup, optional)
//

package requestinfo

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	surfer "github.com/avct/uasurfer"
	"github.com/oschwald/geoip2-golang"
)

//
//  -----------------------------
//  Struct definitions
//  -----------------------------
//

// UA holds the parsed user-agent properties used in access logs and
// templates.
type UA struct {
	Browser     string // "Chrome", "Firefox", "Safari", etc.
	Version     string // "124.0.6367"
	OS          string // "MacOSX", "Windows", "Android", "iOS", etc.
	OSVersion   string // "14.5", "11", "10.0"
	Device      string // "Desktop", "Mobile", "Tablet", or "Other"
	IsBot       bool
	PrimaryLang string // First tag from Accept-Language ("pl", "en-gb", ...)
}

// Geo holds IP-based geolocation hints.  Empty without a database or when
// the database has no match.
type Geo struct {
	CountryISO string // "PL", "DE", ...
	City       string // "Wrocław", ...
}

// Info is attached to each request by Enrich.
type Info struct {
	IP        net.IP
	UA        UA
	Geo       Geo
	Timestamp time.Time
}

// ClientKey is the rate-limit identity: the IP string, or "unknown".
func (i *Info) ClientKey() string {
	if i == nil || i.IP == nil {
		return "unknown"
	}
	return i.IP.String()
}

//
//  -----------------------------
//  Geo lookup
//  -----------------------------
//

// GeoDB wraps a MaxMind City database.  A nil *GeoDB is valid and finds
// nothing, so callers need no branches when geo.db_path is unset.
type GeoDB struct {
	r *geoip2.Reader
}

// OpenGeo opens the GeoLite2-City database at path.  An empty path returns
// (nil, nil).
func OpenGeo(path string) (*GeoDB, error) {
	if path == "" {
		return nil, nil
	}
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("requestinfo: open geo db: %w", err)
	}
	return &GeoDB{r: r}, nil
}

// Lookup resolves ip.  Errors and misses yield an empty Geo.
func (g *GeoDB) Lookup(ip net.IP) Geo {
	if g == nil || ip == nil {
		return Geo{}
	}
	rec, err := g.r.City(ip)
	if err != nil {
		return Geo{}
	}
	city := rec.City.Names["pl"]
	if city == "" {
		city = rec.City.Names["en"]
	}
	return Geo{CountryISO: rec.Country.IsoCode, City: city}
}

// Close releases the database.
func (g *GeoDB) Close() error {
	if g == nil {
		return nil
	}
	return g.r.Close()
}

//
//  -----------------------------
//  Context helpers
//  -----------------------------
//

type ctxKey struct{} // unexported, collision-proof

// FromContext returns the pointer previously stored by Enrich.  It returns
// nil if the middleware has not run.
func FromContext(ctx context.Context) *Info {
	v, _ := ctx.Value(ctxKey{}).(*Info)
	return v
}

// WithInfo stores info in ctx.  Tests use it to fake the middleware.
func WithInfo(ctx context.Context, info *Info) context.Context {
	return context.WithValue(ctx, ctxKey{}, info)
}

//
//  -----------------------------
//  UA parsing
//  -----------------------------
//

// ParseUA converts raw headers into a UA struct.
func ParseUA(uaHeader, acceptLang string) UA {
	u := surfer.Parse(uaHeader)

	out := UA{
		Browser:     strings.TrimPrefix(u.Browser.Name.String(), "Browser"),
		Version:     versionString(u.Browser.Version),
		OS:          strings.TrimPrefix(u.OS.Name.String(), "OS"),
		OSVersion:   versionString(u.OS.Version),
		IsBot:       u.IsBot(),
		PrimaryLang: primaryLang(acceptLang),
	}

	switch u.DeviceType {
	case surfer.DeviceComputer:
		out.Device = "Desktop"
	case surfer.DeviceTablet:
		out.Device = "Tablet"
	case surfer.DevicePhone, surfer.DeviceWearable:
		out.Device = "Mobile"
	default:
		out.Device = "Other"
	}
	return out
}

// versionString renders 17.0.0 → "17", 17.3.0 → "17.3", 17.3.1 → "17.3.1",
// and the zero version as "".
func versionString(v surfer.Version) string {
	switch {
	case v.Major == 0 && v.Minor == 0 && v.Patch == 0:
		return ""
	case v.Patch != 0:
		return strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor) + "." + strconv.Itoa(v.Patch)
	case v.Minor != 0:
		return strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor)
	default:
		return strconv.Itoa(v.Major)
	}
}

// primaryLang extracts the first language tag before any ";q=" rule.
func primaryLang(al string) string {
	if al == "" {
		return ""
	}
	tag, _, _ := strings.Cut(al, ",")
	tag, _, _ = strings.Cut(tag, ";")
	return strings.ToLower(strings.TrimSpace(tag))
}
