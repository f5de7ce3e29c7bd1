package payload

import (
	"math"
	"strconv"
	"strings"

	"github.com/harrylevesque/qrgen/internal/models"
)

func encodeEmail(e models.EmailMessage) string {
	return "mailto:" + e.To + "?subject=" + escapeComponent(e.Subject) + "&body=" + escapeComponent(e.Body)
}

func encodeSMS(m models.TextMessage) string {
	return "sms:" + m.Number + "?body=" + escapeComponent(m.Message)
}

// profileBases maps a platform to the URL prefix its usernames hang off.
var profileBases = map[string]string{
	"instagram": "https://instagram.com/",
	"twitter":   "https://twitter.com/",
	"linkedin":  "https://linkedin.com/in/",
	"facebook":  "https://facebook.com/",
	"tiktok":    "https://tiktok.com/@",
	"youtube":   "https://youtube.com/@",
}

// Platforms returns the supported social platforms in a stable order.
func Platforms() []string {
	return []string{"instagram", "twitter", "linkedin", "facebook", "tiktok", "youtube"}
}

func encodeSocial(s models.SocialProfile) string {
	if base, ok := profileBases[strings.ToLower(strings.TrimSpace(s.Platform))]; ok {
		return base + s.Username
	}
	return s.URL
}

// encodeGeo yields "" unless both coordinates are present, finite and in range.
func encodeGeo(g models.GeoLocation) string {
	if g.Latitude == nil || g.Longitude == nil {
		return ""
	}
	lat, lon := *g.Latitude, *g.Longitude
	if !finite(lat) || !finite(lon) || math.Abs(lat) > 90 || math.Abs(lon) > 180 {
		return ""
	}
	return "geo:" + strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lon, 'f', -1, 64)
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
