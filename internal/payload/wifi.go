package payload

import (
	"strings"

	"github.com/harrylevesque/qrgen/internal/models"
)

func encodeWiFi(w models.WiFiNetwork) string {
	hidden := "false"
	if w.Hidden {
		hidden = "true"
	}
	var b strings.Builder
	b.WriteString("WIFI:T:")
	b.WriteString(escapeWiFi(string(NormalizeSecurity(w.Security, w.Password))))
	b.WriteString(";S:")
	b.WriteString(escapeWiFi(w.SSID))
	b.WriteString(";P:")
	b.WriteString(escapeWiFi(w.Password))
	b.WriteString(";H:")
	b.WriteString(hidden)
	b.WriteString(";;")
	return b.String()
}

// NormalizeSecurity maps free-form security input onto WPA, WEP or nopass.
// An unset mode is WPA when a password is present. Unrecognised values are
// passed through so scanners that know them still can.
func NormalizeSecurity(s models.WiFiSecurity, password string) models.WiFiSecurity {
	v := strings.TrimSpace(string(s))
	switch u := strings.ToUpper(v); {
	case u == "":
		if password == "" {
			return models.SecurityNoPass
		}
		return models.SecurityWPA
	case strings.HasPrefix(u, "WPA"):
		return models.SecurityWPA
	case u == "WEP":
		return models.SecurityWEP
	case u == "NOPASS" || u == "NONE" || u == "OPEN":
		return models.SecurityNoPass
	default:
		return models.WiFiSecurity(v)
	}
}
