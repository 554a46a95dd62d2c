// Package advisory derives short recommendations from a day's forecast.
package advisory

import "asutenki/api"

// Kind identifies an advisory
type Kind int

const (
	CarryUmbrella Kind = iota
	HeatWarning
	ColdWarning
)

func (k Kind) String() string {
	switch k {
	case CarryUmbrella:
		return "carry_umbrella"
	case HeatWarning:
		return "heat_warning"
	case ColdWarning:
		return "cold_warning"
	default:
		return "unknown"
	}
}

// Severity controls how an advisory is presented
type Severity int

const (
	Warning Severity = iota
	Info
)

func (s Severity) String() string {
	if s == Info {
		return "info"
	}
	return "warning"
}

// Advisory is a single recommendation for a day
type Advisory struct {
	Kind     Kind
	Severity Severity
	Text     string
}

// Thresholds; each comparison is strict
const (
	UmbrellaPrecipitationMm = 5.0
	HeatMaxTempC            = 30.0
	ColdMinTempC            = 5.0
)

// For returns the advisories that apply to a day, in the order
// umbrella, heat, cold. The result is empty when none apply.
func For(day api.Day) []Advisory {
	var out []Advisory

	if day.PrecipitationMm > UmbrellaPrecipitationMm {
		out = append(out, Advisory{Kind: CarryUmbrella, Severity: Warning, Text: "☔ 傘を持って行きましょう"})
	}
	if day.TempMaxC > HeatMaxTempC {
		out = append(out, Advisory{Kind: HeatWarning, Severity: Warning, Text: "🌞 暑いので熱中症に注意"})
	}
	if day.TempMinC < ColdMinTempC {
		out = append(out, Advisory{Kind: ColdWarning, Severity: Info, Text: "🧥 寒いので暖かい服装で"})
	}

	return out
}
