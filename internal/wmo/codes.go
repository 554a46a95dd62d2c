// Package wmo maps WMO weather interpretation codes, as returned by Open-Meteo,
// to display labels.
package wmo

import "sort"

// Label is the icon and Japanese text shown for a weather code
type Label struct {
	Icon string
	Text string
}

// String renders the label as "<icon> <text>"
func (l Label) String() string {
	return l.Icon + " " + l.Text
}

// Unknown is returned for codes outside the table
var Unknown = Label{Icon: "☁️", Text: "不明"}

var labels = map[int]Label{
	0:  {"☀️", "快晴"},
	1:  {"🌤️", "晴れ"},
	2:  {"⛅", "曇り時々晴れ"},
	3:  {"☁️", "曇り"},
	45: {"🌫️", "霧"},
	48: {"🌫️", "霧（霜）"},
	51: {"🌧️", "小雨"},
	53: {"🌧️", "雨"},
	55: {"🌧️", "大雨"},
	61: {"🌧️", "小雨"},
	63: {"🌧️", "雨"},
	65: {"🌧️", "大雨"},
	71: {"🌨️", "小雪"},
	73: {"🌨️", "雪"},
	75: {"🌨️", "大雪"},
	80: {"🌦️", "にわか雨"},
	81: {"🌦️", "にわか雨"},
	82: {"🌦️", "激しいにわか雨"},
	95: {"⛈️", "雷雨"},
	96: {"⛈️", "雷雨（雹）"},
	99: {"⛈️", "激しい雷雨"},
}

// LabelFor returns the label for a code, or Unknown
func LabelFor(code int) Label {
	if l, ok := labels[code]; ok {
		return l
	}
	return Unknown
}

// Known reports whether the code has its own label
func Known(code int) bool {
	_, ok := labels[code]
	return ok
}

// Codes returns every mapped code in ascending order
func Codes() []int {
	codes := make([]int, 0, len(labels))
	for code := range labels {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}
