// Package display renders lookup results for the terminal.
package display

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"asutenki/internal/advisory"
	"asutenki/lookup"
)

const (
	Title       = "🌤️ ASU - 天気予報アプリ"
	Attribution = "📊 Data provided by Open-Meteo.com"

	rule = "────────────────────────────────"
)

// Render writes a lookup result. Failed and rejected runs render only their message.
func Render(w io.Writer, r *lookup.Result) error {
	if r == nil {
		return fmt.Errorf("nothing to render")
	}
	if r.Failure != nil || r.Report == nil {
		msg := "❌ エラーが発生しました"
		if r.Failure != nil {
			msg = r.Failure.Message
		}
		_, err := fmt.Fprintln(w, msg)
		return err
	}

	var b strings.Builder
	writeReport(&b, r.Report)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeReport(b *strings.Builder, report *lookup.Report) {
	loc := report.Location.String()

	fmt.Fprintf(b, "✅ %s の天気を取得します\n", loc)
	fmt.Fprintln(b, rule)
	fmt.Fprintf(b, "📍 %s\n\n", loc)

	c := report.Current
	fmt.Fprintln(b, "🌡️ 現在の天気")
	metric(b, "天気", c.Weather.String())
	metric(b, "気温", number(c.TemperatureC)+"°C")
	metric(b, "湿度", number(c.HumidityPct)+"%")
	metric(b, "風速", strconv.FormatFloat(c.WindSpeedMs, 'f', 1, 64)+" m/s")
	fmt.Fprintln(b, rule)

	fmt.Fprintln(b, "📅 今日・明日の予報")
	for _, day := range report.Days {
		fmt.Fprintf(b, "\n%s (%s)\n", day.Label, day.Day.Date)
		metric(b, "天気", day.Weather.String())
		metric(b, "最高気温", number(day.Day.TempMaxC)+"°C")
		metric(b, "最低気温", number(day.Day.TempMinC)+"°C")
		metric(b, "降水量", number(day.Day.PrecipitationMm)+" mm")
		for _, adv := range day.Advisories {
			fmt.Fprintf(b, "  %s %s\n", severityMark(adv.Severity), adv.Text)
		}
	}
	fmt.Fprintln(b, rule)
	fmt.Fprintln(b, Attribution)
}

func metric(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "  %s: %s\n", name, value)
}

// number prints a value the way the API reported it, without padding zeros
func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func severityMark(s advisory.Severity) string {
	if s == advisory.Info {
		return "ℹ️"
	}
	return "⚠️"
}

// Usage writes the help text
func Usage(w io.Writer) {
	fmt.Fprintln(w, Title)
	fmt.Fprintln(w, "今日と明日の天気をチェックしましょう！")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "💡 使い方")
	fmt.Fprintln(w, "1. 都市名を英語で入力（Tokyo, Osaka など）")
	fmt.Fprintln(w, "2. または「クイック選択」から選ぶ")
	fmt.Fprintln(w, "3. Enter キーで天気を取得")
	fmt.Fprintln(w, "4. 現在の天気と今日・明日の予報が表示されます")
}

// QuickSelect writes the numbered quick-select menu
func QuickSelect(w io.Writer, cities []string) {
	fmt.Fprintln(w, "クイック選択:")
	for i, c := range cities {
		fmt.Fprintf(w, "  %d) %s\n", i+1, c)
	}
}

// Narration writes an AI summary below a report
func Narration(w io.Writer, text string) {
	fmt.Fprintf(w, "\n🗣️ %s\n", strings.TrimSpace(text))
}
