// SPDX-License-Identifier: EPL-2.0

// Package cli renders terminal output for the ostextender command:
// styled errors, version banners, and per-track loop reports.
package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/henry-sm/ost-extender-musicbee/analysis"
)

// interpretConfidence describes how much to trust a found loop.
func interpretConfidence(c float64) string {
	switch {
	case c >= 0.8:
		return "strong match, safe to loop unattended"
	case c >= 0.5:
		return "plausible match, worth a listen"
	case c > 0:
		return "weak match, estimated points"
	default:
		return "no match found"
	}
}

// FormatTimestamp renders seconds as M:SS.mmm for report output.
func FormatTimestamp(seconds float64) string {
	m := int(seconds) / 60
	s := seconds - float64(m*60)
	return fmt.Sprintf("%d:%06.3f", m, s)
}

// WriteLoopReport writes a styled per-track report for an analysis
// result.
func WriteLoopReport(w io.Writer, trackPath string, res *analysis.LoopResult) {
	fmt.Fprintln(w, TitleStyle.Render(filepath.Base(trackPath)))

	statusStyle := OKStyle
	if res.Status != analysis.StatusSuccess {
		statusStyle = WarnStyle
	}

	row := func(key, value string) {
		fmt.Fprintf(w, "  %s %s\n", KeyStyle.Render(key+":"), value)
	}

	row("Status", statusStyle.Render(res.Status.String()))
	row("Method", ValueStyle.Render(res.Method.String()))
	row("Loop start", ValueStyle.Render(FormatTimestamp(res.LoopStart))+
		KeyStyle.Render(fmt.Sprintf("  (sample %d)", res.LoopStartSample)))
	row("Loop end", ValueStyle.Render(FormatTimestamp(res.LoopEnd))+
		KeyStyle.Render(fmt.Sprintf("  (sample %d)", res.LoopEndSample)))
	row("Loop length", ValueStyle.Render(fmt.Sprintf("%.3f s", res.LoopEnd-res.LoopStart)))
	row("Confidence", fmt.Sprintf("%s %s",
		ValueStyle.Render(fmt.Sprintf("%.0f%%", res.Confidence*100)),
		KeyStyle.Render("("+interpretConfidence(res.Confidence)+")")))

	fmt.Fprintln(w, "  "+confidenceBar(res.Confidence, 30))
	fmt.Fprintln(w)
}

// confidenceBar renders a fixed-width gauge for the confidence value.
func confidenceBar(confidence float64, width int) string {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	filled := int(confidence * float64(width))

	style := OKStyle
	if confidence < 0.5 {
		style = WarnStyle
	}
	return style.Render(strings.Repeat("━", filled)) +
		KeyStyle.Render(strings.Repeat("━", width-filled))
}
