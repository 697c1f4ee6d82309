package main

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

func formatCount(n int) string {
	return printer.Sprintf("%d", n)
}

func formatSeconds(d time.Duration) string {
	return printer.Sprintf("%.1fs", d.Seconds())
}

func formatPercent(part, whole int) string {
	if whole <= 0 {
		return "-"
	}
	return printer.Sprintf("%.0f%%", 100*float64(part)/float64(whole))
}
