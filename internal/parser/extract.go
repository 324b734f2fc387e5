package parser

import (
	"regexp"
	"strings"
)

var (
	temperatureRe = regexp.MustCompile(`[+-]?\d+°`)
	digitsRe      = regexp.MustCompile(`\d+`)
)

// extractTemperature pulls a temperature value out of surrounding prose, e.g.
// "Ощущается как +3°" -> "+3°". nil in, nil out; nil when no value matches.
func extractTemperature(text *string) *string {
	return firstMatch(temperatureRe, text)
}

// extractDigits pulls the leading number out of a measurement, e.g.
// "758 мм рт. ст." -> "758", "65%" -> "65".
func extractDigits(text *string) *string {
	return firstMatch(digitsRe, text)
}

// extractWind returns the wind description trimmed; the source already renders
// it clean ("СЗ 3 м/с").
func extractWind(text *string) *string {
	if text == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*text)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func firstMatch(re *regexp.Regexp, text *string) *string {
	if text == nil {
		return nil
	}
	m := re.FindString(*text)
	if m == "" {
		return nil
	}
	return &m
}
