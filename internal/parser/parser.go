// Package parser extracts weather fields from the upstream site's HTML.
//
// The markup uses build-hashed class names (AppFact_wrap__N4SYB and the like),
// so every structural assumption lives in the selector table below as a
// class-substring selector. A source format change means editing this table,
// not the traversal logic. Parsing only walks the static tag tree; script
// content is never evaluated.
package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/avoronova/pogoda-scrape-service/internal/models"
)

// ErrPageStructure is returned when a structural anchor the parser depends on
// is absent: the page was fetched but is not the format this parser versions
// against.
var ErrPageStructure = errors.New("page structure not recognized")

// Selector table. Hashed suffixes are matched by prefix ([class*=...]) so the
// build hash churn upstream does not break extraction.
const (
	selFactWrap       = "div[class*='AppFact_wrap__']"
	selTempContent    = "p[class*='AppFactTemperature_content__']"
	selTempSign       = "span[class*='AppFactTemperature_sign__']"
	selTempValue      = "span[class*='AppFactTemperature_value__']"
	selTempDegree     = "span[class*='AppFactTemperature_degree__']"
	selConditionText  = "p[class*='AppFact_warning__']"
	selFeelsLike      = "span[class*='AppFact_feels__']"
	selYesterdayFull  = "span[class*='AppFact_yesterday__']"
	selYesterdayShort = "span[class*='AppFact_yesterdayShort__']"
	selFactDetails    = "ul[class*='AppFact_details__'] li[class*='AppFact_details__item__']"

	selMonthArticle  = "article[class*='AppMonth_month__']"
	selMonthDay      = "div[class*='AppMonthCalendarDay_day__']"
	selMonthDayLink  = "a[class*='AppMonthCalendarDay_day__date__']"
	selMonthTemps    = "p[class*='AppMonthCalendarDay_temperature__'] span[class*='AppMonthCalendarDay_temperature__number__']"
	classNightTemp   = "AppMonthCalendarDay_temperature__number_night__"
	classClimateCell = "climateStart"
	selDayDetails    = "div[class*='AppMonthCalendarDayDetailedInfo_details__']"
	selDayFeelsLike  = "p[class*='AppMonthCalendarDayDetailedInfo_details__feelsLike__']"
	selDayParams     = "ul[class*='AppMonthCalendarDayDetailedInfo_params__'] li"
)

// ParseCurrent extracts current conditions from the page. Temperature and the
// condition text are structural anchors; everything else is best-effort and
// resolves to nil when its sub-element is missing.
func ParseCurrent(html string) (*models.CurrentWeather, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageStructure, err)
	}

	wrap := doc.Find(selFactWrap).First()
	if wrap.Length() == 0 {
		// Degraded markup sometimes drops the wrap class; fall back to the
		// temperature value span's enclosing div.
		if v := doc.Find(selTempValue).First(); v.Length() > 0 {
			wrap = v.ParentsFiltered("div").First()
		}
	}
	if wrap.Length() == 0 {
		return nil, fmt.Errorf("%w: weather block not found", ErrPageStructure)
	}

	temperature := assembleTemperature(wrap.Find(selTempContent).First())
	if temperature == "" {
		return nil, fmt.Errorf("%w: temperature not found", ErrPageStructure)
	}

	conditionText := collapsedText(wrap.Find(selConditionText).First())
	if conditionText == "" {
		return nil, fmt.Errorf("%w: condition not found", ErrPageStructure)
	}

	details := wrap.Find(selFactDetails)
	return &models.CurrentWeather{
		Temperature:      temperature,
		Condition:        MapCondition(conditionText),
		ConditionText:    conditionText,
		FeelsLike:        extractTemperature(optionalText(wrap.Find(selFeelsLike).First())),
		YesterdayFull:    extractTemperature(optionalText(wrap.Find(selYesterdayFull).First())),
		YesterdayShort:   extractTemperature(optionalText(wrap.Find(selYesterdayShort).First())),
		Wind:             extractWind(itemAt(details, 0)),
		Pressure:         extractDigits(itemAt(details, 1)),
		Humidity:         extractDigits(itemAt(details, 2)),
		WaterTemperature: itemAt(details, 3),
	}, nil
}

// assembleTemperature joins the sign, value and degree spans of the main
// temperature block into one string like "+5°".
func assembleTemperature(block *goquery.Selection) string {
	if block.Length() == 0 {
		return ""
	}
	var b strings.Builder
	for _, sel := range []string{selTempSign, selTempValue, selTempDegree} {
		b.WriteString(strings.TrimSpace(block.Find(sel).First().Text()))
	}
	return b.String()
}

// ParseMonth extracts the month view's day forecasts in source order. The
// month container is a structural anchor, as are each day's title and day and
// night temperatures; a well-formed page with no day blocks yields an empty
// slice. The lead-in climate cell carried by the source is skipped.
func ParseMonth(html string) ([]models.MonthlyDay, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageStructure, err)
	}

	article := doc.Find(selMonthArticle).First()
	if article.Length() == 0 {
		return nil, fmt.Errorf("%w: month block not found", ErrPageStructure)
	}

	days := []models.MonthlyDay{}
	var dayErr error
	article.Find(selMonthDay).EachWithBreak(func(i int, block *goquery.Selection) bool {
		li := block.ParentsFiltered("li").First()
		if cls, _ := li.Attr("class"); strings.Contains(cls, classClimateCell) {
			return true
		}

		day, err := parseDay(block, li)
		if err != nil {
			dayErr = fmt.Errorf("day %d: %w", len(days), err)
			return false
		}
		days = append(days, day)
		return true
	})
	if dayErr != nil {
		return nil, dayErr
	}
	return days, nil
}

func parseDay(block, li *goquery.Selection) (models.MonthlyDay, error) {
	link := block.Find(selMonthDayLink).First()
	title, _ := link.Attr("aria-label")
	label := collapsedText(link)
	if title == "" {
		title = label
	}
	if title == "" {
		return models.MonthlyDay{}, fmt.Errorf("%w: day title not found", ErrPageStructure)
	}

	dayTemp, nightTemp := dayNightTemps(block.Find(selMonthTemps))
	if dayTemp == "" {
		return models.MonthlyDay{}, fmt.Errorf("%w: day temperature not found", ErrPageStructure)
	}
	if nightTemp == "" {
		return models.MonthlyDay{}, fmt.Errorf("%w: night temperature not found", ErrPageStructure)
	}

	// The detailed-info block hangs off the enclosing li when present.
	scope := li
	if scope.Length() == 0 {
		scope = block
	}
	details := scope.Find(selDayDetails).First()
	params := details.Find(selDayParams)

	return models.MonthlyDay{
		Title:            title,
		Label:            label,
		DayTemp:          dayTemp,
		NightTemp:        nightTemp,
		FeelsLike:        extractTemperature(optionalText(details.Find(selDayFeelsLike).First())),
		Pressure:         extractDigits(itemAt(params, 0)),
		Humidity:         extractDigits(itemAt(params, 1)),
		Wind:             extractWind(itemAt(params, 2)),
		WaterTemperature: itemAt(params, 3),
	}, nil
}

// dayNightTemps splits the temperature spans: the first span is the day value,
// the span carrying the night class is the night value.
func dayNightTemps(spans *goquery.Selection) (day, night string) {
	spans.Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if i == 0 {
			day = text
		}
		if cls, _ := s.Attr("class"); night == "" && strings.Contains(cls, classNightTemp) {
			night = text
		}
	})
	return day, night
}

// collapsedText returns the selection's text with whitespace runs collapsed to
// single spaces, or "" for an empty selection.
func collapsedText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// optionalText is collapsedText lifted to *string: nil when the element is
// absent or empty.
func optionalText(s *goquery.Selection) *string {
	if s.Length() == 0 {
		return nil
	}
	text := collapsedText(s)
	if text == "" {
		return nil
	}
	return &text
}

// itemAt returns the collapsed text of the i-th element, nil past the end.
func itemAt(items *goquery.Selection, i int) *string {
	if i >= items.Length() {
		return nil
	}
	return optionalText(items.Eq(i))
}
