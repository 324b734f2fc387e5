package parser

import (
	"strings"

	"github.com/avoronova/pogoda-scrape-service/internal/models"
)

// conditionTable maps Russian condition phrases to condition codes by
// substring match, checked in order. Qualified phrases ("небольшой дождь",
// "сильный снег") must precede the bare words they contain.
var conditionTable = []struct {
	substr string
	code   models.Condition
}{
	{"небольшой дождь", models.ConditionLightRain},
	{"слабый дождь", models.ConditionLightRain},
	{"ливень", models.ConditionHeavyRain},
	{"сильный дождь", models.ConditionHeavyRain},
	{"гроза", models.ConditionThunderstorm},
	{"небольшой снег", models.ConditionLightSnow},
	{"слабый снег", models.ConditionLightSnow},
	{"метель", models.ConditionHeavySnow},
	{"сильный снег", models.ConditionHeavySnow},
	{"морось", models.ConditionDrizzle},
	{"град", models.ConditionHail},
	{"туман", models.ConditionFog},
	{"мгла", models.ConditionHaze},
	{"дымка", models.ConditionHaze},
	{"дождь", models.ConditionRain},
	{"снег", models.ConditionSnow},
	{"облачно с прояснениями", models.ConditionCloudyAndClear},
	{"малооблачно", models.ConditionPartlyCloudy},
	{"переменная облачность", models.ConditionPartlyCloudy},
	{"пасмурно", models.ConditionOvercast},
	{"облачно", models.ConditionCloudy},
	{"ясно", models.ConditionClear},
}

// MapCondition maps the source's free-text condition to the closed condition
// set. Total: anything unrecognized is ConditionUnknown, never an error.
func MapCondition(text string) models.Condition {
	lowered := strings.ToLower(text)
	for _, row := range conditionTable {
		if strings.Contains(lowered, row.substr) {
			return row.code
		}
	}
	return models.ConditionUnknown
}
