package models

// Mode selects which view of the upstream site a request targets.
type Mode string

const (
	ModeCurrent Mode = "current"
	ModeMonthly Mode = "monthly"
)

// Condition is the closed set of weather states the parser maps the
// upstream's free-text condition into. Unrecognized text maps to
// ConditionUnknown, never an error.
type Condition string

const (
	ConditionClear          Condition = "clear"
	ConditionPartlyCloudy   Condition = "partly-cloudy"
	ConditionCloudyAndClear Condition = "cloudy-and-clear"
	ConditionCloudy         Condition = "cloudy"
	ConditionOvercast       Condition = "overcast"
	ConditionLightRain      Condition = "light-rain"
	ConditionRain           Condition = "rain"
	ConditionHeavyRain      Condition = "heavy-rain"
	ConditionThunderstorm   Condition = "thunderstorm"
	ConditionLightSnow      Condition = "light-snow"
	ConditionSnow           Condition = "snow"
	ConditionHeavySnow      Condition = "heavy-snow"
	ConditionFog            Condition = "fog"
	ConditionHaze           Condition = "haze"
	ConditionDrizzle        Condition = "drizzle"
	ConditionHail           Condition = "hail"
	ConditionUnknown        Condition = "unknown"
)

// CurrentWeather holds the fields extracted from the current-conditions view.
// Pointer fields are optional: nil means the source did not render that block.
type CurrentWeather struct {
	Temperature      string    `json:"temperature"`
	Condition        Condition `json:"condition"`
	ConditionText    string    `json:"condition_text"`
	FeelsLike        *string   `json:"feels_like"`
	YesterdayFull    *string   `json:"yesterday_full"`
	YesterdayShort   *string   `json:"yesterday_short"`
	Wind             *string   `json:"wind"`
	Pressure         *string   `json:"pressure"`
	Humidity         *string   `json:"humidity"`
	WaterTemperature *string   `json:"water_temperature"`
}

// MonthlyDay is one calendar day from the month view, in source order.
type MonthlyDay struct {
	Title            string  `json:"title"`
	Label            string  `json:"label"`
	DayTemp          string  `json:"day_temp"`
	NightTemp        string  `json:"night_temp"`
	FeelsLike        *string `json:"feels_like"`
	Pressure         *string `json:"pressure"`
	Humidity         *string `json:"humidity"`
	Wind             *string `json:"wind"`
	WaterTemperature *string `json:"water_temperature"`
}

// Envelope is the response wrapper returned for every successful request.
// Source is the upstream URL constructed for this request's coordinates,
// recomputed even when the payload comes from cache. Data holds either a
// *CurrentWeather or a []MonthlyDay depending on the mode.
type Envelope struct {
	Lat    float64     `json:"lat"`
	Lon    float64     `json:"lon"`
	Source string      `json:"source"`
	Cached bool        `json:"cached"`
	Stale  bool        `json:"stale,omitempty"` // served from cache past its TTL
	Data   interface{} `json:"data"`
}
