package environment

import (
	"slices"
	"strconv"
)

type Season string

const (
	SeasonWinter Season = "winter"
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonAutumn Season = "autumn"
)

type TimeOfDay string

const (
	TimeDawn  TimeOfDay = "dawn"
	TimeDay   TimeOfDay = "day"
	TimeDusk  TimeOfDay = "dusk"
	TimeNight TimeOfDay = "night"
)

type Weather string

const (
	WeatherClear  Weather = "clear"
	WeatherCloudy Weather = "cloudy"
	WeatherRainy  Weather = "rainy"
	WeatherWindy  Weather = "windy"
	WeatherFoggy  Weather = "foggy"
	WeatherStormy Weather = "stormy"
	WeatherSnowy  Weather = "snowy"
)

// Field names understood by Context.Field and by guards.
const (
	FieldSeason      = "season"
	FieldTimeOfDay   = "time_of_day"
	FieldWeather     = "weather"
	FieldTemperature = "temperature_c"
)

var knownFields = []string{FieldSeason, FieldTimeOfDay, FieldWeather, FieldTemperature}

// IsField reports whether name is a Context field usable in guards.
func IsField(name string) bool {
	return slices.Contains(knownFields, name)
}

// IsFieldValue reports whether value can ever be the string form of the
// named field.
func IsFieldValue(name, value string) bool {
	switch name {
	case FieldSeason:
		return isSeason(Season(value))
	case FieldTimeOfDay:
		switch TimeOfDay(value) {
		case TimeDawn, TimeDay, TimeDusk, TimeNight:
			return true
		}
		return false
	case FieldWeather:
		return isWeather(Weather(value))
	case FieldTemperature:
		_, err := strconv.Atoi(value)
		return err == nil
	default:
		return false
	}
}

// Context is the derived environment of one location for one time window.
type Context struct {
	Season       Season    `json:"season"`
	TimeOfDay    TimeOfDay `json:"time_of_day"`
	Weather      Weather   `json:"weather"`
	TemperatureC int       `json:"temperature_c"`
	Events       []string  `json:"events"`
	Window       Window    `json:"window"`
}

// Field returns the string form of a named field.
func (c Context) Field(name string) (string, bool) {
	switch name {
	case FieldSeason:
		return string(c.Season), true
	case FieldTimeOfDay:
		return string(c.TimeOfDay), true
	case FieldWeather:
		return string(c.Weather), true
	case FieldTemperature:
		return strconv.Itoa(c.TemperatureC), true
	default:
		return "", false
	}
}

// HasEvent reports whether tag is among the active events.
func (c Context) HasEvent(tag string) bool {
	return slices.Contains(c.Events, tag)
}

// clone returns a copy that shares no slices with c.
func (c Context) clone() Context {
	out := c
	out.Events = slices.Clone(c.Events)
	if out.Events == nil {
		out.Events = []string{}
	}
	return out
}
