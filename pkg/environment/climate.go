package environment

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"
)

// WeatherWeight is one entry of a weighted weather table.
type WeatherWeight struct {
	Type   Weather `json:"type" yaml:"type"`
	Weight int     `json:"weight" yaml:"weight"`
}

// EventChance is an event tag that may become active for a window.
type EventChance struct {
	Tag     string   `json:"tag" yaml:"tag"`
	Chance  float64  `json:"chance" yaml:"chance"`                       // 0..1 per window
	Seasons []Season `json:"seasons,omitempty" yaml:"seasons,omitempty"` // empty means any season
}

// Climate tunes environment generation for a location.
// A zero Climate uses the seasonal defaults and has no events.
type Climate struct {
	Weather           []WeatherWeight `json:"weather,omitempty" yaml:"weather,omitempty"`
	Events            []EventChance   `json:"events,omitempty" yaml:"events,omitempty"`
	TemperatureOffset int             `json:"temperature_offset,omitempty" yaml:"temperature_offset,omitempty"`
}

// Validate checks weather names, weights, chances and seasons.
func (c Climate) Validate() error {
	total := 0
	for _, w := range c.Weather {
		if !isWeather(w.Type) {
			return fmt.Errorf("unknown weather %q", w.Type)
		}
		if w.Weight < 0 {
			return fmt.Errorf("negative weight %d for weather %q", w.Weight, w.Type)
		}
		total += w.Weight
	}
	if len(c.Weather) > 0 && total == 0 {
		return fmt.Errorf("weather table has no positive weight")
	}
	for _, e := range c.Events {
		if e.Tag == "" {
			return fmt.Errorf("event with empty tag")
		}
		if e.Chance < 0 || e.Chance > 1 {
			return fmt.Errorf("event %q chance %v outside [0,1]", e.Tag, e.Chance)
		}
		for _, s := range e.Seasons {
			if !isSeason(s) {
				return fmt.Errorf("event %q has unknown season %q", e.Tag, s)
			}
		}
	}
	return nil
}

// ClimateSource looks up the climate configured for a location.
type ClimateSource interface {
	Climate(locationID string) (Climate, bool)
}

// Generator draws a context for a location and window using rng.
type Generator interface {
	Generate(locationID string, w Window, rng *rand.Rand) (Context, error)
}

// ClimateGenerator derives season and time of day from the window start and
// draws weather, temperature and events from the location's climate.
type ClimateGenerator struct {
	Source ClimateSource // may be nil
}

var _ Generator = ClimateGenerator{}

func (g ClimateGenerator) Generate(locationID string, w Window, rng *rand.Rand) (Context, error) {
	var climate Climate
	if g.Source != nil {
		if c, ok := g.Source.Climate(locationID); ok {
			climate = c
		}
	}

	season := SeasonAt(w.Start)
	weights := climate.Weather
	if len(weights) == 0 {
		weights = defaultWeather[season]
	}
	weather, err := pickWeather(weights, rng)
	if err != nil {
		return Context{}, err
	}

	temp := baseTemperature[season] + weatherDelta[weather] + climate.TemperatureOffset + rng.IntN(7) - 3

	events := []string{}
	for _, e := range climate.Events {
		if len(e.Seasons) > 0 && !slices.Contains(e.Seasons, season) {
			continue
		}
		if rng.Float64() < e.Chance {
			events = append(events, e.Tag)
		}
	}
	slices.Sort(events)
	events = slices.Compact(events)

	return Context{
		Season:       season,
		TimeOfDay:    TimeOfDayAt(w.Start),
		Weather:      weather,
		TemperatureC: temp,
		Events:       events,
		Window:       w,
	}, nil
}

// SeasonAt maps the UTC month of t to a season.
func SeasonAt(t time.Time) Season {
	switch t.UTC().Month() {
	case time.December, time.January, time.February:
		return SeasonWinter
	case time.March, time.April, time.May:
		return SeasonSpring
	case time.June, time.July, time.August:
		return SeasonSummer
	default:
		return SeasonAutumn
	}
}

// TimeOfDayAt maps the UTC hour of t to a time of day.
// Dawn and dusk are the hour either side of 06:00 and 18:00.
func TimeOfDayAt(t time.Time) TimeOfDay {
	h := t.UTC().Hour()
	switch {
	case h >= 5 && h < 7:
		return TimeDawn
	case h >= 7 && h < 17:
		return TimeDay
	case h >= 17 && h < 19:
		return TimeDusk
	default:
		return TimeNight
	}
}

func pickWeather(weights []WeatherWeight, rng *rand.Rand) (Weather, error) {
	total := 0
	for _, w := range weights {
		if w.Weight > 0 {
			total += w.Weight
		}
	}
	if total <= 0 {
		return "", fmt.Errorf("weather table has no positive weight")
	}

	roll := rng.IntN(total)
	cumulative := 0
	for _, w := range weights {
		if w.Weight <= 0 {
			continue
		}
		cumulative += w.Weight
		if roll < cumulative {
			return w.Type, nil
		}
	}
	return weights[len(weights)-1].Type, nil
}

var defaultWeather = map[Season][]WeatherWeight{
	SeasonWinter: {
		{WeatherClear, 3}, {WeatherCloudy, 3}, {WeatherSnowy, 3},
		{WeatherWindy, 2}, {WeatherFoggy, 2}, {WeatherStormy, 1},
	},
	SeasonSpring: {
		{WeatherClear, 4}, {WeatherCloudy, 3}, {WeatherRainy, 3},
		{WeatherWindy, 2}, {WeatherFoggy, 1}, {WeatherStormy, 1},
	},
	SeasonSummer: {
		{WeatherClear, 6}, {WeatherCloudy, 2}, {WeatherRainy, 1},
		{WeatherWindy, 1}, {WeatherStormy, 2},
	},
	SeasonAutumn: {
		{WeatherClear, 3}, {WeatherCloudy, 3}, {WeatherRainy, 3},
		{WeatherWindy, 3}, {WeatherFoggy, 2}, {WeatherStormy, 1},
	},
}

var baseTemperature = map[Season]int{
	SeasonWinter: 0,
	SeasonSpring: 12,
	SeasonSummer: 24,
	SeasonAutumn: 11,
}

var weatherDelta = map[Weather]int{
	WeatherClear:  2,
	WeatherCloudy: 0,
	WeatherRainy:  -2,
	WeatherWindy:  -3,
	WeatherFoggy:  -1,
	WeatherStormy: -4,
	WeatherSnowy:  -6,
}

func isWeather(w Weather) bool {
	_, ok := weatherDelta[w]
	return ok
}

func isSeason(s Season) bool {
	_, ok := baseTemperature[s]
	return ok
}
