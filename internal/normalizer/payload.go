package normalizer

// Payload is the provider response for current conditions. It covers both
// the current-weather shape (main, wind, sys blocks) and the one-call shape
// (flat fields, optionally nested under current). Every field is optional.
type Payload struct {
	Cod            interface{} `json:"cod"`
	Name           string      `json:"name"`
	State          string      `json:"state"`
	Country        string      `json:"country"`
	Timezone       interface{} `json:"timezone"`
	TimezoneOffset *float64    `json:"timezone_offset"`

	Main    *MainBlock   `json:"main"`
	Sys     *SysBlock    `json:"sys"`
	Wind    *WindBlock   `json:"wind"`
	Rain    *PrecipBlock `json:"rain"`
	Snow    *PrecipBlock `json:"snow"`
	Weather []Condition  `json:"weather"`

	Temp        *float64 `json:"temp"`
	FeelsLike   *float64 `json:"feels_like"`
	Humidity    *float64 `json:"humidity"`
	Pressure    *float64 `json:"pressure"`
	WindSpeed   *float64 `json:"wind_speed"`
	WindDeg     *float64 `json:"wind_deg"`
	Visibility  *float64 `json:"visibility"`
	Sunrise     *float64 `json:"sunrise"`
	Sunset      *float64 `json:"sunset"`
	Description string   `json:"description"`

	Current *Payload     `json:"current"`
	Daily   []DailyBlock `json:"daily"`
}

type MainBlock struct {
	Temp      *float64 `json:"temp"`
	FeelsLike *float64 `json:"feels_like"`
	TempMin   *float64 `json:"temp_min"`
	TempMax   *float64 `json:"temp_max"`
	Humidity  *float64 `json:"humidity"`
	Pressure  *float64 `json:"pressure"`
}

type SysBlock struct {
	Country string   `json:"country"`
	Sunrise *float64 `json:"sunrise"`
	Sunset  *float64 `json:"sunset"`
}

type WindBlock struct {
	Speed *float64 `json:"speed"`
	Deg   *float64 `json:"deg"`
}

type PrecipBlock struct {
	OneHour   *float64 `json:"1h"`
	ThreeHour *float64 `json:"3h"`
}

type Condition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

type DailyBlock struct {
	Dt      float64     `json:"dt"`
	Temp    *DailyTemp  `json:"temp"`
	Weather []Condition `json:"weather"`
}

type DailyTemp struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// ForecastPayload is the 3-hourly forecast response
type ForecastPayload struct {
	Cod            interface{}     `json:"cod"`
	City           *ForecastCity   `json:"city"`
	List           []ForecastEntry `json:"list"`
	Daily          []DailyBlock    `json:"daily"`
	Timezone       interface{}     `json:"timezone"`
	TimezoneOffset *float64        `json:"timezone_offset"`
}

type ForecastCity struct {
	Name     string   `json:"name"`
	Country  string   `json:"country"`
	Timezone *float64 `json:"timezone"`
}

type ForecastEntry struct {
	Dt      float64     `json:"dt"`
	Main    *MainBlock  `json:"main"`
	Weather []Condition `json:"weather"`
}

func firstFloat(values ...*float64) (float64, bool) {
	for _, v := range values {
		if v != nil {
			return *v, true
		}
	}
	return 0, false
}

func (m *MainBlock) temp() *float64 {
	if m == nil {
		return nil
	}
	return m.Temp
}

func (m *MainBlock) feelsLike() *float64 {
	if m == nil {
		return nil
	}
	return m.FeelsLike
}

func (m *MainBlock) humidity() *float64 {
	if m == nil {
		return nil
	}
	return m.Humidity
}

func (m *MainBlock) pressure() *float64 {
	if m == nil {
		return nil
	}
	return m.Pressure
}

func (m *MainBlock) tempMin() *float64 {
	if m == nil {
		return nil
	}
	return m.TempMin
}

func (m *MainBlock) tempMax() *float64 {
	if m == nil {
		return nil
	}
	return m.TempMax
}

func (w *WindBlock) speed() *float64 {
	if w == nil {
		return nil
	}
	return w.Speed
}

func (w *WindBlock) deg() *float64 {
	if w == nil {
		return nil
	}
	return w.Deg
}

func (s *SysBlock) sunrise() *float64 {
	if s == nil {
		return nil
	}
	return s.Sunrise
}

func (s *SysBlock) sunset() *float64 {
	if s == nil {
		return nil
	}
	return s.Sunset
}

func (s *SysBlock) country() string {
	if s == nil {
		return ""
	}
	return s.Country
}
