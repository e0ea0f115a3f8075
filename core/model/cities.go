package model

// CityCoordinates holds the city centres used to complete routes entered
// without explicit coordinates.
var CityCoordinates = map[string]Coordinate{
	"Москва":          {Lat: 55.7558, Lon: 37.6176},
	"Санкт-Петербург": {Lat: 59.9343, Lon: 30.3351},
	"Казань":          {Lat: 55.7963, Lon: 49.1088},
	"Новосибирск":     {Lat: 55.0084, Lon: 82.9357},
	"Екатеринбург":    {Lat: 56.8389, Lon: 60.6057},
	"Нижний Новгород": {Lat: 56.2965, Lon: 43.9361},
	"Тула":            {Lat: 54.1931, Lon: 37.6177},
	"Воронеж":         {Lat: 51.6615, Lon: 39.2003},
	"Самара":          {Lat: 53.1959, Lon: 50.1008},
	"Ростов-на-Дону":  {Lat: 47.2357, Lon: 39.7015},
}

// UnknownCity is used when a location name is not in CityCoordinates.
var UnknownCity = Coordinate{Lat: 55.0, Lon: 37.0}

// CompleteCoordinates fills the missing endpoints of r from its location
// names. Endpoints already set are kept.
func CompleteCoordinates(r Route) Route {
	if r.Start.IsZero() {
		r.Start = cityOrDefault(r.StartLocation)
	}
	if r.End.IsZero() {
		r.End = cityOrDefault(r.EndLocation)
	}
	return r
}

func cityOrDefault(name string) Coordinate {
	if c, ok := CityCoordinates[name]; ok {
		return c
	}
	return UnknownCity
}
