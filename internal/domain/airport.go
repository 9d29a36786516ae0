package domain

import (
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Airport struct - Reference entity for known IATA airport codes
type Airport struct {
	Code    string `gorm:"type:varchar(3);primary_key;"`
	Name    string `gorm:"type:varchar(120);not null;"`
	City    string `gorm:"type:varchar(80);not null;"`
	Country string `gorm:"type:varchar(2);not null;"`
}

// TableName func
func (a *Airport) TableName() string {
	return "airports"
}

// BeforeSave hook - normalizes the code
func (a *Airport) BeforeSave(tx *gorm.DB) (err error) {
	a.Code = strings.ToUpper(strings.TrimSpace(a.Code))
	return nil
}

// MigrateDatabase func - Auto-migrate database schema
func MigrateDatabase(db *gorm.DB) {
	if db == nil {
		panic("An error when connect database")
	}

	err := db.AutoMigrate(&Airport{})
	if err != nil {
		panic(err)
	}
	logrus.Info("airports table migrated")
}

// DefaultAirports is the built-in directory used when no database is configured
// and as seed data for the airports table.
var DefaultAirports = []Airport{
	{Code: "ATL", Name: "Hartsfield-Jackson Atlanta International", City: "Atlanta", Country: "US"},
	{Code: "BOS", Name: "Logan International", City: "Boston", Country: "US"},
	{Code: "DEN", Name: "Denver International", City: "Denver", Country: "US"},
	{Code: "DFW", Name: "Dallas/Fort Worth International", City: "Dallas", Country: "US"},
	{Code: "EWR", Name: "Newark Liberty International", City: "Newark", Country: "US"},
	{Code: "IAD", Name: "Washington Dulles International", City: "Washington", Country: "US"},
	{Code: "JFK", Name: "John F. Kennedy International", City: "New York", Country: "US"},
	{Code: "LAS", Name: "Harry Reid International", City: "Las Vegas", Country: "US"},
	{Code: "LAX", Name: "Los Angeles International", City: "Los Angeles", Country: "US"},
	{Code: "LGA", Name: "LaGuardia", City: "New York", Country: "US"},
	{Code: "MIA", Name: "Miami International", City: "Miami", Country: "US"},
	{Code: "ORD", Name: "O'Hare International", City: "Chicago", Country: "US"},
	{Code: "SEA", Name: "Seattle-Tacoma International", City: "Seattle", Country: "US"},
	{Code: "SFO", Name: "San Francisco International", City: "San Francisco", Country: "US"},
	{Code: "YVR", Name: "Vancouver International", City: "Vancouver", Country: "CA"},
	{Code: "YYZ", Name: "Toronto Pearson International", City: "Toronto", Country: "CA"},
	{Code: "MEX", Name: "Mexico City International", City: "Mexico City", Country: "MX"},
	{Code: "GRU", Name: "São Paulo/Guarulhos International", City: "São Paulo", Country: "BR"},
	{Code: "AMS", Name: "Amsterdam Schiphol", City: "Amsterdam", Country: "NL"},
	{Code: "BCN", Name: "Barcelona-El Prat", City: "Barcelona", Country: "ES"},
	{Code: "CDG", Name: "Paris Charles de Gaulle", City: "Paris", Country: "FR"},
	{Code: "DUB", Name: "Dublin", City: "Dublin", Country: "IE"},
	{Code: "FCO", Name: "Rome Fiumicino", City: "Rome", Country: "IT"},
	{Code: "FRA", Name: "Frankfurt", City: "Frankfurt", Country: "DE"},
	{Code: "IST", Name: "Istanbul", City: "Istanbul", Country: "TR"},
	{Code: "LHR", Name: "London Heathrow", City: "London", Country: "GB"},
	{Code: "LGW", Name: "London Gatwick", City: "London", Country: "GB"},
	{Code: "MAD", Name: "Adolfo Suárez Madrid-Barajas", City: "Madrid", Country: "ES"},
	{Code: "MUC", Name: "Munich", City: "Munich", Country: "DE"},
	{Code: "ORY", Name: "Paris Orly", City: "Paris", Country: "FR"},
	{Code: "ZRH", Name: "Zurich", City: "Zurich", Country: "CH"},
	{Code: "DXB", Name: "Dubai International", City: "Dubai", Country: "AE"},
	{Code: "DOH", Name: "Hamad International", City: "Doha", Country: "QA"},
	{Code: "BKK", Name: "Suvarnabhumi", City: "Bangkok", Country: "TH"},
	{Code: "DEL", Name: "Indira Gandhi International", City: "Delhi", Country: "IN"},
	{Code: "HKG", Name: "Hong Kong International", City: "Hong Kong", Country: "HK"},
	{Code: "HND", Name: "Tokyo Haneda", City: "Tokyo", Country: "JP"},
	{Code: "ICN", Name: "Incheon International", City: "Seoul", Country: "KR"},
	{Code: "NRT", Name: "Tokyo Narita", City: "Tokyo", Country: "JP"},
	{Code: "SIN", Name: "Singapore Changi", City: "Singapore", Country: "SG"},
	{Code: "SYD", Name: "Sydney Kingsford Smith", City: "Sydney", Country: "AU"},
	{Code: "MEL", Name: "Melbourne", City: "Melbourne", Country: "AU"},
	{Code: "AKL", Name: "Auckland", City: "Auckland", Country: "NZ"},
	{Code: "JNB", Name: "O. R. Tambo International", City: "Johannesburg", Country: "ZA"},
	{Code: "CAI", Name: "Cairo International", City: "Cairo", Country: "EG"},
}

// DefaultAirportCodes returns the codes of DefaultAirports
func DefaultAirportCodes() []string {
	codes := make([]string, len(DefaultAirports))
	for i, a := range DefaultAirports {
		codes[i] = a.Code
	}
	return codes
}
