package survey

import "github.com/paulmach/orb"

// Coordinate pairs throughout this package are stored [lat, lng] to match the
// layout of the persisted shapes.js collections. This is the opposite of the
// lon-first ordering used in KML coordinate blocks; the parser swaps on read.

// Shape is a named polygon ring describing a survey zone.
type Shape struct {
	Name   string     `json:"name"`
	Coords orb.Ring   `json:"coords"`
	Center [2]float64 `json:"center"`
}

// Point is a single named GPS coordinate.
type Point struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Route is a named open path.
type Route struct {
	Name   string         `json:"name"`
	Coords orb.LineString `json:"coords"`
}

// Inventory holds the three persisted collections. It is loaded once per
// reconciliation run, merged in memory, and rewritten in full on apply.
type Inventory struct {
	Shapes []Shape
	Routes []Route
	Points []Point
}

// Document holds the features extracted from one KML document, in document
// order.
type Document struct {
	Shapes []Shape
	Points []Point
	Routes []Route
}

// Config is the full configuration file.
type Config struct {
	Airtable   AirtableConfig `yaml:"airtable"`
	ShapesPath string         `yaml:"shapesPath,omitempty"`
	MQTT       *MQTTConfig    `yaml:"mqtt,omitempty"`
}

// AirtableConfig holds remote record store credentials.
type AirtableConfig struct {
	BaseID     string `yaml:"baseId"`
	APIKey     string `yaml:"apiKey"`
	SitesTable string `yaml:"sitesTable,omitempty"` // defaults to "Sites"
}

// MQTTConfig holds optional sync-notification broker settings.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"clientId,omitempty"`
	Topic    string `yaml:"topic,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}
