package survey

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultSitesTable is the remote table holding site records.
const DefaultSitesTable = "Sites"

// DefaultShapesPath is the inventory file used when the config omits one.
const DefaultShapesPath = "shapes.js"

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if config.Airtable.BaseID == "" {
		return nil, fmt.Errorf("airtable.baseId is required")
	}
	if config.Airtable.APIKey == "" {
		return nil, fmt.Errorf("airtable.apiKey is required")
	}
	if config.Airtable.SitesTable == "" {
		config.Airtable.SitesTable = DefaultSitesTable
	}
	if config.ShapesPath == "" {
		config.ShapesPath = DefaultShapesPath
	}
	if config.MQTT != nil && config.MQTT.Broker == "" {
		return nil, fmt.Errorf("mqtt.broker is required when mqtt is configured")
	}

	return &config, nil
}
