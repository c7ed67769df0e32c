package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// MonitorPoint is a fixed geographic location polled for live congestion.
type MonitorPoint struct {
	Name string  `yaml:"name" validate:"required"`
	Lat  float64 `yaml:"lat" validate:"required,gte=-90,lte=90"`
	Lon  float64 `yaml:"lon" validate:"required,gte=-180,lte=180"`
}

type pointsFile struct {
	Points []MonitorPoint `yaml:"points" validate:"required,min=1,dive"`
}

// LoadPoints reads the monitored-point set from a YAML file.
// An unreadable or invalid file is a fatal configuration error.
func LoadPoints(path string) ([]MonitorPoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read points file %s: %w", path, err)
	}

	var pf pointsFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse points file %s: %w", path, err)
	}

	v := validator.New()
	if err := v.Struct(pf); err != nil {
		return nil, fmt.Errorf("invalid points file %s: %w", path, err)
	}

	return pf.Points, nil
}
