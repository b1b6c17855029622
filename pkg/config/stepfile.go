package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/narvanalabs/zapper/internal/models"
	"gopkg.in/yaml.v3"
)

// LoadStepFile reads a YAML step definition. Unknown keys are rejected.
//
//	install_type: auto
//	repository_url: http://zaproxy.googlecode.com/svn/trunk/
//	checkout_path: zapSource
//	host: localhost:8090
func LoadStepFile(path string) (models.StepForm, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.StepForm{}, fmt.Errorf("reading step file: %w", err)
	}
	return ParseStepFile(data)
}

// ParseStepFile decodes a YAML step definition.
func ParseStepFile(data []byte) (models.StepForm, error) {
	var form models.StepForm
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&form); err != nil && err != io.EOF {
		return models.StepForm{}, fmt.Errorf("parsing step file: %w", err)
	}
	return form, nil
}
