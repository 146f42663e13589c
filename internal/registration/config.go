package registration

import (
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/festival-scheduler-api/internal/dto"
	"github.com/noah-isme/festival-scheduler-api/internal/scheduler"
)

// ReadChairmanConfig decodes and validates a YAML chairman configuration.
func ReadChairmanConfig(r io.Reader, validate *validator.Validate, defaultMinutes int) (scheduler.Config, error) {
	var req dto.ChairmanConfigRequest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&req); err != nil {
		return scheduler.Config{}, fmt.Errorf("decode chairman config: %w", err)
	}
	if validate == nil {
		validate = validator.New()
	}
	if err := validate.Struct(req); err != nil {
		return scheduler.Config{}, fmt.Errorf("invalid chairman config: %w", err)
	}
	return req.ToConfig(defaultMinutes)
}
