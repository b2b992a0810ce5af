package config

import (
	"encoding/json"
	"fmt"
)

// OTLPConfig configures optional OTLP trace export.
// Tracing is disabled when Endpoint is empty.
type OTLPConfig struct {
	// Endpoint is the OTLP HTTP collector address (host:port, no scheme).
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`

	// ServiceName tags exported spans. Default: "finch".
	ServiceName string `mapstructure:"service_name" json:"service_name"`

	// Environment tags spans with deployment.environment.
	Environment string `mapstructure:"environment" json:"environment"`

	// APIKey is an optional collector credential.
	// SENSITIVE: masked in MarshalJSON.
	APIKey string `mapstructure:"api_key" json:"api_key"`
}

// Enabled reports whether trace export is configured.
func (o OTLPConfig) Enabled() bool {
	return o.Endpoint != ""
}

// MarshalJSON masks the collector credential.
func (o OTLPConfig) MarshalJSON() ([]byte, error) {
	type alias OTLPConfig
	a := alias(o)
	a.APIKey = maskSecret(a.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal otlp config: %w", err)
	}
	return data, nil
}
