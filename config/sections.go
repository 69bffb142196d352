package config

import "time"

// SimulatorConfig locates the remote simulation endpoint.
type SimulatorConfig struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
	// TimeoutSeconds bounds a request; 0 waits as long as the server does.
	TimeoutSeconds int `json:"timeout_seconds" validate:"gte=0"`
	// Auth enables OAuth2 client credentials when TokenURL is set.
	Auth AuthConfig `json:"auth"`
}

// AuthConfig holds the client credentials used to obtain bearer tokens for
// the simulation endpoint.
type AuthConfig struct {
	ClientID     string   `json:"client_id" validate:"required_with=TokenURL"`
	ClientSecret string   `json:"client_secret"`
	TokenURL     string   `json:"token_url" validate:"omitempty,url"`
	Scopes       []string `json:"scopes"`
}

// Enabled reports whether requests must carry a bearer token.
func (c AuthConfig) Enabled() bool { return c.TokenURL != "" }

func (c *SimulatorConfig) SetDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "http://localhost:8000/api/simulate"
	}
}

// Timeout returns the request timeout, zero meaning none.
func (c SimulatorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// OutputConfig selects where artifacts are written.
type OutputConfig struct {
	Dir         string `json:"dir" validate:"required"`
	ChartFormat string `json:"chart_format" validate:"oneof=png svg"`
	ChartName   string `json:"chart_name" validate:"required,excludesall=/\\"`
}

func (c *OutputConfig) SetDefaults() {
	if c.Dir == "" {
		c.Dir = "results"
	}
	if c.ChartFormat == "" {
		c.ChartFormat = "png"
	}
	if c.ChartName == "" {
		c.ChartName = "energy_chart"
	}
}

// PipelineConfig tunes the decode chain.
type PipelineConfig struct {
	// Window is the number of leading rows charted.
	Window int `json:"window" validate:"gte=1"`
}

func (c *PipelineConfig) SetDefaults() {
	if c.Window == 0 {
		c.Window = 48
	}
}

// ChartConfig sizes the rendered chart.
type ChartConfig struct {
	Width  int    `json:"width" validate:"gte=200,lte=8000"`
	Height int    `json:"height" validate:"gte=150,lte=8000"`
	Step   *bool  `json:"step"`
	Title  string `json:"title"`
}

func (c *ChartConfig) SetDefaults() {
	if c.Width == 0 {
		c.Width = 1200
	}
	if c.Height == 0 {
		c.Height = 500
	}
	if c.Step == nil {
		step := true
		c.Step = &step
	}
}

// StepEnabled reports whether series are drawn as steps.
func (c ChartConfig) StepEnabled() bool { return c.Step == nil || *c.Step }

// ViewerConfig configures the local HTTP viewer.
type ViewerConfig struct {
	Address string `json:"address" validate:"required"`
	// MaxUploadMB caps the size of a multipart upload.
	MaxUploadMB int `json:"max_upload_mb" validate:"gte=1"`
}

func (c *ViewerConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.MaxUploadMB == 0 {
		c.MaxUploadMB = 32
	}
}

// MockConfig configures the local simulation endpoint.
type MockConfig struct {
	Address string `json:"address" validate:"required"`
}

func (c *MockConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8000"
	}
}
