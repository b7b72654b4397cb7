package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileConfig is the optional YAML configuration file
type FileConfig struct {
	ICQ struct {
		Phone   string `yaml:"phone"`
		APIBase string `yaml:"api_base"`
		DevID   string `yaml:"dev_id"`
	} `yaml:"icq"`
	Poll struct {
		TimeoutMS            int `yaml:"timeout_ms"`
		RetryDelaySec        int `yaml:"retry_delay_sec"`
		DisconnectedDelaySec int `yaml:"disconnected_delay_sec"`
	} `yaml:"poll"`
	Storage struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`
	LogLevel string        `yaml:"log_level"`
	Prompts  PromptsConfig `yaml:"prompts"`
}

// PromptsConfig contains the texts of user input requests
type PromptsConfig struct {
	SMSCode InputPrompt `yaml:"sms_code"`
}

// InputPrompt is the text of one input request
type InputPrompt struct {
	Title     string `yaml:"title"`
	Primary   string `yaml:"primary"`
	Secondary string `yaml:"secondary"`
	OK        string `yaml:"ok"`
	Cancel    string `yaml:"cancel"`
}

// LoadFile loads the YAML configuration file.
// A missing file is not an error: defaults are returned.
func LoadFile(configPath string) (*FileConfig, error) {
	// Try multiple paths
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/icq.yaml",
			"/etc/icq-bridge/icq.yaml",
		}
		// Add path relative to executable
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "icq.yaml"))
		}
	}

	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}

	config := &FileConfig{}
	if data == nil {
		config.fillDefaults()
		return config, nil
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		config = &FileConfig{}
		config.fillDefaults()
		return config, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.fillDefaults()
	return config, nil
}

// fillDefaults fills in default values for empty fields
func (c *FileConfig) fillDefaults() {
	defaults := DefaultPromptsConfig()

	if c.Prompts.SMSCode.Title == "" {
		c.Prompts.SMSCode.Title = defaults.SMSCode.Title
	}
	if c.Prompts.SMSCode.Primary == "" {
		c.Prompts.SMSCode.Primary = defaults.SMSCode.Primary
	}
	if c.Prompts.SMSCode.Secondary == "" {
		c.Prompts.SMSCode.Secondary = defaults.SMSCode.Secondary
	}
	if c.Prompts.SMSCode.OK == "" {
		c.Prompts.SMSCode.OK = defaults.SMSCode.OK
	}
	if c.Prompts.SMSCode.Cancel == "" {
		c.Prompts.SMSCode.Cancel = defaults.SMSCode.Cancel
	}
}

// DefaultPromptsConfig returns the default prompts configuration
func DefaultPromptsConfig() *PromptsConfig {
	return &PromptsConfig{
		SMSCode: InputPrompt{
			Title:     "SMS Code",
			Primary:   "Enter SMS code",
			Secondary: "You will be sent an SMS message containing your auth code.",
			OK:        "Login",
			Cancel:    "Cancel",
		},
	}
}
