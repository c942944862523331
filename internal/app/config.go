package app

import (
	"os"
	"strings"

	types "github.com/bass-society/secretary-backend/internal/domain"
	"github.com/bass-society/secretary-backend/internal/pkg/logger"
	"github.com/bass-society/secretary-backend/internal/utils"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port         string
	AllowOrigins []string
	WatchDir     string

	MeetingTypes []string
	MaxToolCalls int

	MemberCutoff  float64
	ProjectCutoff float64
	TopicCutoff   float64
}

// fileConfig is the optional YAML overlay, pointed at by SECRETARY_CONFIG.
// Environment variables win over the file.
type fileConfig struct {
	Port          string   `yaml:"port"`
	AllowOrigins  []string `yaml:"allow_origins"`
	WatchDir      string   `yaml:"watch_dir"`
	MeetingTypes  []string `yaml:"meeting_types"`
	MaxToolCalls  int      `yaml:"max_tool_calls"`
	MemberCutoff  float64  `yaml:"member_cutoff"`
	ProjectCutoff float64  `yaml:"project_cutoff"`
	TopicCutoff   float64  `yaml:"topic_cutoff"`
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:          "8080",
		AllowOrigins:  []string{"http://localhost:3000"},
		WatchDir:      "transcripts",
		MeetingTypes:  types.DefaultMeetingTypes(),
		MaxToolCalls:  6,
		MemberCutoff:  0.70,
		ProjectCutoff: 0.60,
		TopicCutoff:   0.70,
	}

	if path := strings.TrimSpace(os.Getenv("SECRETARY_CONFIG")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Warn("Could not read config file", "path", path, "error", err)
		} else {
			var fc fileConfig
			if err := yaml.Unmarshal(raw, &fc); err != nil {
				log.Warn("Could not parse config file", "path", path, "error", err)
			} else {
				if fc.Port != "" {
					cfg.Port = fc.Port
				}
				if len(fc.AllowOrigins) > 0 {
					cfg.AllowOrigins = fc.AllowOrigins
				}
				if fc.WatchDir != "" {
					cfg.WatchDir = fc.WatchDir
				}
				if len(fc.MeetingTypes) > 0 {
					cfg.MeetingTypes = fc.MeetingTypes
				}
				if fc.MaxToolCalls > 0 {
					cfg.MaxToolCalls = fc.MaxToolCalls
				}
				if fc.MemberCutoff > 0 {
					cfg.MemberCutoff = fc.MemberCutoff
				}
				if fc.ProjectCutoff > 0 {
					cfg.ProjectCutoff = fc.ProjectCutoff
				}
				if fc.TopicCutoff > 0 {
					cfg.TopicCutoff = fc.TopicCutoff
				}
			}
		}
	}

	cfg.Port = utils.GetEnv("PORT", cfg.Port, log)
	cfg.WatchDir = utils.GetEnv("WATCH_DIR", cfg.WatchDir, log)
	cfg.MaxToolCalls = utils.GetEnvAsInt("MAX_TOOL_CALLS", cfg.MaxToolCalls, log)
	cfg.MemberCutoff = utils.GetEnvAsFloat("MEMBER_CUTOFF", cfg.MemberCutoff, log)
	cfg.ProjectCutoff = utils.GetEnvAsFloat("PROJECT_CUTOFF", cfg.ProjectCutoff, log)
	cfg.TopicCutoff = utils.GetEnvAsFloat("TOPIC_CUTOFF", cfg.TopicCutoff, log)
	if origins := strings.TrimSpace(os.Getenv("ALLOW_ORIGINS")); origins != "" {
		cfg.AllowOrigins = strings.Split(origins, ",")
	}

	return cfg
}
