package models

import (
	"encoding/json"
	"strings"
)

const (
	DefaultForeground = "#000000"
	DefaultBackground = "#ffffff"
	DefaultSize       = 512
)

// RenderSettings controls how a payload is drawn. The encoder never reads it.
type RenderSettings struct {
	ForegroundColor string `json:"foregroundColor"`
	BackgroundColor string `json:"backgroundColor"`
	Size            int    `json:"size"`
	LogoURL         string `json:"logoUrl,omitempty"`
	LogoSize        int    `json:"logoSize,omitempty"`
	Template        string `json:"template,omitempty"`
	FrameStyle      string `json:"frameStyle,omitempty"`
	EyePattern      string `json:"eyePattern,omitempty"`
}

func DefaultRenderSettings() RenderSettings {
	return RenderSettings{
		ForegroundColor: DefaultForeground,
		BackgroundColor: DefaultBackground,
		Size:            DefaultSize,
	}
}

// WithDefaults fills unset colors and size.
func (s RenderSettings) WithDefaults(size int) RenderSettings {
	if strings.TrimSpace(s.ForegroundColor) == "" {
		s.ForegroundColor = DefaultForeground
	}
	if strings.TrimSpace(s.BackgroundColor) == "" {
		s.BackgroundColor = DefaultBackground
	}
	if s.Size <= 0 {
		if size <= 0 {
			size = DefaultSize
		}
		s.Size = size
	}
	return s
}

func MarshalSettings(s RenderSettings) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalSettings parses stored design settings; empty input yields defaults.
func UnmarshalSettings(s string) (RenderSettings, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultRenderSettings(), nil
	}
	var rs RenderSettings
	if err := json.Unmarshal([]byte(s), &rs); err != nil {
		return RenderSettings{}, err
	}
	return rs, nil
}
