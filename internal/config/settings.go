// Package config handles JSON settings loading for the SDK.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// ApprovalRule is the file-based form of an approval rule.
type ApprovalRule struct {
	Pattern        string  `json:"pattern"`
	Decision       string  `json:"decision"` // "allow", "deny", "ask"
	ThresholdField string  `json:"thresholdField,omitempty"`
	ThresholdMax   float64 `json:"thresholdMax,omitempty"`
}

// Settings holds merged configuration from multiple sources.
// Later sources override earlier ones (user < project < local).
type Settings struct {
	Model           string         `json:"model,omitempty"`
	SystemPrompt    string         `json:"systemPrompt,omitempty"`
	MaxTurns        int            `json:"maxTurns,omitempty"`
	ConversationDir string         `json:"conversationDir,omitempty"`
	ApprovalMode    string         `json:"approvalMode,omitempty"`
	ApprovalRules   []ApprovalRule `json:"approvalRules,omitempty"`
}

// LoadSettings merges settings from multiple JSON file paths.
// Later paths override earlier ones. Missing files are silently skipped.
func LoadSettings(paths ...string) (*Settings, error) {
	merged := &Settings{}

	for _, path := range paths {
		s, err := loadSettingsFile(path)
		if err != nil {
			continue // Skip missing or invalid files
		}
		mergeSettings(merged, s)
	}

	return merged, nil
}

// DefaultSettingsPaths returns the standard settings file search paths.
func DefaultSettingsPaths(projectDir string) []string {
	home, _ := os.UserHomeDir()
	var paths []string

	if home != "" {
		paths = append(paths, filepath.Join(home, ".gatekit", "settings.json"))
	}

	if projectDir != "" {
		paths = append(paths, filepath.Join(projectDir, ".gatekit", "settings.json"))
	}

	return paths
}

func loadSettingsFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func mergeSettings(dst, src *Settings) {
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.SystemPrompt != "" {
		dst.SystemPrompt = src.SystemPrompt
	}
	if src.MaxTurns > 0 {
		dst.MaxTurns = src.MaxTurns
	}
	if src.ConversationDir != "" {
		dst.ConversationDir = src.ConversationDir
	}
	if src.ApprovalMode != "" {
		dst.ApprovalMode = src.ApprovalMode
	}
	if len(src.ApprovalRules) > 0 {
		dst.ApprovalRules = src.ApprovalRules
	}
}
