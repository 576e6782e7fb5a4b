// Package skills loads SKILL.md capability declarations from disk: a
// directory per skill containing a frontmatter-delimited markdown file
// whose body becomes the instructions injected into the prompt when
// the skill's trigger matches.
package skills

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/omegacore/omega/pkg/models"
)

// Filename is the expected skill declaration file in each skill directory.
const Filename = "SKILL.md"

const frontmatterDelimiter = "---"

type mcpServerYAML struct {
	Name    string            `yaml:"name"`
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Env     map[string]string `yaml:"env"`
}

type frontmatter struct {
	Name     string `yaml:"name"`
	Description string `yaml:"description"`
	Trigger  string `yaml:"trigger"`
	Disabled bool   `yaml:"disabled"`
	Requires struct {
		Bins []string `yaml:"bins"`
	} `yaml:"requires"`
	MCPServers []mcpServerYAML `yaml:"mcp_servers"`
}

// ParseFile reads a SKILL.md file and returns the declared skill.
func ParseFile(path string) (*models.Skill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read skill file: %w", err)
	}
	return Parse(data)
}

// Parse splits YAML/TOML-style frontmatter from a SKILL.md body and
// builds the declared skill. Only YAML frontmatter is supported; a
// TOML document (delimited by "+++") is rejected with a clear error
// rather than silently ignored.
func Parse(data []byte) (*models.Skill, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	var f frontmatter
	if err := yaml.Unmarshal(fm, &f); err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	if strings.TrimSpace(f.Name) == "" {
		return nil, fmt.Errorf("skill name is required")
	}
	if strings.TrimSpace(f.Trigger) == "" {
		return nil, fmt.Errorf("skill %q: trigger is required", f.Name)
	}

	var mcpServers []models.MCPServerConfig
	for _, m := range f.MCPServers {
		mcpServers = append(mcpServers, models.MCPServerConfig{
			Name:    m.Name,
			Command: m.Command,
			Args:    m.Args,
			Env:     m.Env,
		})
	}

	return &models.Skill{
		Name:             f.Name,
		Description:      f.Description,
		Trigger:          f.Trigger,
		Instructions:     strings.TrimSpace(string(body)),
		MCPServers:       mcpServers,
		RequiredBinaries: f.Requires.Bins,
		Disabled:         f.Disabled,
	}, nil
}

// splitFrontmatter separates a "---\n...\n---\n" YAML block from the
// markdown body that follows it.
func splitFrontmatter(data []byte) (fm, body []byte, err error) {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("+++")) {
		return nil, nil, fmt.Errorf("TOML frontmatter is not supported, use YAML")
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	if !scanner.Scan() {
		return nil, nil, fmt.Errorf("empty skill file")
	}
	if strings.TrimSpace(scanner.Text()) != frontmatterDelimiter {
		return nil, nil, fmt.Errorf("missing opening frontmatter delimiter")
	}

	var fmLines []string
	closed := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == frontmatterDelimiter {
			closed = true
			break
		}
		fmLines = append(fmLines, line)
	}
	if !closed {
		return nil, nil, fmt.Errorf("missing closing frontmatter delimiter")
	}

	var bodyLines []string
	for scanner.Scan() {
		bodyLines = append(bodyLines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scan skill file: %w", err)
	}

	return []byte(strings.Join(fmLines, "\n")), []byte(strings.Join(bodyLines, "\n")), nil
}

// dirName derives the skill directory name one level up from SKILL.md,
// used only for diagnostics — the declared Name is authoritative.
func dirName(path string) string {
	return filepath.Base(filepath.Dir(path))
}
