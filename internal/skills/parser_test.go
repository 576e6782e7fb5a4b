package skills

import "testing"

const validSkill = `---
name: deploy-helper
description: Helps draft deployment checklists
trigger: deploy|ship it
requires:
  bins:
    - kubectl
mcp_servers:
  - name: k8s
    command: kubectl-mcp
    args: ["--readonly"]
---
## Deploy checklist

1. Confirm the release branch is green.
2. Tag the release.
`

func TestParseExtractsFrontmatterAndBody(t *testing.T) {
	skill, err := Parse([]byte(validSkill))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if skill.Name != "deploy-helper" || skill.Trigger != "deploy|ship it" {
		t.Fatalf("Parse() = %+v", skill)
	}
	if len(skill.RequiredBinaries) != 1 || skill.RequiredBinaries[0] != "kubectl" {
		t.Fatalf("RequiredBinaries = %+v", skill.RequiredBinaries)
	}
	if len(skill.MCPServers) != 1 || skill.MCPServers[0].Command != "kubectl-mcp" {
		t.Fatalf("MCPServers = %+v", skill.MCPServers)
	}
	if skill.Instructions == "" || skill.Instructions[:2] != "##" {
		t.Fatalf("Instructions = %q, want body starting with heading", skill.Instructions)
	}
}

func TestParseRejectsMissingName(t *testing.T) {
	_, err := Parse([]byte("---\ntrigger: deploy\n---\nbody\n"))
	if err == nil {
		t.Fatal("Parse() error = nil, want error for missing name")
	}
}

func TestParseRejectsMissingTrigger(t *testing.T) {
	_, err := Parse([]byte("---\nname: foo\n---\nbody\n"))
	if err == nil {
		t.Fatal("Parse() error = nil, want error for missing trigger")
	}
}

func TestParseRejectsTOMLFrontmatter(t *testing.T) {
	_, err := Parse([]byte("+++\nname = \"foo\"\n+++\nbody\n"))
	if err == nil {
		t.Fatal("Parse() error = nil, want error for TOML frontmatter")
	}
}

func TestParseRejectsUnclosedFrontmatter(t *testing.T) {
	_, err := Parse([]byte("---\nname: foo\ntrigger: x\nbody without closing delimiter"))
	if err == nil {
		t.Fatal("Parse() error = nil, want error for unclosed frontmatter")
	}
}
