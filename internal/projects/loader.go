// Package projects loads Project declarations from data_dir/projects/,
// per spec §6.4 and §4.6: each subdirectory is a project named by its
// directory name, with a required ROLE.md, an optional HEARTBEAT.md
// checklist, and a .disabled marker file suspending its heartbeat.
//
// Unlike internal/skills, projects are reloaded from disk on every
// message — the spec calls this "cheap enough; small files" — so there
// is no watcher and no cache here, just a direct Load per call.
package projects

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/omegacore/omega/internal/markers"
	"github.com/omegacore/omega/pkg/models"
)

// Load reads one project by name. It returns (nil, nil) if the
// project's directory or its required ROLE.md is missing, since an
// active_project fact can outlive the directory it named.
func Load(dataDir, name string) (*models.Project, error) {
	rolePath := markers.ProjectRolePath(dataDir, name)
	role, err := os.ReadFile(rolePath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p := &models.Project{
		Name:             name,
		RoleInstructions: strings.TrimSpace(string(role)),
	}

	if checklist, err := os.ReadFile(markers.ProjectHeartbeatPath(dataDir, name)); err == nil {
		p.HeartbeatChecklist = strings.TrimSpace(string(checklist))
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if _, err := os.Stat(markers.ProjectDisabledPath(dataDir, name)); err == nil {
		p.Disabled = true
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	p.SkillDeclarations = parseSkillDeclarations(p.RoleInstructions)

	return p, nil
}

// LoadAll reads every project directory under dataDir/projects,
// skipping any that lack a ROLE.md, sorted by name.
func LoadAll(dataDir string) ([]*models.Project, error) {
	entries, err := os.ReadDir(filepath.Join(dataDir, "projects"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var projects []*models.Project
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		p, err := Load(dataDir, entry.Name())
		if err != nil {
			return nil, err
		}
		if p != nil {
			projects = append(projects, p)
		}
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].Name < projects[j].Name })
	return projects, nil
}

// ListActive returns the subset of LoadAll whose heartbeat is not
// suspended by a .disabled file — the set the heartbeat loop's project
// phase iterates.
func ListActive(dataDir string) ([]*models.Project, error) {
	all, err := LoadAll(dataDir)
	if err != nil {
		return nil, err
	}
	var active []*models.Project
	for _, p := range all {
		if !p.Disabled {
			active = append(active, p)
		}
	}
	return active, nil
}

// SuppressedSections reads a project's HEARTBEAT.suppress file (or the
// global one when name is empty), returning the set of checklist
// section names the heartbeat loop must skip.
func SuppressedSections(dataDir, name string) (map[string]bool, error) {
	path := markers.GlobalSuppressPath(dataDir)
	if name != "" {
		path = markers.ProjectSuppressPath(dataDir, name)
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	suppressed := make(map[string]bool)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		suppressed[strings.ToLower(line)] = true
	}
	return suppressed, nil
}

// skillDeclHeading is the ROLE.md heading under which a project lists
// the skill names it wants available even outside their own triggers.
const skillDeclHeading = "## Skills"

// parseSkillDeclarations extracts "- name" bullet lines under a
// "## Skills" heading in ROLE.md, if present. Absence of the heading
// means the project declares no extra skills beyond trigger matching.
func parseSkillDeclarations(role string) []string {
	lines := strings.Split(role, "\n")
	var decls []string
	inSection := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			inSection = strings.EqualFold(trimmed, skillDeclHeading)
			continue
		}
		if !inSection {
			continue
		}
		if name, ok := strings.CutPrefix(trimmed, "- "); ok {
			if name = strings.TrimSpace(name); name != "" {
				decls = append(decls, name)
			}
		}
	}
	return decls
}
