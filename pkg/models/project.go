package models

// Project is a named scope of work declared via a ROLE.md file: its own
// system instructions, optional heartbeat checklist, and the skills it
// declares as available to it.
type Project struct {
	Name               string   `json:"name"`
	RoleInstructions   string   `json:"role_instructions"`
	HeartbeatChecklist string   `json:"heartbeat_checklist,omitempty"`
	SkillDeclarations  []string `json:"skill_declarations,omitempty"`
	Disabled           bool     `json:"disabled"`
}

// DeclaresSkill reports whether name was listed in this project's
// skill_declarations.
func (p *Project) DeclaresSkill(name string) bool {
	if p == nil {
		return false
	}
	for _, s := range p.SkillDeclarations {
		if s == name {
			return true
		}
	}
	return false
}
