package prompt

import (
	"strings"

	"golang.org/x/text/cases"
)

// CapabilitySet is the set of prompt sections a message's keywords
// indicate are relevant, per spec §4.7's 10 keyword groups (the same
// "needs" vocabulary C2's build_context uses to scope context
// assembly).
type CapabilitySet struct {
	Scheduling bool
	Recall     bool
	Tasks      bool
	Projects   bool
	Builds     bool
	Meta       bool
	Profile    bool
	Summarize  bool
	Heartbeat  bool
	Outcomes   bool
}

// Any reports whether at least one capability was detected.
func (c CapabilitySet) Any() bool {
	return c.Scheduling || c.Recall || c.Tasks || c.Projects || c.Builds ||
		c.Meta || c.Profile || c.Summarize || c.Heartbeat || c.Outcomes
}

var fold = cases.Fold()

// keywordGroups lists, per capability, English plus seven
// non-English-language keywords (Spanish, Portuguese, French, German,
// Italian, Dutch, Russian) with common typo/short-form variants. Not
// exhaustive translation — enough surface area that a message written
// in any of the eight languages trips the right section.
var keywordGroups = map[string][]string{
	"scheduling": {
		"remind", "reminder", "schedule", "scheduel", "every day", "every week", "recurring",
		"recordar", "recordatorio", "programar", "cada dia", "cada semana",
		"lembrar", "lembrete", "agendar", "todo dia",
		"rappel", "rappeler", "planifier", "chaque jour",
		"erinnern", "erinnerung", "planen", "jeden tag",
		"ricordare", "promemoria", "pianificare", "ogni giorno",
		"herinneren", "herinnering", "plannen", "elke dag",
		"напомни", "напоминание", "расписание", "каждый день",
	},
	"recall": {
		"remember", "recall", "what did", "earlier", "previously", "last time",
		"recuerda", "recordaste", "anteriormente",
		"lembra", "lembrou", "anteriormente",
		"souviens", "rappelle-toi", "précédemment",
		"erinnerst du dich", "vorhin", "zuvor",
		"ricordi", "ti ricordi", "in precedenza",
		"herinner je", "eerder", "weet je nog",
		"помнишь", "вспомни", "ранее",
	},
	"tasks": {
		"task", "tasks", "to-do", "todo", "pending",
		"tarea", "tareas", "pendiente",
		"tarefa", "tarefas", "pendente",
		"tâche", "tâches", "en attente",
		"aufgabe", "aufgaben", "ausstehend",
		"compito", "compiti", "in sospeso",
		"taak", "taken", "openstaand",
		"задача", "задачи", "ожидающий",
	},
	"projects": {
		"project", "projects", "switch to", "workspace",
		"proyecto", "proyectos", "cambiar a",
		"projeto", "projetos", "mudar para",
		"projet", "projets", "passer à",
		"projekt", "projekte", "wechseln zu",
		"progetto", "progetti", "passa a",
		"project", "projecten", "wisselen naar",
		"проект", "проекты", "переключись на",
	},
	"builds": {
		"build", "implement", "write code", "feature request", "propose",
		"construir", "implementar", "proponer",
		"construir", "implementar", "propor",
		"construire", "implémenter", "proposer",
		"bauen", "implementieren", "vorschlagen",
		"costruire", "implementare", "proporre",
		"bouwen", "implementeren", "voorstellen",
		"построить", "реализовать", "предложить",
	},
	"meta": {
		"forget", "purge", "reset", "personality", "language", "settings",
		"olvida", "purgar", "reiniciar", "idioma",
		"esquece", "purgar", "reiniciar", "idioma",
		"oublie", "purger", "réinitialiser", "langue",
		"vergiss", "löschen", "zurücksetzen", "sprache",
		"dimentica", "cancella", "reimposta", "lingua",
		"vergeet", "wissen", "resetten", "taal",
		"забудь", "очисти", "сбросить", "язык",
	},
	"profile": {
		"my name", "about me", "i am", "i prefer", "my timezone",
		"mi nombre", "sobre mi", "mi zona horaria",
		"meu nome", "sobre mim", "meu fuso",
		"mon nom", "à propos de moi", "mon fuseau",
		"mein name", "über mich", "meine zeitzone",
		"il mio nome", "su di me", "il mio fuso",
		"mijn naam", "over mij", "mijn tijdzone",
		"меня зовут", "обо мне", "мой часовой пояс",
	},
	"summarize": {
		"summarize", "summary", "recap", "tl;dr",
		"resume", "resumen", "resúmeme",
		"resumir", "resumo",
		"résume", "résumé",
		"zusammenfassen", "zusammenfassung",
		"riassumi", "riassunto",
		"samenvatten", "samenvatting",
		"резюмируй", "кратко",
	},
	"heartbeat": {
		"heartbeat", "check in", "check-in", "background check",
		"latido", "revisión periódica",
		"batimento", "verificação periódica",
		"battement", "vérification périodique",
		"herzschlag", "regelmäßige prüfung",
		"battito", "controllo periodico",
		"hartslag", "periodieke controle",
		"проверка", "регулярная проверка",
	},
	"outcomes": {
		"good job", "well done", "that was wrong", "lesson learned", "reward",
		"buen trabajo", "lección aprendida",
		"bom trabalho", "lição aprendida",
		"bon travail", "leçon apprise",
		"gute arbeit", "gelernte lektion",
		"buon lavoro", "lezione imparata",
		"goed gedaan", "geleerde les",
		"хорошая работа", "извлеченный урок",
	},
}

// DetectNeeds returns which capability sections text's keywords
// indicate, matching case-insensitively via Unicode casefolding
// (golang.org/x/text/cases), not plain strings.ToLower, since several
// of the eight languages' keywords rely on folding rules ASCII
// lowercase alone gets wrong (German ß, Turkish-adjacent İ/ı edge cases
// pulled in transitively by the same transformer). Accents are not
// folded: an accented keyword matches only accented text.
func DetectNeeds(text string) CapabilitySet {
	folded := fold.String(text)

	contains := func(group string) bool {
		for _, kw := range keywordGroups[group] {
			if strings.Contains(folded, fold.String(kw)) {
				return true
			}
		}
		return false
	}

	return CapabilitySet{
		Scheduling: contains("scheduling"),
		Recall:     contains("recall"),
		Tasks:      contains("tasks"),
		Projects:   contains("projects"),
		Builds:     contains("builds"),
		Meta:       contains("meta"),
		Profile:    contains("profile"),
		Summarize:  contains("summarize"),
		Heartbeat:  contains("heartbeat"),
		Outcomes:   contains("outcomes"),
	}
}
