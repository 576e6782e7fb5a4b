package prompt

import (
	"os"
	"strconv"

	toml "github.com/pelletier/go-toml/v2"
)

// stageThresholds are the minimum fact counts required to reach
// stages 1..4 (stage 0 is "no facts yet", the implicit floor). Stage 4
// is "fully onboarded" — no more hints.
var stageThresholds = []int{1, 3, 6, 10}

// Stage computes the onboarding stage (0..4) from how many facts are
// known about a sender.
func Stage(factCount int) int {
	stage := 0
	for _, threshold := range stageThresholds {
		if factCount < threshold {
			break
		}
		stage++
	}
	return stage
}

// welcomeFile is prompts/WELCOME.toml's shape: one table per language,
// each table mapping a stage number (as a string key, since TOML keys
// are strings) to that stage's hint text.
type welcomeFile map[string]map[string]string

// StageHint returns the one-shot hint text for a (language, stage)
// pair, or "" if WELCOME.toml has nothing for it (missing file,
// missing language, missing stage, or stage 4 which has no hint by
// convention).
func StageHint(welcomePath, language string, stage int) (string, error) {
	data, err := os.ReadFile(welcomePath)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	var wf welcomeFile
	if err := toml.Unmarshal(data, &wf); err != nil {
		return "", err
	}

	hints, ok := wf[language]
	if !ok {
		hints, ok = wf[LangEnglish]
		if !ok {
			return "", nil
		}
	}
	return hints[strconv.Itoa(stage)], nil
}
