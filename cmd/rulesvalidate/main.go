// Command rulesvalidate loads a rules YAML file and reports parse or
// type errors without starting the server, so a rule-set edit can be
// checked in CI before the hot-reload loader ever sees it.
package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Abhinay1073/cyepro-notification-engine/internal/domain"
)

type ruleFile struct {
	Rules []domain.Rule `yaml:"rules"`
}

var validActions = map[domain.RuleAction]bool{
	domain.ActionDefer:    true,
	domain.ActionSuppress: true,
	domain.ActionSendNow:  true,
	domain.ActionCap:      true,
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: rulesvalidate <rules.yaml>")
		os.Exit(2)
	}

	path := os.Args[1]
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", path, err)
		os.Exit(1)
	}

	var parsed ruleFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse %s: %v\n", path, err)
		os.Exit(1)
	}

	var problems []string
	seen := make(map[string]bool)
	for i, r := range parsed.Rules {
		if r.RuleID == "" {
			problems = append(problems, fmt.Sprintf("rule[%d]: missing rule_id", i))
			continue
		}
		if seen[r.RuleID] {
			problems = append(problems, fmt.Sprintf("rule[%d] (%s): duplicate rule_id", i, r.RuleID))
		}
		seen[r.RuleID] = true

		if !validActions[r.Action] {
			problems = append(problems, fmt.Sprintf("rule %s: unknown action %q", r.RuleID, r.Action))
		}
		if r.Action == domain.ActionCap && r.MaxPer == nil {
			problems = append(problems, fmt.Sprintf("rule %s: CAP action requires max_per", r.RuleID))
		}
	}

	if len(problems) > 0 {
		fmt.Fprintf(os.Stderr, "%s: %d rule(s) loaded, %d problem(s):\n", path, len(parsed.Rules), len(problems))
		for _, p := range problems {
			fmt.Fprintln(os.Stderr, " -", p)
		}
		os.Exit(1)
	}

	fmt.Printf("%s: OK, %d rule(s) valid\n", path, len(parsed.Rules))
}
