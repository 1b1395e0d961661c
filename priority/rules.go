package priority

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/meetmesh/core"
)

// RuleTable is the data behind the priority engine: which role coordinates a
// meeting of a given category and how ranks compare.
type RuleTable struct {
	Version string            `yaml:"version"`
	Rules   []Rule            `yaml:"rules"`
	Ranks   map[core.Rank]int `yaml:"ranks"`
	// ExternalFirst ranks external participants above internal ones of equal rank.
	ExternalFirst bool `yaml:"external_first"`
}

// Rule maps a meeting category to the role whose holder coordinates it.
type Rule struct {
	Category    core.Category       `yaml:"category"`
	Role        core.MeetingRole    `yaml:"role"`
	Coordinator core.ParticipantRef `yaml:"coordinator,omitempty"` // explicit designation, overrides rank
	Description string              `yaml:"description,omitempty"`
}

// DefaultRules returns the built-in rule table.
func DefaultRules() RuleTable {
	return RuleTable{
		Version: "1",
		Rules: []Rule{
			{Category: core.CategoryInterview, Role: core.RoleInterviewer, Description: "the interviewer decides"},
			{Category: core.CategoryPerformanceReview, Role: core.RoleSuperior, Description: "the superior decides"},
			{Category: core.CategoryProjectMeeting, Role: core.RoleProjectLead, Description: "the project lead decides"},
			{Category: core.CategoryTraining, Role: core.RoleInstructor, Description: "the instructor decides"},
			{Category: core.CategoryOther, Role: core.RoleRequester, Description: "the organizer decides"},
		},
		Ranks: map[core.Rank]int{
			core.RankExecutive: 3,
			core.RankManager:   2,
			core.RankStaff:     1,
		},
		ExternalFirst: true,
	}
}

// LoadRules loads a rule table from a YAML file. Missing ranks fall back to
// the defaults.
func LoadRules(path string) (RuleTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleTable{}, fmt.Errorf("read rules file: %w", err)
	}

	return ParseRules(data)
}

// ParseRules decodes a YAML rule table.
func ParseRules(data []byte) (RuleTable, error) {
	var rules RuleTable
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return RuleTable{}, fmt.Errorf("parse rules file: %w", err)
	}

	if err := rules.Validate(); err != nil {
		return RuleTable{}, err
	}

	if len(rules.Ranks) == 0 {
		rules.Ranks = DefaultRules().Ranks
	}

	return rules, nil
}

// Validate rejects tables with empty or duplicate categories.
func (t RuleTable) Validate() error {
	seen := make(map[core.Category]struct{}, len(t.Rules))
	for i, r := range t.Rules {
		if r.Category == "" {
			return fmt.Errorf("rule %d: category is required", i)
		}
		if r.Role == "" && r.Coordinator == "" {
			return fmt.Errorf("rule %s: role or coordinator is required", r.Category)
		}
		if _, dup := seen[r.Category]; dup {
			return fmt.Errorf("rule %s: duplicate category", r.Category)
		}
		seen[r.Category] = struct{}{}
	}
	return nil
}

// Marshal renders the table as YAML.
func (t RuleTable) Marshal() ([]byte, error) {
	return yaml.Marshal(t)
}

// ruleFor returns the rule for category, falling back to the "other" rule.
func (t RuleTable) ruleFor(c core.Category) (Rule, bool) {
	var fallback *Rule
	for i := range t.Rules {
		if t.Rules[i].Category == c {
			return t.Rules[i], true
		}
		if t.Rules[i].Category == core.CategoryOther {
			fallback = &t.Rules[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return Rule{}, false
}
