package cli

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/meetmesh/core"
)

// Scenario is a scripted negotiation loaded from YAML.
//
//	request:
//	  title: Quarterly review
//	  category: performance-review
//	  participants: [alice, bob]
//	  roles: {alice: superior}
//	  duration: 30m
//	people:
//	  - {ref: alice, name: Alice, rank: manager}
//	replies:
//	  alice: ["Tuesday at 10"]
//	  bob: ["that works"]
type Scenario struct {
	Request  ScenarioRequest                  `yaml:"request"`
	People   []ScenarioPerson                 `yaml:"people,omitempty"`
	Replies  map[core.ParticipantRef][]string `yaml:"replies,omitempty"`
	Now      time.Time                        `yaml:"now,omitempty"`
	Location string                           `yaml:"location,omitempty"`
}

// ScenarioRequest mirrors core.MeetingRequest.
type ScenarioRequest struct {
	Title        string                                   `yaml:"title"`
	Description  string                                   `yaml:"description,omitempty"`
	Category     core.Category                            `yaml:"category,omitempty"`
	Participants []core.ParticipantRef                    `yaml:"participants"`
	Roles        map[core.ParticipantRef]core.MeetingRole `yaml:"roles,omitempty"`
	Organizer    core.ParticipantRef                      `yaml:"organizer,omitempty"`
	Coordinator  core.ParticipantRef                      `yaml:"coordinator,omitempty"`
	Duration     time.Duration                            `yaml:"duration,omitempty"`
	TimeRange    core.TimeRange                           `yaml:"time_range,omitempty"`
	Constraints  core.Constraints                         `yaml:"constraints,omitempty"`
}

// ScenarioPerson mirrors core.Participant.
type ScenarioPerson struct {
	Ref      core.ParticipantRef `yaml:"ref"`
	Name     string              `yaml:"name,omitempty"`
	Rank     core.Rank           `yaml:"rank,omitempty"`
	External bool                `yaml:"external,omitempty"`
	Free     []core.TimeSlot     `yaml:"free,omitempty"`
	Busy     []core.TimeSlot     `yaml:"busy,omitempty"`
}

// LoadScenario reads and parses a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	if s.Request.Title == "" {
		return nil, fmt.Errorf("parse scenario: request.title is required")
	}

	return &s, nil
}

// MeetingRequest converts the scenario request.
func (s *Scenario) MeetingRequest() core.MeetingRequest {
	r := s.Request
	return core.MeetingRequest{
		Title:        r.Title,
		Description:  r.Description,
		Category:     r.Category,
		Participants: r.Participants,
		Roles:        r.Roles,
		Organizer:    r.Organizer,
		Coordinator:  r.Coordinator,
		Duration:     r.Duration,
		TimeRange:    r.TimeRange,
		Constraints:  r.Constraints,
	}
}

// Participants converts the scenario people.
func (s *Scenario) Participants() []core.Participant {
	out := make([]core.Participant, 0, len(s.People))
	for _, p := range s.People {
		out = append(out, core.Participant{
			Ref:          p.Ref,
			Name:         p.Name,
			Rank:         p.Rank,
			External:     p.External,
			Availability: core.Availability{Free: p.Free, Busy: p.Busy},
		})
	}
	return out
}

// Loc resolves the scenario's time zone.
func (s *Scenario) Loc() (*time.Location, error) {
	if s.Location == "" {
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(s.Location)
	if err != nil {
		return nil, fmt.Errorf("scenario location: %w", err)
	}

	return loc, nil
}
