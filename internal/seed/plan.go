package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/bpmctl/internal/bpmdb"
)

//go:embed default_plan.yaml
var defaultPlan []byte

// ErrInvalidPlan is returned when a plan fails validation.
var ErrInvalidPlan = errors.New("invalid seeding plan")

// Plan describes what the seeding commands write.
type Plan struct {
	Groups       []GroupPlan       `yaml:"groups"`
	Users        []UserPlan        `yaml:"users"`
	Responsibles []ResponsiblePlan `yaml:"responsibles"`
	Process      ProcessPlan       `yaml:"process"`
}

// GroupPlan is a group (role) to get or create.
type GroupPlan struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// UserPlan is a user to get or create and the group it joins.
type UserPlan struct {
	Username  string `yaml:"username"`
	Email     string `yaml:"email"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Password  string `yaml:"password"`
	Group     string `yaml:"group"`
	// ForTask names the task this user is meant to be responsible for. It
	// only affects the report.
	ForTask string `yaml:"for_task"`
}

// ResponsiblePlan assigns a user and a group to a task, all by id.
type ResponsiblePlan struct {
	TaskID   int64  `yaml:"task_id"`
	TaskName string `yaml:"task_name"`
	UserID   int64  `yaml:"user_id"`
	GroupID  int64  `yaml:"group_id"`
}

// ProcessPlan wires document types and start conditions of a business process.
type ProcessPlan struct {
	ID              int64                `yaml:"id"`
	EntityTypes     []int64              `yaml:"entity_types"`
	Tasks           []TaskDocumentsPlan  `yaml:"tasks"`
	StartConditions []StartConditionPlan `yaml:"start_conditions"`
}

// TaskDocumentsPlan lists the document types a task may read and edit.
type TaskDocumentsPlan struct {
	TaskID   int64   `yaml:"task_id"`
	Readable []int64 `yaml:"readable"`
	Editable []int64 `yaml:"editable"`
}

// StartConditionPlan replaces the start conditions of a task.
type StartConditionPlan struct {
	TaskID    int64               `yaml:"task_id"`
	Condition bpmdb.ConditionTree `yaml:"condition"`
}

// DefaultPlan returns the built-in plan for the "Обработка заявки" process.
func DefaultPlan() (Plan, error) {
	return ParsePlan(defaultPlan)
}

// LoadPlan reads a YAML plan from path.
func LoadPlan(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("read plan: %w", err)
	}
	return ParsePlan(data)
}

// ParsePlan decodes and validates a YAML plan.
func ParsePlan(data []byte) (Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Plan{}, fmt.Errorf("parse YAML plan: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// Validate checks that names are set and every user's group is declared.
func (p Plan) Validate() error {
	groups := make(map[string]struct{}, len(p.Groups))
	for i, g := range p.Groups {
		if g.Name == "" {
			return fmt.Errorf("%w: group #%d has no name", ErrInvalidPlan, i+1)
		}
		groups[g.Name] = struct{}{}
	}

	for i, u := range p.Users {
		if u.Username == "" {
			return fmt.Errorf("%w: user #%d has no username", ErrInvalidPlan, i+1)
		}
		if u.Group == "" {
			continue
		}
		if _, ok := groups[u.Group]; !ok {
			return fmt.Errorf("%w: user %s references undeclared group %q", ErrInvalidPlan, u.Username, u.Group)
		}
	}

	for i, r := range p.Responsibles {
		if r.TaskID <= 0 || r.UserID <= 0 || r.GroupID <= 0 {
			return fmt.Errorf("%w: responsible #%d needs positive task, user and group ids", ErrInvalidPlan, i+1)
		}
	}
	return nil
}
