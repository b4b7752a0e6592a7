package quakefile

import (
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// file is the top-level YAML document.
type file struct {
	Version int      `yaml:"version"`
	Tasks   taskList `yaml:"tasks"`
}

// taskList decodes the tasks mapping keeping document order, so tasks
// register top to bottom the way the script declares them.
type taskList struct {
	order []string
	specs map[string]taskSpec
}

func (ts *taskList) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return zerr.New("tasks must be a mapping")
	}
	ts.specs = make(map[string]taskSpec, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var name string
		if err := node.Content[i].Decode(&name); err != nil {
			return err
		}
		var spec taskSpec
		if err := node.Content[i+1].Decode(&spec); err != nil {
			return err
		}
		// Repeated keys stay in order so the registry reports the duplicate.
		ts.order = append(ts.order, name)
		ts.specs[name] = spec
	}
	return nil
}

// taskSpec is the YAML shape of a single task definition. String fields
// may reference declared params as ${name}; foreach subtask commands may
// additionally reference ${file}.
type taskSpec struct {
	Params   []string          `yaml:"params"`
	Pure     bool              `yaml:"pure"`
	Deps     []string          `yaml:"deps"`
	Sources  []string          `yaml:"sources"`
	Produces []string          `yaml:"produces"`
	Cmd      []string          `yaml:"cmd"`
	Dir      string            `yaml:"dir"`
	Env      map[string]string `yaml:"env"`

	// Foreach is a glob pattern; each match becomes a subtask running Cmd
	// with ${file} bound to the matched path.
	Foreach string `yaml:"foreach"`
}
