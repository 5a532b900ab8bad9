package content

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type fileRubric struct {
	Role string `yaml:"role"`
	Text string `yaml:"text"`
}

type fileResume struct {
	Candidate string `yaml:"candidate"`
	Role      string `yaml:"role"`
	Text      string `yaml:"text"`
}

type file struct {
	Rubrics []fileRubric `yaml:"rubrics"`
	Resumes []fileResume `yaml:"resumes"`
}

// LoadFile reads rubrics and resumes from a YAML file.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading content file %q: %w", path, err)
	}

	return Parse(data)
}

// Parse builds a store from YAML content.
func Parse(data []byte) (*Store, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}

	s := New()
	for i, r := range f.Rubrics {
		if strings.TrimSpace(r.Role) == "" {
			return nil, fmt.Errorf("rubric #%d: role is required", i)
		}
		if strings.TrimSpace(r.Text) == "" {
			return nil, fmt.Errorf("rubric %q: text is required", r.Role)
		}
		s.AddRubric(r.Role, r.Text)
	}

	for i, r := range f.Resumes {
		if strings.TrimSpace(r.Candidate) == "" || strings.TrimSpace(r.Role) == "" {
			return nil, fmt.Errorf("resume #%d: candidate and role are required", i)
		}
		if strings.TrimSpace(r.Text) == "" {
			return nil, fmt.Errorf("resume %q/%q: text is required", r.Candidate, r.Role)
		}
		s.AddResume(r.Candidate, r.Role, r.Text)
	}

	return s, nil
}
