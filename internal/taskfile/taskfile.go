// Package taskfile reads one task's polyhedral model from the section-
// headered text format internal/polyset's Write{Set,Relation,
// ScheduleTree} helpers produce. A parameter value file is a separate,
// paired input (internal/paramfile): this file only declares the
// parameter *names* a task's sets and relations refer to.
package taskfile

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/model"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/polyset"
)

var headers = map[string]bool{
	"Parameters":  true,
	"InstanceSet": true,
	"ArrayExtent": true,
	"Schedule":    true,
	"MayReads":    true,
	"MayWrites":   true,
	"MustWrites":  true,
}

// Parse reads a task file, naming the returned Task with name (the
// CLI's own task_name argument, not anything stored in the file).
func Parse(r io.Reader, name string) (*model.Task, error) {
	sections, err := splitSections(r)
	if err != nil {
		return nil, errors.Wrap(err, "taskfile: splitting sections")
	}

	task := &model.Task{Name: name}
	for _, p := range strings.Split(strings.TrimSpace(sectionText(sections, "Parameters")), ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			task.Parameters = append(task.Parameters, model.Parameter{Name: p})
		}
	}

	instanceSet, ok := sections["InstanceSet"]
	if !ok {
		return nil, errors.New("taskfile: missing InstanceSet section")
	}
	if task.InstanceSet, err = polyset.ReadSet(strings.NewReader(strings.Join(instanceSet, "\n"))); err != nil {
		return nil, errors.Wrap(err, "taskfile: parsing InstanceSet")
	}

	extent, ok := sections["ArrayExtent"]
	if !ok {
		return nil, errors.New("taskfile: missing ArrayExtent section")
	}
	if task.ArrayExtent, err = polyset.ReadSet(strings.NewReader(strings.Join(extent, "\n"))); err != nil {
		return nil, errors.Wrap(err, "taskfile: parsing ArrayExtent")
	}

	schedule, ok := sections["Schedule"]
	if !ok {
		return nil, errors.New("taskfile: missing Schedule section")
	}
	if task.ScheduleTree, err = polyset.ReadScheduleTree(strings.NewReader(strings.Join(schedule, "\n"))); err != nil {
		return nil, errors.Wrap(err, "taskfile: parsing Schedule")
	}

	if task.MayReads, err = parseOptionalRelation(sections, "MayReads"); err != nil {
		return nil, err
	}
	if task.MayWrites, err = parseOptionalRelation(sections, "MayWrites"); err != nil {
		return nil, err
	}
	if task.MustWrites, err = parseOptionalRelation(sections, "MustWrites"); err != nil {
		return nil, err
	}
	return task, nil
}

// parseOptionalRelation returns the zero Relation for a section that is
// absent or whose body is the literal token "none": an empty access
// relation contributes nothing, and not every task exercises all three
// access kinds.
func parseOptionalRelation(sections map[string][]string, key string) (polyset.Relation, error) {
	lines, ok := sections[key]
	if !ok || len(lines) == 0 || strings.TrimSpace(lines[0]) == "none" {
		return polyset.Relation{}, nil
	}
	rel, err := polyset.ReadRelation(strings.NewReader(strings.Join(lines, "\n")))
	if err != nil {
		return polyset.Relation{}, errors.Wrapf(err, "taskfile: parsing %s", key)
	}
	return rel, nil
}

func sectionText(sections map[string][]string, key string) string {
	return strings.Join(sections[key], "\n")
}

// splitSections groups a task file's lines under its "{Header}:" markers.
// Text after the colon on a header line ("Parameters: n") is the section's
// first line.
func splitSections(r io.Reader) (map[string][]string, error) {
	sc := bufio.NewScanner(r)
	sections := make(map[string][]string)
	current := ""
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if i := strings.Index(trimmed, ":"); i > 0 && headers[trimmed[:i]] {
			current = trimmed[:i]
			if _, exists := sections[current]; !exists {
				sections[current] = nil
			}
			if rest := strings.TrimSpace(trimmed[i+1:]); rest != "" {
				sections[current] = append(sections[current], rest)
			}
			continue
		}
		if current == "" {
			continue
		}
		sections[current] = append(sections[current], line)
	}
	return sections, sc.Err()
}
