package domain

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// TaskLogPath returns the path to the task log file.
func TaskLogPath(dataDir string, taskID int) string {
	return filepath.Join(dataDir, "logs", fmt.Sprintf("task-%d.log", taskID))
}

// GlobalLogPath returns the path to the global log file.
func GlobalLogPath(dataDir string) string {
	return filepath.Join(dataDir, "logs", "labelcrew.log")
}

// TasksStorePath returns the path to the tasks.json file.
func TasksStorePath(dataDir string) string {
	return filepath.Join(dataDir, "tasks.json")
}

// TaskRefName returns the git ref holding a task.
// Format: refs/<namespace>/tasks/<id>
func TaskRefName(namespace string, taskID int) string {
	return fmt.Sprintf("refs/%s/tasks/%d", namespace, taskID)
}

// taskRefPattern matches the trailing id of a task ref.
var taskRefPattern = regexp.MustCompile(`/tasks/(\d+)$`)

// ParseTaskRefID extracts the task ID from a task ref name.
// Returns the task ID and true if the ref follows the naming convention,
// or 0 and false if not.
func ParseTaskRefID(ref string) (int, bool) {
	matches := taskRefPattern.FindStringSubmatch(ref)
	if matches == nil {
		return 0, false
	}
	id, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, false
	}
	return id, true
}

var namespaceInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// NamespaceFromUser derives a git-ref-safe namespace from an annotator name.
// Returns "" when nothing usable remains.
func NamespaceFromUser(name string) string {
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	ns := namespaceInvalid.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(ns, "-")
}
