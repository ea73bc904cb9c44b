package command

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition is a user-defined command: a markdown file whose body becomes
// the prompt, with optional YAML frontmatter for metadata.
type Definition struct {
	// Name is the command word, taken from the file name.
	Name string
	// Description is shown in completion menus.
	Description string
	// AllowedTools are tool names auto-allowed while this command runs.
	AllowedTools []string
	// Body is the prompt template.
	Body string
}

// frontmatter is the YAML header of a command file.
type frontmatter struct {
	Description  string   `yaml:"description"`
	AllowedTools []string `yaml:"allowed-tools"`
}

// argumentsVar is replaced with the invocation's arguments in the body.
const argumentsVar = "$ARGUMENTS"

// LoadDir reads every .md file in dir as a command definition. A missing
// directory yields no commands; a malformed file is skipped with an error
// aggregated into the returned slice's companion error.
func LoadDir(dir string) ([]*Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read commands dir: %w", err)
	}

	var defs []*Definition
	var firstErr error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("read %s: %w", path, err)
			}
			continue
		}
		def, err := parseDefinition(strings.TrimSuffix(entry.Name(), ".md"), data)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("parse %s: %w", path, err)
			}
			continue
		}
		defs = append(defs, def)
	}
	return defs, firstErr
}

// parseDefinition parses one command file. Frontmatter is optional; a file
// without it is all body.
func parseDefinition(name string, data []byte) (*Definition, error) {
	def := &Definition{Name: name}

	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	if fm != nil {
		var meta frontmatter
		if err := yaml.Unmarshal(fm, &meta); err != nil {
			return nil, fmt.Errorf("parse frontmatter: %w", err)
		}
		def.Description = meta.Description
		def.AllowedTools = meta.AllowedTools
	}
	def.Body = strings.TrimSpace(string(body))
	return def, nil
}

// splitFrontmatter separates YAML frontmatter from the markdown body.
// Expects format: ---\nyaml\n---\nbody. Returns a nil frontmatter slice
// when the file has no opening delimiter.
func splitFrontmatter(data []byte) ([]byte, []byte, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))

	if !scanner.Scan() {
		return nil, nil, nil
	}
	if strings.TrimSpace(scanner.Text()) != "---" {
		return nil, data, nil
	}

	var fmLines []string
	foundClose := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "---" {
			foundClose = true
			break
		}
		fmLines = append(fmLines, line)
	}
	if !foundClose {
		return nil, nil, fmt.Errorf("missing closing frontmatter delimiter")
	}

	var bodyLines []string
	for scanner.Scan() {
		bodyLines = append(bodyLines, scanner.Text())
	}

	fm := []byte(strings.Join(fmLines, "\n"))
	body := []byte(strings.Join(bodyLines, "\n"))
	return fm, body, scanner.Err()
}

// Expand substitutes the invocation arguments into the body. When the body
// has no $ARGUMENTS placeholder but arguments were given, they are appended
// on a new line.
func (d *Definition) Expand(args string) string {
	if strings.Contains(d.Body, argumentsVar) {
		return strings.ReplaceAll(d.Body, argumentsVar, args)
	}
	if args == "" {
		return d.Body
	}
	return d.Body + "\n\n" + args
}
