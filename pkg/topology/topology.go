package topology

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Stack is the parsed deploy declaration: the subset of the compose file
// format the pulse stack actually uses.
type Stack struct {
	Services map[string]Service `yaml:"services"`
	Networks map[string]Network `yaml:"networks"`
	Volumes  map[string]Volume  `yaml:"volumes"`
}

// Service describes one process in the stack.
type Service struct {
	// Image is the pre-built image reference. Exactly one of Image or Build
	// must be set.
	Image string `yaml:"image"`

	// Build is a local build context directory.
	Build string `yaml:"build"`

	// Command overrides the image's default entrypoint arguments. With a
	// single multi-binary image this is what picks the binary per service.
	Command []string `yaml:"command"`

	// Ports lists published ports as "host:container" strings.
	Ports []string `yaml:"ports"`

	// Networks lists the virtual networks this service joins. Services
	// address each other by service name only within a shared network.
	Networks []string `yaml:"networks"`

	// Restart is the restart policy: no | always | on-failure | unless-stopped.
	Restart string `yaml:"restart"`

	// Volumes lists "volume:containerPath" mounts.
	Volumes []string `yaml:"volumes"`

	// DependsOn is advisory only — the stack is declared order-independent.
	DependsOn []string `yaml:"depends_on"`
}

// Network is a named virtual network. The body is currently empty; the key
// existing at all is what matters.
type Network struct {
	Driver string `yaml:"driver"`
}

// Volume is a named persistent volume.
type Volume struct {
	Driver string `yaml:"driver"`
}

// Load reads and parses the deploy declaration at path.
func Load(path string) (*Stack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("topology: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse parses a deploy declaration from raw YAML.
func Parse(data []byte) (*Stack, error) {
	var st Stack
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("topology: parse yaml: %w", err)
	}
	if len(st.Services) == 0 {
		return nil, fmt.Errorf("topology: no services declared")
	}
	return &st, nil
}

// ServiceNames returns the declared service names, sorted.
func (st *Stack) ServiceNames() []string {
	out := make([]string, 0, len(st.Services))
	for name := range st.Services {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Resolves reports whether host is addressable as a service name from
// inside svc's network namespace: both services must share a network.
// A service always resolves itself.
func (st *Stack) Resolves(svc, host string) bool {
	if svc == host {
		_, ok := st.Services[svc]
		return ok
	}
	from, ok := st.Services[svc]
	if !ok {
		return false
	}
	to, ok := st.Services[host]
	if !ok {
		return false
	}
	for _, n := range from.Networks {
		for _, m := range to.Networks {
			if n == m {
				return true
			}
		}
	}
	return false
}

// Validate checks the stack against the bootstrap contract and returns one
// human-readable problem string per violation. An empty slice means the
// declaration is sound.
func (st *Stack) Validate() []string {
	var problems []string

	for _, name := range st.ServiceNames() {
		svc := st.Services[name]

		switch {
		case svc.Image == "" && svc.Build == "":
			problems = append(problems,
				fmt.Sprintf("service %q: needs image or build", name))
		case svc.Image != "" && svc.Build != "":
			problems = append(problems,
				fmt.Sprintf("service %q: image and build are mutually exclusive", name))
		}

		for _, p := range svc.Ports {
			if err := checkPort(p); err != nil {
				problems = append(problems,
					fmt.Sprintf("service %q: port %q: %v", name, p, err))
			}
		}

		switch svc.Restart {
		case "", "no", "always", "on-failure", "unless-stopped":
		default:
			problems = append(problems,
				fmt.Sprintf("service %q: unknown restart policy %q", name, svc.Restart))
		}

		for _, n := range svc.Networks {
			if _, ok := st.Networks[n]; !ok {
				problems = append(problems,
					fmt.Sprintf("service %q: undeclared network %q", name, n))
			}
		}

		for _, v := range svc.Volumes {
			vol, _, ok := strings.Cut(v, ":")
			if !ok {
				problems = append(problems,
					fmt.Sprintf("service %q: volume %q: want \"name:containerPath\"", name, v))
				continue
			}
			// Bind mounts (./dir or /dir) need no declaration.
			if strings.HasPrefix(vol, ".") || strings.HasPrefix(vol, "/") {
				continue
			}
			if _, ok := st.Volumes[vol]; !ok {
				problems = append(problems,
					fmt.Sprintf("service %q: undeclared volume %q", name, vol))
			}
		}

		for _, dep := range svc.DependsOn {
			if _, ok := st.Services[dep]; !ok {
				problems = append(problems,
					fmt.Sprintf("service %q: depends_on unknown service %q", name, dep))
			}
		}
	}

	return problems
}

// checkPort validates a "host:container" port mapping string.
func checkPort(p string) error {
	host, container, ok := strings.Cut(p, ":")
	if !ok {
		return fmt.Errorf("want \"host:container\"")
	}
	for _, part := range []string{host, container} {
		n, err := strconv.Atoi(part)
		if err != nil {
			return fmt.Errorf("%q is not a port number", part)
		}
		if n < 1 || n > 65535 {
			return fmt.Errorf("%d is out of range [1, 65535]", n)
		}
	}
	return nil
}
