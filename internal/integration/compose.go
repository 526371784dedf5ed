package integration

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mescon/Dupearr/internal/domain"
	"github.com/mescon/Dupearr/internal/logger"
)

// Services whose volumes describe the catalog container filesystems
var catalogServices = []string{"sonarr", "radarr"}

// Services whose volumes typically point at media libraries, used for
// scan-root auto detection
var mediaServices = []string{"jellyfin", "sonarr", "radarr", "plex", "emby", "bazarr", "jellyseerr", "overseerr"}

// Substrings that mark a host path as a media library rather than a config
// or download mount
var mediaPathTerms = []string{"media", "movies", "tv", "television", "films", "videos", "shows"}

type composeFile struct {
	Services map[string]composeService `yaml:"services"`
}

type composeService struct {
	Image   string          `yaml:"image"`
	Volumes []composeVolume `yaml:"volumes"`
}

// composeVolume accepts both the short "host:container[:mode]" string form
// and the long mapping form with source/target keys.
type composeVolume struct {
	Source string
	Target string
}

func (v *composeVolume) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var short string
		if err := node.Decode(&short); err != nil {
			return err
		}
		parts := strings.Split(short, ":")
		if len(parts) >= 2 {
			v.Source = parts[0]
			v.Target = parts[1]
		}
		return nil
	case yaml.MappingNode:
		var long struct {
			Source string `yaml:"source"`
			Target string `yaml:"target"`
		}
		if err := node.Decode(&long); err != nil {
			return err
		}
		v.Source = long.Source
		v.Target = long.Target
		return nil
	default:
		return fmt.Errorf("unsupported volume definition at line %d", node.Line)
	}
}

// FindComposeFile searches common locations for an orchestration manifest.
// Returns "" when none is found.
func FindComposeFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	candidates := []string{
		filepath.Join(home, "docker", "docker-compose.yml"),
		filepath.Join(home, "docker-compose.yml"),
		filepath.Join(home, "docker", "media", "docker-compose.yml"),
		filepath.Join(home, "media-server", "docker-compose.yml"),
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// LoadMappings extracts host-to-container volume mappings for the catalog
// services from an orchestration manifest. ${VAR} references in host paths
// resolve against envPath first, then the process environment. When envPath
// is empty a .env next to the manifest is used if present.
func LoadMappings(composePath, envPath string) ([]domain.PathMapping, error) {
	if composePath == "" {
		composePath = FindComposeFile()
		if composePath == "" {
			logger.Warnf("Compose: no manifest found in common locations")
			return nil, nil
		}
	}

	data, err := os.ReadFile(composePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", composePath, err)
	}
	logger.Infof("Compose: using manifest %s", composePath)

	if envPath == "" {
		candidate := filepath.Join(filepath.Dir(composePath), ".env")
		if _, err := os.Stat(candidate); err == nil {
			envPath = candidate
		}
	}
	envVars := readEnvFile(envPath)

	var compose composeFile
	if err := yaml.Unmarshal(data, &compose); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", composePath, err)
	}

	var mappings []domain.PathMapping
	for _, name := range catalogServices {
		service, ok := compose.Services[name]
		if !ok {
			continue
		}
		count := 0
		for _, vol := range service.Volumes {
			if vol.Source == "" || vol.Target == "" {
				continue
			}
			host := expandEnvVars(vol.Source, envVars)
			mappings = append(mappings, domain.PathMapping{
				Service:       name,
				HostPath:      host,
				ContainerPath: vol.Target,
			})
			count++
		}
		logger.Infof("Compose: found %d volume mappings for %s", count, name)
	}
	return mappings, nil
}

// DetectMediaRoots returns candidate scan roots: host paths mounted into
// media-serving containers whose path contains a media term and that exist
// as directories. Order follows the service list; duplicates are dropped.
func DetectMediaRoots(composePath, envPath string) ([]string, error) {
	if composePath == "" {
		composePath = FindComposeFile()
		if composePath == "" {
			return nil, nil
		}
	}

	data, err := os.ReadFile(composePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", composePath, err)
	}

	if envPath == "" {
		candidate := filepath.Join(filepath.Dir(composePath), ".env")
		if _, err := os.Stat(candidate); err == nil {
			envPath = candidate
		}
	}
	envVars := readEnvFile(envPath)

	var compose composeFile
	if err := yaml.Unmarshal(data, &compose); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", composePath, err)
	}

	seen := make(map[string]bool)
	var roots []string
	for _, name := range mediaServices {
		service, ok := compose.Services[name]
		if !ok {
			continue
		}
		for _, vol := range service.Volumes {
			if vol.Source == "" || vol.Target == "" {
				continue
			}
			host := expandEnvVars(vol.Source, envVars)
			if seen[host] || !looksLikeMediaPath(host) {
				continue
			}
			if info, err := os.Stat(host); err != nil || !info.IsDir() {
				continue
			}
			seen[host] = true
			roots = append(roots, host)
		}
	}
	return roots, nil
}

func looksLikeMediaPath(path string) bool {
	lower := strings.ToLower(path)
	for _, term := range mediaPathTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func expandEnvVars(value string, envVars map[string]string) string {
	return envVarPattern.ReplaceAllStringFunc(value, func(match string) string {
		name := match[2 : len(match)-1]
		if v, ok := envVars[name]; ok {
			return v
		}
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return match
	})
}

func readEnvFile(path string) map[string]string {
	envVars := make(map[string]string)
	if path == "" {
		return envVars
	}
	f, err := os.Open(path)
	if err != nil {
		return envVars
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		envVars[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return envVars
}
