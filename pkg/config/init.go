package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// sectionComments are written above each top-level section of a generated
// config file.
var sectionComments = map[string]string{
	"logging": "Logging\n  level: DEBUG, INFO, WARN, ERROR\n  format: text or json\n  output: stdout, stderr or a file path",
	"store": "Where mount tables are stored\n  type: memory, filesystem, badger, s3, redis or postgres\n" +
		"  filesystem: datadir (legacy mount.json layout)\n  badger: db_path, in_memory\n" +
		"  s3: bucket, prefix, region, endpoint, access_key_id, secret_access_key\n" +
		"  redis: addr, username, password, db, prefix\n  postgres: dsn, max_open_conns, auto_migrate",
	"secrets":       "Encryption of secret backend options (set key or key_file to enable)",
	"backends":      "Available backends and reachability checks\n  enabled: subset of local, smb, ftp, sftp, dav, s3, swift (empty = all)\n  personal: per-backend override of personal mount permission",
	"notifications": "Mount change notifications\n  queue_size: 0 delivers synchronously\n  amqp: url plus exchange (key mount.<signal>) or queue",
	"metrics":       "Prometheus metrics endpoint",
}

// InitConfig writes a sample configuration file to the default location and
// returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration file to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use force to overwrite)", path)
		}
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// generateYAMLWithComments renders cfg as YAML with a comment above every
// top-level section.
func generateYAMLWithComments(cfg *Config) (string, error) {
	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	// Mapping content alternates key and value nodes.
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i]
		if comment, ok := sectionComments[key.Value]; ok {
			key.HeadComment = comment
		}
	}
	doc.HeadComment = "extmounts configuration file\n\nEnvironment variables override these values, e.g. EXTMOUNTS_LOGGING_LEVEL=DEBUG"

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}

	return buf.String(), nil
}
