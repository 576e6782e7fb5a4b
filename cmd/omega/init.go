package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
)

// initTemplate is written by hand rather than via config.Save. A plain
// toml.Marshal(cfg) can't express [provider.<name>] sub-tables, since
// Config.Provider.Providers is decoded by hand from raw TOML (see
// decodeRawConfig) and carries a toml:"-" tag; Save adds them back itself.
var initTemplate = template.Must(template.New("config").Parse(`[omega]
name = "{{.Name}}"
data_dir = "{{.DataDir}}"

[auth]
enabled = true
jwt_secret = "{{.JWTSecret}}"

[provider]
default = "subprocess-cli"

[provider.subprocess-cli]
enabled = true
model = "claude"

[channel.cli]
enabled = true
allowed_users = ["local"]

[memory]
idle_timeout_minutes = 120

[heartbeat]
interval_minutes = 60

[scheduler]
poll_interval_secs = 60

[sandbox]
mode = "sandbox"
`))

func buildInitCmd() *cobra.Command {
	var (
		configPath string
		dataDir    string
		name       string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a new data directory and config.toml",
		Long: `init creates dataDir's subdirectories (data, skills, prompts,
attachments, projects) and writes a config.toml with a random JWT
pairing secret and the subprocess-cli provider enabled by default. It
refuses to overwrite an existing config file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(configPath, dataDir, name)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to write config.toml")
	cmd.Flags().StringVar(&dataDir, "data-dir", "~/.omega", "data directory for memory, skills, and prompts")
	cmd.Flags().StringVar(&name, "name", "omega", "the agent's name")
	return cmd
}

func runInit(configPath, dataDir, name string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists; remove it first if you want to re-init", configPath)
	}

	for _, sub := range []string{"data", "skills", "prompts", "attachments", "projects"} {
		if err := os.MkdirAll(filepath.Join(dataDir, sub), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", sub, err)
		}
	}

	secret, err := randomSecret()
	if err != nil {
		return fmt.Errorf("generate jwt secret: %w", err)
	}

	f, err := os.OpenFile(configPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	err = initTemplate.Execute(f, struct {
		Name      string
		DataDir   string
		JWTSecret string
	}{Name: name, DataDir: dataDir, JWTSecret: secret})
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("wrote %s and scaffolded %s\n", configPath, dataDir)
	fmt.Println("edit config.toml to enable telegram/whatsapp channels, then run `omega start`")
	return nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
