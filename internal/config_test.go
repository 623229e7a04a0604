package internal

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestLoadTunnelConfig(t *testing.T) {
	t.Run("no config file and no token", func(t *testing.T) {
		cfg, err := LoadTunnelConfig(t.TempDir(), env(nil))
		if err != nil {
			t.Fatalf("LoadTunnelConfig() error = %v", err)
		}
		if cfg != (TunnelConfig{}) {
			t.Errorf("LoadTunnelConfig() = %+v, want zero value", cfg)
		}
	})

	t.Run("config file present", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "ngrok.yml")
		writeFile(t, path, "version: \"2\"\n")

		cfg, err := LoadTunnelConfig(dir, env(nil))
		if err != nil {
			t.Fatalf("LoadTunnelConfig() error = %v", err)
		}
		if cfg.ConfigPath != path {
			t.Errorf("ConfigPath = %q, want %q", cfg.ConfigPath, path)
		}
	})

	t.Run("directory named ngrok.yml is ignored", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.Mkdir(filepath.Join(dir, "ngrok.yml"), 0o755); err != nil {
			t.Fatal(err)
		}

		cfg, err := LoadTunnelConfig(dir, env(nil))
		if err != nil {
			t.Fatalf("LoadTunnelConfig() error = %v", err)
		}
		if cfg.ConfigPath != "" {
			t.Errorf("ConfigPath = %q, want empty", cfg.ConfigPath)
		}
	})

	t.Run("auth token from environment", func(t *testing.T) {
		cfg, err := LoadTunnelConfig(t.TempDir(), env(map[string]string{"ngrok_auth": "secret"}))
		if err != nil {
			t.Fatalf("LoadTunnelConfig() error = %v", err)
		}
		if cfg.AuthToken != "secret" {
			t.Errorf("AuthToken = %q, want %q", cfg.AuthToken, "secret")
		}
	})
}

func TestLoadTunnelConfigWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ngrok.yml"), "authtoken: abc\n")

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := LoadTunnelConfig(".", env(nil))
	if err != nil {
		t.Fatalf("LoadTunnelConfig() error = %v", err)
	}
	if cfg.ConfigPath != "ngrok.yml" {
		t.Errorf("ConfigPath = %q, want %q", cfg.ConfigPath, "ngrok.yml")
	}
}

func TestReadConfigFile(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantToken  string
		wantRegion string
		wantServer string
		wantErr    bool
	}{
		{
			name:       "v2 layout",
			content:    "version: \"2\"\nauthtoken: two\nregion: eu\nserver_addr: tunnel.example.com:443\n",
			wantToken:  "two",
			wantRegion: "eu",
			wantServer: "tunnel.example.com:443",
		},
		{
			name:      "v3 layout",
			content:   "version: \"3\"\nagent:\n  authtoken: three\n",
			wantToken: "three",
		},
		{
			name:      "v3 takes precedence",
			content:   "authtoken: two\nagent:\n  authtoken: three\n",
			wantToken: "three",
		},
		{
			name:    "malformed",
			content: "authtoken: [unterminated\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ngrok.yml")
			writeFile(t, path, tt.content)

			fc, err := ReadConfigFile(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ReadConfigFile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			if got := fc.Token(); got != tt.wantToken {
				t.Errorf("Token() = %q, want %q", got, tt.wantToken)
			}
			if got := fc.RegionName(); got != tt.wantRegion {
				t.Errorf("RegionName() = %q, want %q", got, tt.wantRegion)
			}
			if got := fc.Server(); got != tt.wantServer {
				t.Errorf("Server() = %q, want %q", got, tt.wantServer)
			}
		})
	}
}

func TestReadConfigFileMissing(t *testing.T) {
	if _, err := ReadConfigFile(filepath.Join(t.TempDir(), "ngrok.yml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
