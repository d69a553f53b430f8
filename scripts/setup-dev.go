package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"nomnomhub/internal/config"
	"nomnomhub/internal/editor"
)

// Builds a sandbox with a fake editor install and a config pointing at it, so
// the CLI and API can be tried without a real editor:
//
//	go run ./scripts/setup-dev.go -dir /tmp/nomnom-dev
//	nomnom --config /tmp/nomnom-dev/config.toml editors
const devCatalog = `{
	"schemaVersion": 1,
	"packages": {
		"com.unity.ugui": {"isDiscoverable": true, "isDefault": true, "version": "1.0.0"},
		"com.unity.timeline": {"isDiscoverable": true, "isDefault": false, "version": "1.7.5"},
		"com.unity.render-pipelines.universal": {"isDiscoverable": true, "isDefault": false, "version": "14.0.8"}
	}
}`

func main() {
	dir := flag.String("dir", filepath.Join(os.TempDir(), "nomnom-dev"), "sandbox directory")
	editorVersion := flag.String("editor", "2022.3.10f1", "fake editor version")
	flag.Parse()

	cfg := config.Defaults()
	cfg.EditorsPath = filepath.Join(*dir, "editors")
	cfg.AppDataPath = filepath.Join(*dir, "appdata")
	cfg.CacheDir = filepath.Join(*dir, "cache")
	cfg.NewProjectPath = filepath.Join(*dir, "projects")

	versionDir := filepath.Join(cfg.EditorsPath, *editorVersion)
	install := editor.Install{Version: *editorVersion, ExePath: filepath.Join(versionDir, "Editor", editor.ExecutableName())}
	files := map[string]string{
		install.CatalogPath():                     devCatalog,
		filepath.Join(versionDir, "modules.json"): "[]",
	}
	for path, content := range files {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			log.Fatal("Failed to create directory:", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			log.Fatal("Failed to write file:", err)
		}
	}
	if err := os.MkdirAll(install.TemplatesDir(), 0o755); err != nil {
		log.Fatal("Failed to create templates directory:", err)
	}

	configPath := filepath.Join(*dir, "config.toml")
	if err := config.SaveTo(configPath, cfg); err != nil {
		log.Fatal("Failed to write config:", err)
	}

	fmt.Printf("✅ Sandbox ready in %s\n", *dir)
	fmt.Printf("🚀 Next steps:\n")
	fmt.Printf("   1. List editors: nomnom --config %s editors\n", configPath)
	fmt.Printf("   2. Pack a blank template: nomnom --config %s new template com.example.template.demo\n", configPath)
	fmt.Printf("   3. Start the API: nomnom --config %s serve\n", configPath)
}
