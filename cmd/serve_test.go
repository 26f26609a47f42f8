package cmd

import (
	"path/filepath"
	"testing"

	"steward/internal/config"
	"steward/internal/reconciler"
)

func TestServeCommandRegistration(t *testing.T) {
	if serveCmd.Use != "serve" {
		t.Errorf("Expected Use to be 'serve', got %s", serveCmd.Use)
	}

	if serveCmd.RunE == nil {
		t.Error("Expected RunE function to be set")
	}

	if serveCmd.Flags().Lookup("config-path") == nil {
		t.Error("Expected --config-path flag to be registered")
	}
	if serveCmd.Flags().Lookup("debug") == nil {
		t.Error("Expected --debug flag to be registered")
	}
}

func TestBuildCollaboratorsFilesystemMode(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Mode = config.ModeFilesystem
	cfg.ManifestDir = t.TempDir()

	source, elector, controllerClient, err := buildCollaborators(cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if _, ok := source.(*reconciler.FilesystemSource); !ok {
		t.Errorf("Expected a filesystem source, got %T", source)
	}
	if _, ok := elector.(*reconciler.StandaloneElector); !ok {
		t.Errorf("Expected a standalone elector, got %T", elector)
	}
	if controllerClient != nil {
		t.Error("Expected no controller client in filesystem mode")
	}
}

func TestBuildCollaboratorsFilesystemModeMissingDir(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Mode = config.ModeFilesystem
	cfg.ManifestDir = filepath.Join(t.TempDir(), "does-not-exist")

	if _, _, _, err := buildCollaborators(cfg); err == nil {
		t.Error("Expected an error for a missing manifest directory")
	}
}

func TestBuildCollaboratorsUnknownMode(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Mode = "hybrid"

	if _, _, _, err := buildCollaborators(cfg); err == nil {
		t.Error("Expected an error for an unknown mode")
	}
}
