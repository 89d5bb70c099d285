package inventory

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.json")
	content := `[
		{"hostname": "edge-router-7", "address": "10.1.1.7", "device_type": "router", "model": "ISR4331", "credential_ref": "lab"},
		{"hostname": "core-switch-1", "address": "10.1.1.8", "device_type": "switch", "credential_ref": "core"}
	]`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Writing inventory: %v", err)
	}

	devices, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("Expected 2 devices, got %d", len(devices))
	}

	// Inventory ordering is preserved.
	if devices[0].Hostname != "edge-router-7" || devices[1].Hostname != "core-switch-1" {
		t.Errorf("Inventory order not preserved: %+v", devices)
	}
	if devices[0].Model != "ISR4331" {
		t.Errorf("Expected model ISR4331, got %q", devices[0].Model)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("Expected error for missing inventory file")
	}

	path := filepath.Join(t.TempDir(), "empty.json")
	os.WriteFile(path, []byte(`[]`), 0644)
	if _, err := LoadFromFile(path); err == nil {
		t.Error("Expected error for empty inventory")
	}

	path = filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte(`{not json`), 0644)
	if _, err := LoadFromFile(path); err == nil {
		t.Error("Expected error for malformed inventory")
	}
}
