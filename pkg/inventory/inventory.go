package inventory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/zumanm1/device-audit-win-sub002/pkg/models"
)

// LoadFromFile reads a device inventory from a JSON file. The file holds an
// ordered array of device records; ordering is preserved.
func LoadFromFile(filePath string) ([]models.Device, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading inventory: %w", err)
	}

	var devices []models.Device
	if err := json.Unmarshal(data, &devices); err != nil {
		return nil, fmt.Errorf("parsing inventory: %w", err)
	}

	if len(devices) == 0 {
		return nil, fmt.Errorf("inventory %s contains no devices", filePath)
	}

	return devices, nil
}
