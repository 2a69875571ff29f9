// Package profile loads and validates the vehicle-profile JSON format
// spec §6 defines: only the semantic fields the core consumes, grounded on
// original_source/lib/config.py's VehicleConfig. Parsing beyond those
// fields is explicitly out of scope (spec §1); this package never exposes
// VehicleConfig's dot-path get/update escape hatch, only the typed fields.
package profile

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Vehicle is the vehicle.{vin, make, model, year} block.
type Vehicle struct {
	VIN   string `json:"vin"`
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  int    `json:"year"`
}

// Sensors is the sensors.{rpm_idle, rpm_max, coolant_temp_normal,
// fuel_capacity} block; additional keys the JSON carries but this project
// does not consume are ignored, matching VehicleConfig.get's default-on-
// miss behavior rather than rejecting unknown fields.
type Sensors struct {
	RPMIdle            float64 `json:"rpm_idle"`
	RPMMax             float64 `json:"rpm_max"`
	CoolantTempNormalC float64 `json:"coolant_temp_normal"`
	FuelCapacityL      float64 `json:"fuel_capacity"`
}

// DTCEntry is one dtcs[] element: the profile-configured trigger this
// vehicle's DTC manager rolls against (spec §6 dtcs[].{code, description,
// mil_illuminate, probability}).
type DTCEntry struct {
	Code           string  `json:"code"`
	Description    string  `json:"description"`
	MILIlluminate  bool    `json:"mil_illuminate"`
	Probability    float64 `json:"probability"`
}

// ECU is original_source/lib/config.py's get_ecu_info() block, carried
// forward as a profile field even though spec.md's JSON grammar only lists
// vehicle/sensors/dtcs — ecu.* keys are consumed by the bus package to seed
// ecu.Identity when a profile supplies one.
type ECU struct {
	Name          string `json:"name"`
	SerialNumber  string `json:"serial_number"`
	SoftwareVer   string `json:"software_version"`
	HardwareVer   string `json:"hardware_version"`
	CalibrationID string `json:"calibration_id"`
}

// Profile is the full vehicle-profile document.
type Profile struct {
	Vehicle Vehicle    `json:"vehicle"`
	Sensors Sensors    `json:"sensors"`
	DTCs    []DTCEntry `json:"dtcs"`
	ECU     ECU        `json:"ecu"`
}

// Default mirrors VehicleConfig's built-in field defaults for every field
// a JSON profile omits.
func Default() Profile {
	return Profile{
		Vehicle: Vehicle{VIN: "1HGBH41JXMN109186", Make: "Generic", Model: "Vehicle", Year: 2020},
		Sensors: Sensors{RPMIdle: 750, RPMMax: 6500, CoolantTempNormalC: 90, FuelCapacityL: 50},
		ECU: ECU{
			Name: "ENGINE-ECU", SerialNumber: "SN-123456789",
			SoftwareVer: "v2.0.0", HardwareVer: "v1.0", CalibrationID: "CALIB12345678",
		},
	}
}

// Load reads and validates a vehicle profile from path, filling any
// omitted field with Default()'s value.
func Load(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, errors.Wrapf(err, "read profile %s", path)
	}
	return Parse(data)
}

// Parse validates and decodes a profile document, applying defaults for
// zero-value fields the way VehicleConfig.get(key, default) does.
func Parse(data []byte) (Profile, error) {
	p := Default()
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, errors.Wrap(err, "invalid profile JSON")
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Validate enforces spec §6's "VIN length must be 17; out-of-range fields
// are rejected at load" rule.
func (p Profile) Validate() error {
	if len(p.Vehicle.VIN) != 17 {
		return errors.Errorf("vehicle.vin must be 17 characters, got %d", len(p.Vehicle.VIN))
	}
	if p.Sensors.RPMIdle < 0 || p.Sensors.RPMMax <= 0 || p.Sensors.RPMIdle >= p.Sensors.RPMMax {
		return errors.Errorf("sensors.rpm_idle (%v) must be positive and less than rpm_max (%v)",
			p.Sensors.RPMIdle, p.Sensors.RPMMax)
	}
	if p.Sensors.CoolantTempNormalC < -40 || p.Sensors.CoolantTempNormalC > 215 {
		return errors.Errorf("sensors.coolant_temp_normal (%v) out of range [-40, 215]", p.Sensors.CoolantTempNormalC)
	}
	if p.Sensors.FuelCapacityL <= 0 {
		return errors.Errorf("sensors.fuel_capacity (%v) must be positive", p.Sensors.FuelCapacityL)
	}
	for _, d := range p.DTCs {
		if d.Code == "" {
			return errors.New("dtcs[] entry missing code")
		}
		if d.Probability < 0 || d.Probability > 1 {
			return errors.Errorf("dtcs[%s].probability (%v) must be in [0, 1]", d.Code, d.Probability)
		}
	}
	return nil
}
