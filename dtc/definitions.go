package dtc

// DefaultCatalog is the built-in code->description/MIL-policy table, used
// to fill in a profile's DTC entries when the profile supplies only a code
// and probability. Codes and policy are grounded on this project's source
// material's dtc_manager catalog; it is not exhaustive, only representative
// of each category OBD-II/UDS actually reports.
var DefaultCatalog = map[string]Definition{
	"P0300": {Description: "Random/Multiple Cylinder Misfire Detected", EmissionRelated: true, MILIlluminate: true, ConfirmAfter: 2},
	"P0301": {Description: "Cylinder 1 Misfire Detected", EmissionRelated: true, MILIlluminate: true, ConfirmAfter: 2},
	"P0302": {Description: "Cylinder 2 Misfire Detected", EmissionRelated: true, MILIlluminate: true, ConfirmAfter: 2},
	"P0303": {Description: "Cylinder 3 Misfire Detected", EmissionRelated: true, MILIlluminate: true, ConfirmAfter: 2},
	"P0304": {Description: "Cylinder 4 Misfire Detected", EmissionRelated: true, MILIlluminate: true, ConfirmAfter: 2},
	"P0171": {Description: "System Too Lean (Bank 1)", EmissionRelated: true, MILIlluminate: true, ConfirmAfter: 2},
	"P0172": {Description: "System Too Rich (Bank 1)", EmissionRelated: true, MILIlluminate: true, ConfirmAfter: 2},
	"P0401": {Description: "Exhaust Gas Recirculation Flow Insufficient", EmissionRelated: true, MILIlluminate: true, ConfirmAfter: 2},
	"P0420": {Description: "Catalyst System Efficiency Below Threshold (Bank 1)", EmissionRelated: true, MILIlluminate: true, ConfirmAfter: 2},
	"P0440": {Description: "Evaporative Emission Control System Malfunction", EmissionRelated: true, MILIlluminate: false, ConfirmAfter: 2},
	"P0128": {Description: "Coolant Thermostat Below Regulating Temperature", EmissionRelated: false, MILIlluminate: false, ConfirmAfter: 2},
	"P0500": {Description: "Vehicle Speed Sensor Malfunction", EmissionRelated: false, MILIlluminate: false, ConfirmAfter: 2},
	"P0562": {Description: "System Voltage Low", EmissionRelated: false, MILIlluminate: false, ConfirmAfter: 2},
	"P0113": {Description: "Intake Air Temperature Sensor Circuit High Input", EmissionRelated: false, MILIlluminate: false, ConfirmAfter: 2},

	"C0035": {Description: "Left Front Wheel Speed Sensor Circuit", EmissionRelated: false, MILIlluminate: false, ConfirmAfter: 2},
	"C0040": {Description: "Right Front Wheel Speed Sensor Circuit", EmissionRelated: false, MILIlluminate: false, ConfirmAfter: 2},
	"C0110": {Description: "Pump Motor Circuit Malfunction", EmissionRelated: false, MILIlluminate: false, ConfirmAfter: 2},

	"B0001": {Description: "Driver Frontal Stage 1 Deployment Control", EmissionRelated: false, MILIlluminate: false, ConfirmAfter: 1},
	"B1318": {Description: "Battery Voltage Low", EmissionRelated: false, MILIlluminate: false, ConfirmAfter: 2},

	"U0100": {Description: "Lost Communication With ECM/PCM", EmissionRelated: false, MILIlluminate: false, ConfirmAfter: 2},
	"U0121": {Description: "Lost Communication With Anti-Lock Brake System Module", EmissionRelated: false, MILIlluminate: false, ConfirmAfter: 2},
}

// Lookup resolves a code string against DefaultCatalog, filling in the
// Code field itself since the catalog is keyed by string for readability.
func Lookup(code string) (Definition, bool) {
	d, ok := DefaultCatalog[code]
	if !ok {
		return Definition{}, false
	}
	c, err := ParseCode(code)
	if err != nil {
		return Definition{}, false
	}
	d.Code = c
	return d, true
}
