package profile

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_DefaultsFillOmittedFields(t *testing.T) {
	p, err := Parse([]byte(`{"vehicle":{"vin":"1HGBH41JXMN109186"}}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Sensors.RPMIdle != 750 || p.Sensors.RPMMax != 6500 {
		t.Errorf("sensor defaults not applied: %+v", p.Sensors)
	}
	if p.Vehicle.Make != "Generic" {
		t.Errorf("vehicle.make default not applied, got %q", p.Vehicle.Make)
	}
}

func TestParse_RejectsShortVIN(t *testing.T) {
	_, err := Parse([]byte(`{"vehicle":{"vin":"SHORT"}}`))
	if err == nil {
		t.Fatal("expected error for non-17-character VIN")
	}
}

func TestParse_RejectsInvertedRPMRange(t *testing.T) {
	_, err := Parse([]byte(`{"vehicle":{"vin":"1HGBH41JXMN109186"},"sensors":{"rpm_idle":7000,"rpm_max":6000}}`))
	if err == nil {
		t.Fatal("expected error for rpm_idle >= rpm_max")
	}
}

func TestParse_DTCEntries(t *testing.T) {
	p, err := Parse([]byte(`{
		"vehicle": {"vin": "1HGBH41JXMN109186"},
		"dtcs": [{"code": "P0300", "description": "Random misfire", "mil_illuminate": true, "probability": 0.01}]
	}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.DTCs) != 1 || p.DTCs[0].Code != "P0300" {
		t.Errorf("dtcs[] not decoded: %+v", p.DTCs)
	}
}

func TestParse_RejectsOutOfRangeProbability(t *testing.T) {
	_, err := Parse([]byte(`{
		"vehicle": {"vin": "1HGBH41JXMN109186"},
		"dtcs": [{"code": "P0300", "probability": 1.5}]
	}`))
	if err == nil {
		t.Fatal("expected error for probability > 1")
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := Parse([]byte(`not json`))
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestParse_OmittedDocumentEqualsDefault(t *testing.T) {
	p, err := Parse([]byte(`{"vehicle":{"vin":"1HGBH41JXMN109186"}}`))
	require.NoError(t, err)

	want := Default()
	want.Vehicle.VIN = "1HGBH41JXMN109186"
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("parsed profile differs from expected defaults (-want +got):\n%s", diff)
	}
}

func TestParse_ECUBlockOverridesDefault(t *testing.T) {
	p, err := Parse([]byte(`{
		"vehicle": {"vin": "1HGBH41JXMN109186"},
		"ecu": {"name": "TCM-ECU", "serial_number": "SN-000001"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "TCM-ECU", p.ECU.Name)
	assert.Equal(t, "SN-000001", p.ECU.SerialNumber)
}
