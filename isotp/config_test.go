package isotp

import "testing"

func TestDefaultConfig_Validates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig should validate, got: %v", err)
	}
}

func TestConfig_Validate_RejectsBadValues(t *testing.T) {
	base := DefaultConfig()

	tests := []struct {
		name string
		mod  func(c Config) Config
	}{
		{"negative WftMax", func(c Config) Config { c.WftMax = -1; return c }},
		{"negative BlockSize", func(c Config) Config { c.BlockSize = -1; return c }},
		{"BlockSize over one byte", func(c Config) Config { c.BlockSize = 0x100; return c }},
		{"zero QueueDepth", func(c Config) Config { c.QueueDepth = 0; return c }},
		{"negative QueueDepth", func(c Config) Config { c.QueueDepth = -1; return c }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.mod(base).Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
