package config

import "testing"

func TestValidateRequiresPaths(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing input/output paths")
	}
}

func TestValidateClassNamePattern(t *testing.T) {
	cfg := Default()
	cfg.InputPath = "map.osm.pbf"
	cfg.OutputPrefix = "out/map"
	cfg.ClassNames = map[string]int{"bad name!": 0}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid class name")
	}
}

func TestValidateTooManyClasses(t *testing.T) {
	cfg := Default()
	cfg.InputPath = "map.osm.pbf"
	cfg.OutputPrefix = "out/map"
	cfg.ClassNames = make(map[string]int)
	for i := 0; i <= MaxClassIndex; i++ {
		cfg.ClassNames[string(rune('a'+i))] = i
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for too many classes")
	}
}

func TestValidateExcludableClassesMustExist(t *testing.T) {
	cfg := Default()
	cfg.InputPath = "map.osm.pbf"
	cfg.OutputPrefix = "out/map"
	cfg.ClassNames = map[string]int{"motorcar": 0}
	cfg.ExcludableClasses = [][]string{{"motorcar", "bicycle"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for excludable combination referencing unknown class")
	}
}

func TestResolvedThreadsAutoWhenZero(t *testing.T) {
	cfg := Default()
	if cfg.ResolvedThreads() <= 0 {
		t.Fatal("expected a positive thread count")
	}
}

func TestValidateDefaultsSmallComponentSize(t *testing.T) {
	cfg := Default()
	cfg.InputPath = "x"
	cfg.OutputPrefix = "y"
	cfg.SmallComponentSize = 0
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.SmallComponentSize != DefaultSmallComponentThreshold {
		t.Fatalf("expected default threshold, got %d", cfg.SmallComponentSize)
	}
}
