package profile

import (
	"regexp"
	"strconv"
)

// StaticAdapter is a pure-Go, table-driven Adapter: no scripting runtime
// involved. It serves as the minimal default profile and as the profile
// used by package tests, grounded directly on the teacher's own
// highway/access/lanes classification tables (highway_type.go,
// link_type.go, tags.go, way_raw.go's processTags), generalized into the
// Adapter shape spec.md §6 requires.
type StaticAdapter struct {
	classIndex map[string]int
}

// Class bit names, matching the teacher's LinkClass/AgentType split
// collapsed into a single class-mask per spec.md's ClassMask design.
const (
	ClassMotorway    = "motorway"
	ClassTrunk       = "trunk"
	ClassPrimary     = "primary"
	ClassSecondary   = "secondary"
	ClassTertiary    = "tertiary"
	ClassResidential = "residential"
	ClassService     = "service"
	ClassUnclassified = "unclassified"
)

var staticClassOrder = []string{
	ClassMotorway, ClassTrunk, ClassPrimary, ClassSecondary,
	ClassTertiary, ClassResidential, ClassService, ClassUnclassified,
}

// speedByHighway mirrors the teacher's defaultSpeedByLinkType.
var speedByHighway = map[string]float64{
	"motorway":      120,
	"motorway_link": 90,
	"trunk":         100,
	"trunk_link":    70,
	"primary":       80,
	"primary_link":  50,
	"secondary":     60,
	"secondary_link": 40,
	"tertiary":      40,
	"tertiary_link": 30,
	"residential":   30,
	"living_street": 20,
	"service":       20,
	"unclassified":  30,
}

// classByHighway mirrors the teacher's linkTypeByHighway collapsed onto a
// single class name (ignoring the *_link suffix, which only affected the
// teacher's separate "is_link" flag, not routing class).
var classByHighway = map[string]string{
	"motorway":      ClassMotorway,
	"motorway_link": ClassMotorway,
	"trunk":         ClassTrunk,
	"trunk_link":    ClassTrunk,
	"primary":       ClassPrimary,
	"primary_link":  ClassPrimary,
	"secondary":     ClassSecondary,
	"secondary_link": ClassSecondary,
	"tertiary":      ClassTertiary,
	"tertiary_link": ClassTertiary,
	"residential":   ClassResidential,
	"living_street": ClassResidential,
	"service":       ClassService,
	"unclassified":  ClassUnclassified,
}

// negligibleHighway mirrors the teacher's negligibleHighwayTags.
var negligibleHighway = map[string]bool{
	"path": true, "construction": true, "proposed": true, "raceway": true,
	"bridleway": true, "rest_area": true, "road": true, "abandoned": true,
	"planned": true, "trailhead": true, "stairs": true, "dismantled": true,
	"disused": true, "razed": true, "corridor": true, "stop": true,
	"footway": true, "cycleway": true, "pedestrian": true, "steps": true, "track": true,
}

var accessExcludeNo = map[string]bool{"no": true, "private": true}

var kmhRegExp = regexp.MustCompile(`\d+\.?\d*\s*km/h`)
var mphRegExp = regexp.MustCompile(`\d+\.?\d*\s*mph`)
var numRegExp = regexp.MustCompile(`\d+\.?\d*`)

// junctionRoundabout mirrors the teacher's junctionTypes.
var junctionRoundabout = map[string]bool{"roundabout": true, "circular": true}

// NewStaticAdapter builds a StaticAdapter with the default class set.
func NewStaticAdapter() *StaticAdapter {
	idx := make(map[string]int, len(staticClassOrder))
	for i, name := range staticClassOrder {
		idx[name] = i
	}
	return &StaticAdapter{classIndex: idx}
}

func (s *StaticAdapter) ProcessNode(tags map[string]string) (ExtractionNode, error) {
	n := ExtractionNode{}
	if tags["highway"] == "traffic_signals" {
		n.TrafficSignal = true
	}
	if tags["barrier"] != "" && tags["barrier"] != "no" {
		n.Barrier = true
	}
	return n, nil
}

func (s *StaticAdapter) ProcessWay(tags map[string]string, _ RelationContext) (ExtractionWay, bool, error) {
	highway := tags["highway"]
	if highway == "" {
		return ExtractionWay{}, false, nil
	}
	if negligibleHighway[highway] {
		return ExtractionWay{}, false, nil
	}
	className, ok := classByHighway[highway]
	if !ok {
		return ExtractionWay{}, false, nil
	}
	if access := tags["access"]; accessExcludeNo[access] {
		return ExtractionWay{}, false, nil
	}

	oneway := parseOneway(tags)
	speed := parseMaxSpeed(tags)
	if speed <= 0 {
		speed = speedByHighway[highway]
	}
	if speed <= 0 {
		speed = 30
	}

	w := ExtractionWay{
		Forward:  DirectionAttrs{Enabled: true, SpeedKPH: speed},
		Backward: DirectionAttrs{Enabled: !oneway, SpeedKPH: speed},
		Names: NameQuadruple{
			Name: tags["name"],
			Ref:  tags["ref"],
		},
		ClassMask:          1 << uint(s.classIndex[className]),
		Roundabout:         junctionRoundabout[tags["junction"]],
		StartpointEligible: true,
	}
	if oneway && tags["oneway"] == "-1" {
		w.Forward, w.Backward = w.Backward, w.Forward
	}
	return w, true, nil
}

func parseOneway(tags map[string]string) bool {
	switch tags["oneway"] {
	case "yes", "1", "-1":
		return true
	case "no", "0":
		return false
	}
	return junctionRoundabout[tags["junction"]]
}

func parseMaxSpeed(tags map[string]string) float64 {
	raw := tags["maxspeed"]
	if raw == "" {
		return 0
	}
	if m := kmhRegExp.FindString(raw); m != "" {
		if v, err := strconv.ParseFloat(numRegExp.FindString(m), 64); err == nil {
			return v
		}
	}
	if m := mphRegExp.FindString(raw); m != "" {
		if v, err := strconv.ParseFloat(numRegExp.FindString(m), 64); err == nil {
			return v * 1.60934
		}
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return v
	}
	return 0
}

// ProcessTurn applies a flat penalty model: U-turns are heavily
// penalized, turns at a traffic signal get a fixed delay, everything else
// is free — good enough as a default and for deterministic tests.
func (s *StaticAdapter) ProcessTurn(angleDegrees float64, _, _ uint32, flags TurnFlags) (float64, float64) {
	duration := 0.0
	if flags.TrafficSignal {
		duration += 2.0
	}
	if angleDegrees > 150 || angleDegrees < -150 {
		duration += 20.0
	}
	return 0, duration
}

func (s *StaticAdapter) Relations() []string   { return []string{"restriction"} }
func (s *StaticAdapter) Restrictions() []string { return []string{"no_left_turn", "no_right_turn", "no_straight_on", "no_u_turn", "only_left_turn", "only_right_turn", "only_straight_on"} }
func (s *StaticAdapter) ClassNames() []string {
	out := make([]string, len(staticClassOrder))
	copy(out, staticClassOrder)
	return out
}
func (s *StaticAdapter) ExcludableClasses() [][]string { return nil }
func (s *StaticAdapter) HasLocationDependentData() bool { return true }
func (s *StaticAdapter) ProfileProperties() ProfileProperties {
	return ProfileProperties{"name": "static-default", "weight_name": "duration"}
}
